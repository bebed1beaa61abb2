package model

// Warning is a non-fatal condition carried alongside a partial or complete
// result. Warnings never abort sibling work; they are rendered with the
// report they belong to.
type Warning struct {
	Type        WarningType            `json:"type"`           // Condition classification
	Severity    Severity               `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Identifiers and counts behind the condition
}

// WarningType classifies a reported condition
type WarningType string

const (
	WarnSchemaResolution   WarningType = "schema_resolution_failure" // Evidence config with no resolvable schema
	WarnTraversalTruncated WarningType = "traversal_truncated"       // Depth or node ceiling reached
	WarnGraphRead          WarningType = "graph_read_failure"        // Unreadable node past the start; branch unexpanded
	WarnSelectionSplit     WarningType = "selection_split"           // No shared key; per-config statements emitted
	WarnOutlineRejected    WarningType = "outline_rejected"          // Assist proposal failed validation
	WarnRobotsDisallowed   WarningType = "robots_disallowed"         // robots.txt blocked a policy URL fetch
)

// Severity indicates the importance of the warning
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)
