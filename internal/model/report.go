package model

import "time"

// CompileReport records one policy-to-assessment compilation
type CompileReport struct {
	Source     string     `json:"source"`               // File path or URL the policy text came from
	CompiledAt time.Time  `json:"compiled_at"`          // When the compilation occurred
	FetchMeta  *FetchMeta `json:"fetch_meta,omitempty"` // HTTP metadata when the source was a URL

	Requirements []Requirement `json:"requirements"` // Extracted requirement statements
	Document     *Document     `json:"document"`     // The compiled assessment document

	Outline  *OutlineSummary `json:"outline,omitempty"` // Optional assist details (never gates compilation)
	Warnings []Warning       `json:"warnings,omitempty"`
}

// TraceReport records one traversal plus synthesis run
type TraceReport struct {
	RunID    string    `json:"run_id"`
	Start    string    `json:"start"` // Starting control config id
	TracedAt time.Time `json:"traced_at"`

	Visited  []string         `json:"visited"`  // Control config ids in discovery order
	Evidence []EvidenceSchema `json:"evidence"` // Resolved schemas in discovery order

	Selection string `json:"selection_query,omitempty"` // Row-selection SQL artifact
	Summary   string `json:"summary_query,omitempty"`   // Compliance-summary SQL artifact

	SampleRows []map[string]interface{} `json:"sample_rows,omitempty"` // Optional sample-data preview

	Warnings []Warning `json:"warnings,omitempty"`
}

// FetchMeta contains HTTP metadata from fetching a policy source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// OutlineSummary documents whether and how the grouping assist was used
// CRITICAL: the assist proposes structure only; rejected proposals leave the
// heuristic outline untouched
type OutlineSummary struct {
	Enabled  bool     `json:"enabled"`
	Provider string   `json:"provider,omitempty"` // openai, anthropic, ollama
	Model    string   `json:"model,omitempty"`
	Applied  bool     `json:"applied"`            // Whether the proposal passed validation and was used
	Warnings []string `json:"warnings,omitempty"` // Validation failures, provider errors
}
