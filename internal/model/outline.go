package model

// Outline is an externally proposed grouping of requirements, coming from
// human hints or the optional assist provider. Indexes refer to positions in
// the extracted requirement sequence.
type Outline struct {
	Category string         `json:"category,omitempty"`
	Groups   []OutlineGroup `json:"groups,omitempty"`
}

// OutlineGroup proposes one synthesized parent control
type OutlineGroup struct {
	Label   string `json:"label"`
	Members []int  `json:"members"` // Requirement indexes, document order
}
