package model

// Requirement represents one atomic, testable obligation extracted from policy text
type Requirement struct {
	Text            string `json:"text"`                       // Normalized requirement statement
	Source          string `json:"source,omitempty"`           // Raw sentence span the statement came from
	Sentence        int    `json:"sentence,omitempty"`         // Sentence index in the document (0-based)
	ExampleStripped bool   `json:"example_stripped,omitempty"` // An illustrative clause was cut before normalization
	Heuristic       string `json:"heuristic,omitempty"`        // Which extraction rule matched (e.g., "obligation:must")
}

// ObligationKind categorizes the nature of the obligation
type ObligationKind string

const (
	ObligationMandatory   ObligationKind = "mandatory"   // must, shall, is required to
	ObligationRecommended ObligationKind = "recommended" // should, is encouraged to
	ObligationProhibited  ObligationKind = "prohibited"  // must not, shall not, is prohibited from
)
