package model

// ComplianceState is the evaluated state of a control or assessment
type ComplianceState string

const (
	StateCompliant    ComplianceState = "Compliant"
	StateNonCompliant ComplianceState = "NonCompliant"
	StateUnevaluated  ComplianceState = "Unevaluated" // No rule attached, or children not yet decisive
)

// Valid reports whether s is one of the defined states.
func (s ComplianceState) Valid() bool {
	switch s {
	case StateCompliant, StateNonCompliant, StateUnevaluated:
		return true
	}
	return false
}
