package rollup

import (
	"fmt"

	"github.com/accordhq/accord/internal/model"
)

// Tally counts leaf outcomes for one assessment. Non-leaf states are
// derived, so only leaves are counted; the assessment state itself comes
// from Result.Overall.
type Tally struct {
	Leaves       int `json:"leaves"`
	Compliant    int `json:"compliant"`
	NonCompliant int `json:"noncompliant"`
	Unevaluated  int `json:"unevaluated"`
}

// Tabulate counts the per-leaf states recorded in states. Leaves missing
// from the map count as Unevaluated.
func Tabulate(a *model.Assessment, states map[string]model.ComplianceState) Tally {
	var t Tally
	for _, leaf := range a.Leaves() {
		t.Leaves++
		switch states[leaf.Alias] {
		case model.StateCompliant:
			t.Compliant++
		case model.StateNonCompliant:
			t.NonCompliant++
		default:
			t.Unevaluated++
		}
	}
	return t
}

// Evaluated returns the number of leaves with a recorded outcome.
func (t Tally) Evaluated() int {
	return t.Compliant + t.NonCompliant
}

// Coverage returns the fraction of leaves with a recorded outcome, 0..1.
func (t Tally) Coverage() float64 {
	if t.Leaves == 0 {
		return 0
	}
	return float64(t.Evaluated()) / float64(t.Leaves)
}

// CompliantShare returns the fraction of leaves that are Compliant, 0..1.
func (t Tally) CompliantShare() float64 {
	if t.Leaves == 0 {
		return 0
	}
	return float64(t.Compliant) / float64(t.Leaves)
}

// Summary renders the tally as a single status line.
func (t Tally) Summary() string {
	return fmt.Sprintf("%d/%d leaves compliant (%.0f%%), %d noncompliant, %d unevaluated",
		t.Compliant, t.Leaves, t.CompliantShare()*100, t.NonCompliant, t.Unevaluated)
}
