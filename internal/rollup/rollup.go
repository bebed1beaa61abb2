package rollup

import (
	"github.com/accordhq/accord/internal/model"
)

// Result holds the evaluated state of every control plus the assessment
// overall
type Result struct {
	States  map[string]model.ComplianceState `json:"states"` // Alias → state
	Overall model.ComplianceState            `json:"overall"`
}

// Evaluate computes per-control compliance states from recorded leaf
// outcomes. A leaf takes its recorded outcome, or Unevaluated when none
// exists; a non-leaf folds its children. Pure function over the tree:
// recomputed on demand, never cached. Unknown aliases in leafStates are
// ignored.
func Evaluate(a *model.Assessment, leafStates map[string]model.ComplianceState) Result {
	states := make(map[string]model.ComplianceState)

	rootStates := make([]model.ComplianceState, 0, len(a.Controls))
	for _, c := range a.Controls {
		rootStates = append(rootStates, evalControl(c, leafStates, states))
	}

	return Result{States: states, Overall: Combine(rootStates)}
}

func evalControl(c *model.Control, leafStates, states map[string]model.ComplianceState) model.ComplianceState {
	var state model.ComplianceState

	if len(c.Controls) == 0 {
		state = model.StateUnevaluated
		if s, ok := leafStates[c.Alias]; ok && s.Valid() {
			state = s
		}
	} else {
		children := make([]model.ComplianceState, 0, len(c.Controls))
		for _, child := range c.Controls {
			children = append(children, evalControl(child, leafStates, states))
		}
		state = Combine(children)
	}

	states[c.Alias] = state
	return state
}

// Combine folds sibling states: Compliant iff every sibling is Compliant,
// NonCompliant as soon as any sibling is NonCompliant, otherwise
// Unevaluated. An empty sibling set is Unevaluated.
func Combine(children []model.ComplianceState) model.ComplianceState {
	if len(children) == 0 {
		return model.StateUnevaluated
	}

	allCompliant := true
	for _, s := range children {
		if s == model.StateNonCompliant {
			return model.StateNonCompliant
		}
		if s != model.StateCompliant {
			allCompliant = false
		}
	}

	if allCompliant {
		return model.StateCompliant
	}
	return model.StateUnevaluated
}
