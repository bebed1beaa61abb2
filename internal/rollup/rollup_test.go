package rollup

import (
	"testing"

	"github.com/accordhq/accord/internal/model"
)

// buildTree returns:
//
//	1        (non-leaf)
//	1.1      (non-leaf)
//	1.1.1    (leaf)
//	1.1.2    (leaf)
//	1.2      (leaf)
//	2        (leaf)
func buildTree() *model.Assessment {
	return &model.Assessment{
		Name:         "Evaluation Fixture",
		CategoryName: "Governance",
		Controls: []*model.Control{
			{
				Alias: "1", Displayable: "1", Name: "parent",
				Controls: []*model.Control{
					{
						Alias: "1.1", Displayable: "1.1", Name: "mid",
						Controls: []*model.Control{
							{Alias: "1.1.1", Displayable: "1.1.1", Name: "deep one", IsLeaf: true},
							{Alias: "1.1.2", Displayable: "1.1.2", Name: "deep two", IsLeaf: true},
						},
					},
					{Alias: "1.2", Displayable: "1.2", Name: "shallow", IsLeaf: true},
				},
			},
			{Alias: "2", Displayable: "2", Name: "standalone", IsLeaf: true},
		},
	}
}

func TestEvaluate_AllCompliant(t *testing.T) {
	a := buildTree()
	result := Evaluate(a, map[string]model.ComplianceState{
		"1.1.1": model.StateCompliant,
		"1.1.2": model.StateCompliant,
		"1.2":   model.StateCompliant,
		"2":     model.StateCompliant,
	})

	for _, alias := range []string{"1", "1.1", "1.1.1", "1.1.2", "1.2", "2"} {
		if result.States[alias] != model.StateCompliant {
			t.Errorf("Expected %s Compliant, got %s", alias, result.States[alias])
		}
	}
	if result.Overall != model.StateCompliant {
		t.Errorf("Expected overall Compliant, got %s", result.Overall)
	}
}

func TestEvaluate_NonCompliantPropagatesToAncestors(t *testing.T) {
	a := buildTree()
	result := Evaluate(a, map[string]model.ComplianceState{
		"1.1.1": model.StateCompliant,
		"1.1.2": model.StateNonCompliant,
		"1.2":   model.StateCompliant,
		"2":     model.StateCompliant,
	})

	// Every strict ancestor of 1.1.2 flips
	for _, alias := range []string{"1.1", "1"} {
		if result.States[alias] != model.StateNonCompliant {
			t.Errorf("Expected ancestor %s NonCompliant, got %s", alias, result.States[alias])
		}
	}
	if result.States["1.2"] != model.StateCompliant {
		t.Errorf("Sibling 1.2 should stay Compliant, got %s", result.States["1.2"])
	}
	if result.Overall != model.StateNonCompliant {
		t.Errorf("Expected overall NonCompliant, got %s", result.Overall)
	}
}

func TestEvaluate_MissingLeafStatesAreUnevaluated(t *testing.T) {
	a := buildTree()
	result := Evaluate(a, map[string]model.ComplianceState{
		"1.1.1": model.StateCompliant,
		"1.2":   model.StateCompliant,
		"2":     model.StateCompliant,
	})

	if result.States["1.1.2"] != model.StateUnevaluated {
		t.Errorf("Expected 1.1.2 Unevaluated, got %s", result.States["1.1.2"])
	}
	if result.States["1.1"] != model.StateUnevaluated {
		t.Errorf("Expected 1.1 Unevaluated (compliant + unevaluated mix), got %s", result.States["1.1"])
	}
	if result.Overall != model.StateUnevaluated {
		t.Errorf("Expected overall Unevaluated, got %s", result.Overall)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	a := buildTree()
	input := map[string]model.ComplianceState{
		"1.1.1": model.StateCompliant,
		"1.1.2": model.StateNonCompliant,
	}

	first := Evaluate(a, input)
	second := Evaluate(a, input)

	if len(first.States) != len(second.States) {
		t.Fatalf("State count changed between runs: %d vs %d", len(first.States), len(second.States))
	}
	for alias, state := range first.States {
		if second.States[alias] != state {
			t.Errorf("State for %s changed between runs: %s vs %s", alias, state, second.States[alias])
		}
	}
	if first.Overall != second.Overall {
		t.Errorf("Overall changed between runs: %s vs %s", first.Overall, second.Overall)
	}
}

func TestEvaluate_FlippingOneLeafFlipsAncestors(t *testing.T) {
	a := buildTree()
	states := map[string]model.ComplianceState{
		"1.1.1": model.StateCompliant,
		"1.1.2": model.StateCompliant,
		"1.2":   model.StateCompliant,
		"2":     model.StateCompliant,
	}

	before := Evaluate(a, states)
	if before.Overall != model.StateCompliant {
		t.Fatalf("Precondition failed: expected Compliant overall, got %s", before.Overall)
	}

	states["1.1.1"] = model.StateNonCompliant
	after := Evaluate(a, states)

	for _, alias := range []string{"1.1", "1"} {
		if after.States[alias] != model.StateNonCompliant {
			t.Errorf("Expected ancestor %s to flip NonCompliant, got %s", alias, after.States[alias])
		}
	}
	if after.Overall != model.StateNonCompliant {
		t.Errorf("Expected overall to flip NonCompliant, got %s", after.Overall)
	}
}

func TestEvaluate_IgnoresUnknownAndInvalidStates(t *testing.T) {
	a := buildTree()
	result := Evaluate(a, map[string]model.ComplianceState{
		"9.9":   model.StateCompliant, // No such control
		"1.1.1": model.ComplianceState("Halfway"),
	})

	if result.States["1.1.1"] != model.StateUnevaluated {
		t.Errorf("Expected invalid recorded state to read as Unevaluated, got %s", result.States["1.1.1"])
	}
	if _, ok := result.States["9.9"]; ok {
		t.Error("Unknown alias leaked into the result")
	}
}

func TestCombine_EmptyIsUnevaluated(t *testing.T) {
	if got := Combine(nil); got != model.StateUnevaluated {
		t.Errorf("Expected empty combine to be Unevaluated, got %s", got)
	}
}
