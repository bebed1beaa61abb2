package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/accordhq/accord/internal/model"
	"github.com/accordhq/accord/internal/pipeline"
	"github.com/accordhq/accord/internal/rollup"
)

var resultsFile string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <document.yaml>",
	Short: "Roll up compliance states over an assessment document",
	Long: `Computes per-control and overall compliance for an assessment:
- Load the assessment document
- Apply recorded leaf outcomes from a results file (alias: state)
- Fold child states upward (any NonCompliant child fails the parent)
- Print the control tree with states and a leaf tally

Leaves without a recorded outcome count as Unevaluated.

Example:
  accord status assessment.yaml
  accord status assessment.yaml --results outcomes.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&resultsFile, "results", "", "YAML file of recorded leaf outcomes (alias: state)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	doc, err := pipeline.LoadDocument(args[0])
	if err != nil {
		return err
	}
	assessment := doc.Assessment()

	leafStates := make(map[string]model.ComplianceState)
	if resultsFile != "" {
		data, err := os.ReadFile(resultsFile)
		if err != nil {
			return fmt.Errorf("read results: %w", err)
		}
		var raw map[string]string
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse results: %w", err)
		}
		for alias, value := range raw {
			state := model.ComplianceState(value)
			if !state.Valid() {
				return fmt.Errorf("invalid state %q for alias %s (want Compliant, NonCompliant, or Unevaluated)", value, alias)
			}
			leafStates[alias] = state
		}
	}

	result := rollup.Evaluate(assessment, leafStates)

	fmt.Printf("%s (%s)\n", assessment.Name, assessment.CategoryName)
	fmt.Printf("Overall: %s\n\n", result.Overall)
	printControls(os.Stdout, assessment.Controls, result.States, 0)

	tally := rollup.Tabulate(assessment, result.States)
	fmt.Printf("\n%s\n", tally.Summary())

	return nil
}

func printControls(w io.Writer, controls []*model.Control, states map[string]model.ComplianceState, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range controls {
		fmt.Fprintf(w, "%s%-8s %-13s %s\n", indent, c.Alias, states[c.Alias], c.Name)
		printControls(w, c.Controls, states, depth+1)
	}
}
