package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/accordhq/accord/internal/model"
	"github.com/accordhq/accord/internal/pipeline"
)

var (
	graphFile string
	graphURI  string
	graphUser string
	graphPass string
	graphDB   string

	controlFilters []string
	groupBy        []string
	assessFilters  []string

	traceMaxDepth int
	traceMaxNodes int
	traceWorkers  int

	traceJSON    string
	traceMD      string
	traceSample  bool
	traceTimeout time.Duration

	sampleDSN     string
	sampleRecords int
)

// traceCmd represents the trace command
var traceCmd = &cobra.Command{
	Use:   "trace <control-id>",
	Short: "Traverse the control graph and synthesize verification SQL",
	Long: `Traces a control through the dependency graph:
- Walk control links breadth-first from the start node
- Collect the evidence schemas reachable controls depend on
- Synthesize the operational-evidence query and the compliance summary
- Optionally preview the selection against a sample database

The graph comes from a live endpoint (graph.uri) or a YAML fixture
(--graph-file). Generated SQL is printed for review; --run-sample
executes only the read-only selection.

Example:
  accord trace ctl-100 --graph-file graph.yaml
  accord trace ctl-100 --control-filter mfa_enabled=true --group-by account_id
  accord trace ctl-100 --graph-uri bolt://localhost:7687 --json trace.json
  accord trace ctl-100 --graph-file graph.yaml --run-sample --dsn postgres://localhost/evidence`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)

	// Graph source flags
	traceCmd.Flags().StringVar(&graphFile, "graph-file", "", "static graph YAML (takes precedence over graph.uri)")
	traceCmd.Flags().StringVar(&graphURI, "graph-uri", "", "graph endpoint URI (overrides config)")
	traceCmd.Flags().StringVar(&graphUser, "graph-user", "", "graph username")
	traceCmd.Flags().StringVar(&graphPass, "graph-password", "", "graph password")
	traceCmd.Flags().StringVar(&graphDB, "graph-database", "", "graph database name")

	// Synthesis context flags
	traceCmd.Flags().StringArrayVar(&controlFilters, "control-filter", nil, "control predicate key=value (repeatable)")
	traceCmd.Flags().StringSliceVar(&groupBy, "group-by", nil, "summary aggregation fields")
	traceCmd.Flags().StringArrayVar(&assessFilters, "assessment-filter", nil, "assessment predicate key=value (repeatable)")

	// Traversal limit flags
	traceCmd.Flags().IntVar(&traceMaxDepth, "max-depth", 10, "traversal depth ceiling")
	traceCmd.Flags().IntVar(&traceMaxNodes, "max-nodes", 250, "traversal node-count ceiling")
	traceCmd.Flags().IntVar(&traceWorkers, "workers", 4, "concurrent branches per level")

	// Output flags
	traceCmd.Flags().StringVar(&traceJSON, "json", "", "write the full trace report as JSON (\"-\" for stdout)")
	traceCmd.Flags().StringVar(&traceMD, "md", "", "write SQL automation documentation as Markdown (\"-\" for stdout)")
	traceCmd.Flags().BoolVar(&noFooter, "no-footer", false, "omit the generated-by footer in Markdown output")

	// Sample execution flags
	traceCmd.Flags().BoolVar(&traceSample, "run-sample", false, "execute the selection against the sample database")
	traceCmd.Flags().StringVar(&sampleDSN, "dsn", "", "sample database DSN (overrides config)")
	traceCmd.Flags().IntVar(&sampleRecords, "records", 3, "sample row cap (1-10)")

	traceCmd.Flags().DurationVar(&traceTimeout, "timeout", 5*time.Minute, "total timeout for the trace")
}

func runTrace(cmd *cobra.Command, args []string) error {
	startID := args[0]
	flags := cmd.Flags()

	cfg := loadConfig()
	if graphURI != "" {
		cfg.Graph.URI = graphURI
	}
	if graphUser != "" {
		cfg.Graph.Username = graphUser
	}
	if graphPass != "" {
		cfg.Graph.Password = graphPass
	}
	if graphDB != "" {
		cfg.Graph.Database = graphDB
	}
	if flags.Changed("max-depth") {
		cfg.Graph.MaxDepth = traceMaxDepth
	}
	if flags.Changed("max-nodes") {
		cfg.Graph.MaxNodes = traceMaxNodes
	}
	if flags.Changed("workers") {
		cfg.Graph.Workers = traceWorkers
	}
	if sampleDSN != "" {
		cfg.Sample.DSN = sampleDSN
	}
	if flags.Changed("records") {
		cfg.Sample.Records = sampleRecords
	}
	if flags.Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	cfg.Output.Verbose = verbose

	control := model.ControlContext{GroupBy: groupBy}
	for _, arg := range controlFilters {
		f, err := model.ParseFilter(arg)
		if err != nil {
			return err
		}
		control.Filters = append(control.Filters, f)
	}

	var assessment model.AssessmentContext
	for _, arg := range assessFilters {
		f, err := model.ParseFilter(arg)
		if err != nil {
			return err
		}
		assessment.Filters = append(assessment.Filters, f)
	}

	ctx, cancel := context.WithTimeout(context.Background(), traceTimeout)
	defer cancel()

	if verbose {
		source := cfg.Graph.URI
		if graphFile != "" {
			source = graphFile
		}
		fmt.Fprintf(os.Stderr, "⚙️  Tracing %s\n", startID)
		fmt.Fprintf(os.Stderr, "   Graph:   %s\n", source)
		fmt.Fprintf(os.Stderr, "   Limits:  depth %d, nodes %d, workers %d\n",
			cfg.Graph.MaxDepth, cfg.Graph.MaxNodes, cfg.Graph.Workers)
		if len(control.Filters) > 0 || len(assessment.Filters) > 0 {
			fmt.Fprintf(os.Stderr, "   Filters: %d control, %d assessment\n",
				len(control.Filters), len(assessment.Filters))
		}
	}

	tracer := pipeline.NewTracer(cfg)
	report, traceErr := tracer.Trace(ctx, startID, pipeline.TraceOptions{
		GraphFile:  graphFile,
		Control:    control,
		Assessment: assessment,
		RunSample:  traceSample,
		Records:    cfg.Sample.Records,
	})
	if report == nil {
		return traceErr
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Visited %d controls, %d evidence schemas\n",
			len(report.Visited), len(report.Evidence))
	}

	// Partial artifacts still render; the exit code reflects the failure
	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if traceJSON != "" {
		if err := renderer.RenderJSON(report, traceJSON); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if verbose && traceJSON != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", traceJSON)
		}
	}
	if traceMD != "" {
		if err := renderer.RenderTraceMarkdown(report, traceMD); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
		if verbose && traceMD != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", traceMD)
		}
	}
	if traceJSON == "" && traceMD == "" {
		renderer.TraceSummary(os.Stdout, report)
		if len(report.SampleRows) > 0 {
			if err := renderer.RenderJSON(report.SampleRows, ""); err != nil {
				return fmt.Errorf("write sample rows: %w", err)
			}
		}
	}

	return traceErr
}
