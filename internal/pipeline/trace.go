package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/accordhq/accord/internal/cache"
	"github.com/accordhq/accord/internal/executor"
	"github.com/accordhq/accord/internal/graphstore"
	"github.com/accordhq/accord/internal/model"
	"github.com/accordhq/accord/internal/sqlgen"
	"github.com/accordhq/accord/internal/traverse"
)

// Tracer runs the traversal plus synthesis flow: walk the control-link
// graph from a start node, collect the evidence schemas reachable controls
// depend on, and synthesize the two SQL artifacts over them.
type Tracer struct {
	synth  *sqlgen.Synthesizer
	config *model.Config
}

// NewTracer creates a tracer wired from configuration
func NewTracer(cfg *model.Config) *Tracer {
	return &Tracer{synth: sqlgen.New(), config: cfg}
}

// TraceOptions carries per-run inputs
type TraceOptions struct {
	GraphFile  string // Static graph fixture; takes precedence over the live graph
	Control    model.ControlContext
	Assessment model.AssessmentContext
	RunSample  bool // Execute the selection against the sample database
	Records    int  // Sample row cap
}

// Trace traverses from startID and synthesizes SQL from the collected
// evidence. On artifact failure the report still carries whatever artifact
// succeeded; the returned error describes the first failure.
func (t *Tracer) Trace(ctx context.Context, startID string, opts TraceOptions) (*model.TraceReport, error) {
	reader, cleanup, err := t.openReader(ctx, opts.GraphFile)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	traverser := traverse.New(reader, traverse.Options{
		MaxDepth: t.config.Graph.MaxDepth,
		MaxNodes: t.config.Graph.MaxNodes,
		Workers:  t.config.Graph.Workers,
		Cache:    cache.FromConfig(t.config.Cache),
	})

	trace, err := traverser.Traverse(ctx, startID)
	if err != nil {
		return nil, fmt.Errorf("traverse: %w", err)
	}

	report := &model.TraceReport{
		RunID:    trace.RunID,
		Start:    trace.Start,
		TracedAt: time.Now().UTC(),
		Visited:  trace.Visited,
		Evidence: trace.Evidence,
		Warnings: trace.Warnings,
	}

	// An empty trace is a complete report with nothing to synthesize
	if len(trace.Evidence) == 0 {
		return report, nil
	}

	artifacts, err := t.synth.Synthesize(trace.Evidence, opts.Control, opts.Assessment)
	if artifacts != nil {
		report.Selection = artifacts.Selection
		report.Summary = artifacts.Summary
		report.Warnings = append(report.Warnings, artifacts.Warnings...)
	}
	if err != nil {
		return report, fmt.Errorf("synthesize: %w", err)
	}

	if opts.RunSample && report.Selection != "" {
		rows, err := t.fetchSample(ctx, report.Selection, opts.Records)
		if err != nil {
			return report, fmt.Errorf("sample: %w", err)
		}
		report.SampleRows = rows
	}

	return report, nil
}

// openReader picks the graph source: an explicit fixture file wins, then
// the configured live graph.
func (t *Tracer) openReader(ctx context.Context, graphFile string) (traverse.GraphReader, func(), error) {
	if graphFile != "" {
		g, err := graphstore.LoadStatic(graphFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load graph file: %w", err)
		}
		return g, func() {}, nil
	}

	client, err := graphstore.NewClient(ctx, t.config.Graph)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return nil, nil, fmt.Errorf("no graph configured: set graph.uri or pass --graph-file")
	}

	store := graphstore.NewStore(client, t.config.Graph.RatePerSecond)
	cleanup := func() { _ = client.Close(context.Background()) }
	return store, cleanup, nil
}

func (t *Tracer) fetchSample(ctx context.Context, selection string, records int) ([]map[string]interface{}, error) {
	runner, err := executor.Open(t.config.Sample)
	if err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, fmt.Errorf("sample database not configured: set sample.dsn or pass --dsn")
	}
	defer runner.Close()

	return runner.FetchSample(ctx, selection, records)
}
