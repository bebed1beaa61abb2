package traverse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/accordhq/accord/internal/cache"
	"github.com/accordhq/accord/internal/model"
)

// GraphReader is the read-only view of the external control-link graph. All
// three operations treat "no results" as a normal empty case, and the same
// node may be reached over multiple paths.
type GraphReader interface {
	// ControlLinks returns the control configs directly linked from a node.
	ControlLinks(ctx context.Context, id string) ([]model.ControlConfig, error)
	// EvidenceLinks returns the evidence configs attached to a node.
	EvidenceLinks(ctx context.Context, id string) ([]model.EvidenceConfig, error)
	// Schema resolves the single schema of an evidence config.
	Schema(ctx context.Context, evidenceID string) (*model.EvidenceSchema, error)
}

const (
	defaultMaxDepth = 10
	defaultMaxNodes = 250
	defaultWorkers  = 4
)

// Options bound a traversal. Zero values take the defaults.
type Options struct {
	MaxDepth int // Link-edge steps from the start node
	MaxNodes int // Total nodes claimed
	Workers  int // Concurrent node visits per level
	Cache    cache.Cache
}

// Traverser explores the control-link graph breadth-first and aggregates the
// evidence schemas reachable controls depend on. Nodes within one level are
// visited concurrently; all claims on the visited set happen on a single
// merge goroutine between levels, which both guarantees at-most-once
// processing under cycles and keeps discovery order reproducible.
type Traverser struct {
	reader   GraphReader
	maxDepth int
	maxNodes int
	workers  int
	cache    cache.Cache
}

// New creates a traverser over the given graph reader
func New(reader GraphReader, opts Options) *Traverser {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = defaultMaxNodes
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Traverser{
		reader:   reader,
		maxDepth: opts.MaxDepth,
		maxNodes: opts.MaxNodes,
		workers:  opts.Workers,
		cache:    opts.Cache,
	}
}

// Trace is the closed result of one traversal: controls in discovery order,
// deduplicated evidence schemas in discovery order, and any per-branch
// warnings collected along the way.
type Trace struct {
	RunID    string                 `json:"run_id"`
	Start    string                 `json:"start"`
	Visited  []string               `json:"visited"`
	Evidence []model.EvidenceSchema `json:"evidence"`
	Warnings []model.Warning        `json:"warnings,omitempty"`
}

type nodeResult struct {
	id       string
	links    []model.ControlConfig
	schemas  []model.EvidenceSchema
	warnings []model.Warning
	err      error
}

// Traverse walks the control-link graph from startID to unbounded depth,
// within the configured ceilings. A start node with no links and no evidence
// yields an empty trace, not an error. Past the start node, schema
// resolution and node read failures degrade to per-branch warnings; an
// unreadable start node or a cancelled context aborts.
func (t *Traverser) Traverse(ctx context.Context, startID string) (*Trace, error) {
	trace := &Trace{
		RunID: uuid.NewString(),
		Start: startID,
	}

	visited := map[string]bool{startID: true}
	evidenceSeen := make(map[string]bool)
	trace.Visited = append(trace.Visited, startID)

	level := []string{startID}
	depth := 0
	truncated := false

	for len(level) > 0 {
		results := t.visitLevel(ctx, level)

		var next []string
		for _, res := range results {
			if res.err != nil {
				if depth == 0 || errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
					return trace, fmt.Errorf("read node %s: %w", res.id, res.err)
				}
				trace.Warnings = append(trace.Warnings, model.Warning{
					Type:        model.WarnGraphRead,
					Severity:    model.SeverityWarning,
					Description: fmt.Sprintf("control %s could not be read; its branch is not expanded", res.id),
					Data: map[string]interface{}{
						"control_id": res.id,
						"error":      res.err.Error(),
					},
				})
				continue
			}

			trace.Warnings = append(trace.Warnings, res.warnings...)

			for _, schema := range res.schemas {
				if evidenceSeen[schema.EvidenceID] {
					continue
				}
				evidenceSeen[schema.EvidenceID] = true
				trace.Evidence = append(trace.Evidence, schema)
			}

			for _, link := range res.links {
				if visited[link.ID] {
					continue
				}
				if len(trace.Visited) >= t.maxNodes {
					truncated = true
					continue
				}
				if depth+1 > t.maxDepth {
					truncated = true
					continue
				}
				visited[link.ID] = true
				trace.Visited = append(trace.Visited, link.ID)
				next = append(next, link.ID)
			}
		}

		level = next
		depth++
	}

	if truncated {
		trace.Warnings = append(trace.Warnings, model.Warning{
			Type:        model.WarnTraversalTruncated,
			Severity:    model.SeverityWarning,
			Description: "traversal stopped at its depth or node ceiling; result is partial",
			Data: map[string]interface{}{
				"max_depth": t.maxDepth,
				"max_nodes": t.maxNodes,
				"visited":   len(trace.Visited),
			},
		})
	}

	return trace, nil
}

// visitLevel fetches links, evidence, and schemas for every node in the
// level, bounded by the worker count. Results come back in level order so
// the merge stays deterministic regardless of completion order.
func (t *Traverser) visitLevel(ctx context.Context, level []string) []nodeResult {
	results := make([]nodeResult, len(level))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, t.workers)

	for i, id := range level {
		wg.Add(1)
		go func(idx int, nodeID string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = nodeResult{id: nodeID, err: ctx.Err()}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = t.visitNode(ctx, nodeID)
		}(i, id)
	}

	wg.Wait()
	return results
}

// visitNode reads one node's outgoing links and resolves the schema of every
// attached evidence config. A failed schema resolution becomes a warning on
// the result, never an error; other branches may still be usable.
func (t *Traverser) visitNode(ctx context.Context, id string) nodeResult {
	res := nodeResult{id: id}

	links, err := t.reader.ControlLinks(ctx, id)
	if err != nil {
		res.err = fmt.Errorf("control links: %w", err)
		return res
	}
	res.links = links

	evidence, err := t.reader.EvidenceLinks(ctx, id)
	if err != nil {
		res.err = fmt.Errorf("evidence links: %w", err)
		return res
	}

	for _, ev := range evidence {
		schema, err := t.resolveSchema(ctx, ev)
		if err != nil || schema == nil {
			res.warnings = append(res.warnings, model.Warning{
				Type:        model.WarnSchemaResolution,
				Severity:    model.SeverityWarning,
				Description: fmt.Sprintf("no resolvable schema for evidence config %q on control %s", ev.Name, id),
				Data: map[string]interface{}{
					"control_id":  id,
					"evidence_id": ev.ID,
				},
			})
			continue
		}
		res.schemas = append(res.schemas, *schema)
	}

	return res
}

// resolveSchema consults the cache before the graph store. Cache failures
// fall through to the store silently.
func (t *Traverser) resolveSchema(ctx context.Context, ev model.EvidenceConfig) (*model.EvidenceSchema, error) {
	key := cache.CacheKey("schema:" + ev.ID)

	if t.cache != nil {
		if data, found := t.cache.Get(key); found {
			var schema model.EvidenceSchema
			if err := json.Unmarshal(data, &schema); err == nil {
				return &schema, nil
			}
		}
	}

	schema, err := t.reader.Schema(ctx, ev.ID)
	if err != nil || schema == nil {
		return nil, err
	}

	if t.cache != nil {
		if data, err := json.Marshal(schema); err == nil {
			_ = t.cache.Set(key, data, 0)
		}
	}

	return schema, nil
}
