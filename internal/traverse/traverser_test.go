package traverse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/accordhq/accord/internal/model"
)

type fakeGraph struct {
	mu          sync.Mutex
	links       map[string][]model.ControlConfig
	evidence    map[string][]model.EvidenceConfig
	schemas     map[string]*model.EvidenceSchema
	schemaErrs  map[string]error
	linkErrs    map[string]error
	linkCalls   map[string]int
	schemaCalls int32
}

func (g *fakeGraph) ControlLinks(ctx context.Context, id string) ([]model.ControlConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	if g.linkCalls == nil {
		g.linkCalls = make(map[string]int)
	}
	g.linkCalls[id]++
	g.mu.Unlock()
	if err, ok := g.linkErrs[id]; ok {
		return nil, err
	}
	return g.links[id], nil
}

func (g *fakeGraph) EvidenceLinks(ctx context.Context, id string) ([]model.EvidenceConfig, error) {
	return g.evidence[id], nil
}

func (g *fakeGraph) Schema(ctx context.Context, evidenceID string) (*model.EvidenceSchema, error) {
	atomic.AddInt32(&g.schemaCalls, 1)
	if err, ok := g.schemaErrs[evidenceID]; ok {
		return nil, err
	}
	return g.schemas[evidenceID], nil
}

func (g *fakeGraph) callCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.linkCalls[id]
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	return val, ok
}

func (c *mapCache) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(key string) error { return nil }
func (c *mapCache) Clear() error            { return nil }

func loginEventsSchema() *model.EvidenceSchema {
	return &model.EvidenceSchema{
		EvidenceID:   "ev-login",
		EvidenceName: "LoginEvents",
		Fields: []model.SchemaField{
			{Name: "user", Type: model.FieldString},
			{Name: "timestamp", Type: model.FieldTimestamp},
			{Name: "mfa_used", Type: model.FieldBoolean},
		},
	}
}

func TestTraverse_CycleVisitedOnce(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"ctrl-a": {{ID: "ctrl-b", Name: "Control B"}},
			"ctrl-b": {{ID: "ctrl-a", Name: "Control A"}},
		},
		evidence: map[string][]model.EvidenceConfig{
			"ctrl-b": {{ID: "ev-login", Name: "LoginEvents"}},
		},
		schemas: map[string]*model.EvidenceSchema{
			"ev-login": loginEventsSchema(),
		},
	}

	tr := New(graph, Options{})
	trace, err := tr.Traverse(context.Background(), "ctrl-a")
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}

	if len(trace.Visited) != 2 {
		t.Fatalf("Expected 2 visited nodes, got %d: %v", len(trace.Visited), trace.Visited)
	}
	if trace.Visited[0] != "ctrl-a" || trace.Visited[1] != "ctrl-b" {
		t.Errorf("Expected discovery order [ctrl-a ctrl-b], got %v", trace.Visited)
	}

	if graph.callCount("ctrl-a") != 1 {
		t.Errorf("Expected ctrl-a to be read once, got %d", graph.callCount("ctrl-a"))
	}
	if graph.callCount("ctrl-b") != 1 {
		t.Errorf("Expected ctrl-b to be read once, got %d", graph.callCount("ctrl-b"))
	}

	if len(trace.Evidence) != 1 {
		t.Fatalf("Expected exactly 1 evidence schema, got %d", len(trace.Evidence))
	}
	schema := trace.Evidence[0]
	if schema.EvidenceName != "LoginEvents" {
		t.Errorf("Expected schema LoginEvents, got %s", schema.EvidenceName)
	}
	for _, field := range []string{"user", "timestamp", "mfa_used"} {
		if !schema.HasField(field) {
			t.Errorf("Expected schema to carry field %q", field)
		}
	}

	if len(trace.Warnings) != 0 {
		t.Errorf("Expected no warnings for a bounded cycle, got %v", trace.Warnings)
	}
	if trace.RunID == "" {
		t.Error("Expected a run ID to be assigned")
	}
}

func TestTraverse_IsolatedStartNode(t *testing.T) {
	graph := &fakeGraph{}

	tr := New(graph, Options{})
	trace, err := tr.Traverse(context.Background(), "ctrl-alone")
	if err != nil {
		t.Fatalf("Expected empty traversal to succeed, got %v", err)
	}

	if len(trace.Visited) != 1 || trace.Visited[0] != "ctrl-alone" {
		t.Errorf("Expected only the start node visited, got %v", trace.Visited)
	}
	if len(trace.Evidence) != 0 {
		t.Errorf("Expected no evidence, got %d entries", len(trace.Evidence))
	}
	if len(trace.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", trace.Warnings)
	}
}

func TestTraverse_SharedEvidenceDeduplicated(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"root": {{ID: "left"}, {ID: "right"}},
		},
		evidence: map[string][]model.EvidenceConfig{
			"left":  {{ID: "ev-login", Name: "LoginEvents"}},
			"right": {{ID: "ev-login", Name: "LoginEvents"}},
		},
		schemas: map[string]*model.EvidenceSchema{
			"ev-login": loginEventsSchema(),
		},
	}

	tr := New(graph, Options{})
	trace, err := tr.Traverse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}

	if len(trace.Evidence) != 1 {
		t.Errorf("Expected shared evidence config to appear once, got %d", len(trace.Evidence))
	}
}

func TestTraverse_SchemaFailureContinues(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"root": {{ID: "child"}},
		},
		evidence: map[string][]model.EvidenceConfig{
			"root":  {{ID: "ev-broken", Name: "OrphanedConfig"}},
			"child": {{ID: "ev-login", Name: "LoginEvents"}},
		},
		schemas: map[string]*model.EvidenceSchema{
			"ev-login": loginEventsSchema(),
		},
		schemaErrs: map[string]error{
			"ev-broken": errors.New("schema node missing"),
		},
	}

	tr := New(graph, Options{})
	trace, err := tr.Traverse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Expected partial result, got error: %v", err)
	}

	if len(trace.Visited) != 2 {
		t.Errorf("Expected traversal to continue past the failure, visited %v", trace.Visited)
	}
	if len(trace.Evidence) != 1 || trace.Evidence[0].EvidenceID != "ev-login" {
		t.Errorf("Expected the resolvable schema to survive, got %+v", trace.Evidence)
	}

	if len(trace.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(trace.Warnings))
	}
	warn := trace.Warnings[0]
	if warn.Type != model.WarnSchemaResolution {
		t.Errorf("Expected %s warning, got %s", model.WarnSchemaResolution, warn.Type)
	}
	if warn.Data["evidence_id"] != "ev-broken" {
		t.Errorf("Expected warning to name the failing config, got %v", warn.Data)
	}
}

func TestTraverse_NilSchemaWarns(t *testing.T) {
	graph := &fakeGraph{
		evidence: map[string][]model.EvidenceConfig{
			"root": {{ID: "ev-ghost", Name: "GhostConfig"}},
		},
	}

	tr := New(graph, Options{})
	trace, err := tr.Traverse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}

	if len(trace.Evidence) != 0 {
		t.Errorf("Expected no evidence, got %d", len(trace.Evidence))
	}
	if len(trace.Warnings) != 1 || trace.Warnings[0].Type != model.WarnSchemaResolution {
		t.Errorf("Expected a schema resolution warning, got %v", trace.Warnings)
	}
}

func TestTraverse_DepthCeiling(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"n0": {{ID: "n1"}},
			"n1": {{ID: "n2"}},
			"n2": {{ID: "n3"}},
			"n3": {{ID: "n4"}},
		},
	}

	tr := New(graph, Options{MaxDepth: 2})
	trace, err := tr.Traverse(context.Background(), "n0")
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}

	if len(trace.Visited) != 3 {
		t.Fatalf("Expected depth ceiling to stop at 3 nodes, visited %v", trace.Visited)
	}
	if trace.Visited[2] != "n2" {
		t.Errorf("Expected deepest node n2, got %s", trace.Visited[2])
	}

	found := false
	for _, warn := range trace.Warnings {
		if warn.Type == model.WarnTraversalTruncated {
			found = true
		}
	}
	if !found {
		t.Error("Expected a truncation warning when the depth ceiling cuts the graph")
	}
}

func TestTraverse_NodeCeiling(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"hub": {{ID: "s1"}, {ID: "s2"}, {ID: "s3"}, {ID: "s4"}, {ID: "s5"}},
		},
	}

	tr := New(graph, Options{MaxNodes: 3})
	trace, err := tr.Traverse(context.Background(), "hub")
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}

	if len(trace.Visited) != 3 {
		t.Errorf("Expected node ceiling of 3, visited %v", trace.Visited)
	}

	found := false
	for _, warn := range trace.Warnings {
		if warn.Type == model.WarnTraversalTruncated {
			found = true
			if warn.Data["max_nodes"] != 3 {
				t.Errorf("Expected warning data to carry the ceiling, got %v", warn.Data)
			}
		}
	}
	if !found {
		t.Error("Expected a truncation warning when the node ceiling cuts the graph")
	}
}

func TestTraverse_ConcurrentLevelVisitsEachNodeOnce(t *testing.T) {
	links := map[string][]model.ControlConfig{}
	evidence := map[string][]model.EvidenceConfig{}
	schemas := map[string]*model.EvidenceSchema{}

	var fanout []model.ControlConfig
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("node-%02d", i)
		fanout = append(fanout, model.ControlConfig{ID: id})
		evID := fmt.Sprintf("ev-%02d", i)
		evidence[id] = []model.EvidenceConfig{{ID: evID, Name: "Evidence " + id}}
		schemas[evID] = &model.EvidenceSchema{
			EvidenceID:   evID,
			EvidenceName: "Evidence " + id,
			Fields:       []model.SchemaField{{Name: "id", Type: model.FieldString}},
		}
	}
	links["root"] = fanout

	graph := &fakeGraph{links: links, evidence: evidence, schemas: schemas}

	tr := New(graph, Options{Workers: 8})
	trace, err := tr.Traverse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Traverse failed: %v", err)
	}

	if len(trace.Visited) != 41 {
		t.Fatalf("Expected 41 visited nodes, got %d", len(trace.Visited))
	}
	for id, count := range graph.linkCalls {
		if count != 1 {
			t.Errorf("Node %s read %d times, expected exactly once", id, count)
		}
	}
	if len(trace.Evidence) != 40 {
		t.Errorf("Expected 40 distinct schemas, got %d", len(trace.Evidence))
	}
}

func TestTraverse_DiscoveryOrderIsReproducible(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"root": {{ID: "n3"}, {ID: "n1"}, {ID: "n2"}},
			"n1":   {{ID: "n4"}},
		},
		evidence: map[string][]model.EvidenceConfig{
			"n3": {{ID: "ev-3", Name: "ThirdParty"}},
			"n1": {{ID: "ev-1", Name: "FirstParty"}},
		},
		schemas: map[string]*model.EvidenceSchema{
			"ev-3": {EvidenceID: "ev-3", EvidenceName: "ThirdParty"},
			"ev-1": {EvidenceID: "ev-1", EvidenceName: "FirstParty"},
		},
	}

	expected := []string{"root", "n3", "n1", "n2", "n4"}

	for run := 0; run < 5; run++ {
		tr := New(graph, Options{Workers: 4})
		trace, err := tr.Traverse(context.Background(), "root")
		if err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}

		if len(trace.Visited) != len(expected) {
			t.Fatalf("Run %d: expected %d nodes, got %v", run, len(expected), trace.Visited)
		}
		for i, id := range expected {
			if trace.Visited[i] != id {
				t.Fatalf("Run %d: expected order %v, got %v", run, expected, trace.Visited)
			}
		}

		if len(trace.Evidence) != 2 || trace.Evidence[0].EvidenceID != "ev-3" || trace.Evidence[1].EvidenceID != "ev-1" {
			t.Errorf("Run %d: expected evidence order [ev-3 ev-1], got %+v", run, trace.Evidence)
		}
	}
}

func TestTraverse_SchemaCacheSkipsStore(t *testing.T) {
	graph := &fakeGraph{
		evidence: map[string][]model.EvidenceConfig{
			"root": {{ID: "ev-login", Name: "LoginEvents"}},
		},
		schemas: map[string]*model.EvidenceSchema{
			"ev-login": loginEventsSchema(),
		},
	}

	store := &mapCache{}
	tr := New(graph, Options{Cache: store})

	if _, err := tr.Traverse(context.Background(), "root"); err != nil {
		t.Fatalf("First traversal failed: %v", err)
	}
	if atomic.LoadInt32(&graph.schemaCalls) != 1 {
		t.Fatalf("Expected 1 store resolution, got %d", graph.schemaCalls)
	}

	trace, err := tr.Traverse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Second traversal failed: %v", err)
	}
	if atomic.LoadInt32(&graph.schemaCalls) != 1 {
		t.Errorf("Expected cached schema to skip the store, got %d resolutions", graph.schemaCalls)
	}
	if len(trace.Evidence) != 1 || len(trace.Evidence[0].Fields) != 3 {
		t.Errorf("Expected cached schema to round-trip intact, got %+v", trace.Evidence)
	}
}

func TestTraverse_StartReadErrorAborts(t *testing.T) {
	graph := &fakeGraph{
		linkErrs: map[string]error{"bad": errors.New("connection refused")},
	}

	tr := New(graph, Options{})
	_, err := tr.Traverse(context.Background(), "bad")
	if err == nil {
		t.Fatal("Expected an unreadable start node to surface as an error")
	}
}

func TestTraverse_ReadFailureSkipsBranch(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"root": {{ID: "good"}, {ID: "bad"}},
			"good": {{ID: "leaf"}},
			"bad":  {{ID: "orphan"}},
		},
		linkErrs: map[string]error{
			"bad": errors.New("connection reset"),
		},
		evidence: map[string][]model.EvidenceConfig{
			"good": {{ID: "ev-login", Name: "LoginEvents"}},
		},
		schemas: map[string]*model.EvidenceSchema{
			"ev-login": loginEventsSchema(),
		},
	}

	tr := New(graph, Options{})
	trace, err := tr.Traverse(context.Background(), "root")
	if err != nil {
		t.Fatalf("Expected an unreadable branch to degrade, got %v", err)
	}

	visitedLeaf := false
	for _, id := range trace.Visited {
		if id == "orphan" {
			t.Errorf("Expected no expansion behind the unreadable node, visited %v", trace.Visited)
		}
		if id == "leaf" {
			visitedLeaf = true
		}
	}
	if !visitedLeaf {
		t.Errorf("Expected the sibling branch to complete, visited %v", trace.Visited)
	}
	if len(trace.Evidence) != 1 || trace.Evidence[0].EvidenceID != "ev-login" {
		t.Errorf("Expected sibling evidence to survive, got %+v", trace.Evidence)
	}

	found := false
	for _, warn := range trace.Warnings {
		if warn.Type == model.WarnGraphRead {
			found = true
			if warn.Data["control_id"] != "bad" {
				t.Errorf("Expected warning to name the unreadable node, got %v", warn.Data)
			}
		}
	}
	if !found {
		t.Fatalf("Expected a graph read warning, got %v", trace.Warnings)
	}
}

func TestTraverse_CancelledContextAborts(t *testing.T) {
	graph := &fakeGraph{
		links: map[string][]model.ControlConfig{
			"root": {{ID: "child"}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(graph, Options{})
	if _, err := tr.Traverse(ctx, "root"); err == nil {
		t.Fatal("Expected a cancelled context to abort the traversal")
	}
}
