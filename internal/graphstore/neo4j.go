package graphstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/accordhq/accord/internal/model"
)

// Store reads control links, evidence links, and schemas from the live
// graph. Every read runs in its own read-mode session and is rate limited,
// since traversal levels call concurrently.
type Store struct {
	client  *Client
	limiter *rate.Limiter
}

// NewStore creates a graph reader over the client. ratePerSecond <= 0
// disables rate limiting.
func NewStore(client *Client, ratePerSecond float64) *Store {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		burst := int(ratePerSecond)
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
	return &Store{client: client, limiter: limiter}
}

// ControlLinks returns the control configs directly linked from the node,
// ordered by id for reproducible discovery.
func (s *Store) ControlLinks(ctx context.Context, id string) ([]model.ControlConfig, error) {
	cypher := `MATCH (c:ControlConfig {id: $id})-[:CONTROL_LINKED]->(linked:ControlConfig)
RETURN linked.id AS id, linked.name AS name
ORDER BY linked.id`

	records, err := s.read(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("control links for %s: %w", id, err)
	}

	var links []model.ControlConfig
	for _, rec := range records {
		link := model.ControlConfig{
			ID:   stringValue(rec, "id"),
			Name: stringValue(rec, "name"),
		}
		if link.ID != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

// EvidenceLinks returns the evidence configs attached to the node, ordered
// by id.
func (s *Store) EvidenceLinks(ctx context.Context, id string) ([]model.EvidenceConfig, error) {
	cypher := `MATCH (c:ControlConfig {id: $id})-[:HAS_EVIDENCE]->(e:EvidenceConfig)
RETURN e.id AS id, e.name AS name
ORDER BY e.id`

	records, err := s.read(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("evidence links for %s: %w", id, err)
	}

	var evidence []model.EvidenceConfig
	for _, rec := range records {
		ev := model.EvidenceConfig{
			ID:   stringValue(rec, "id"),
			Name: stringValue(rec, "name"),
		}
		if ev.ID != "" {
			evidence = append(evidence, ev)
		}
	}
	return evidence, nil
}

// Schema resolves the evidence config's field list from its fields_json
// property. A missing node or empty field list resolves to nil, which the
// traverser reports as a per-branch warning.
func (s *Store) Schema(ctx context.Context, evidenceID string) (*model.EvidenceSchema, error) {
	cypher := `MATCH (e:EvidenceConfig {id: $id})
RETURN e.name AS name, e.fields_json AS fields_json
LIMIT 1`

	records, err := s.read(ctx, cypher, map[string]any{"id": evidenceID})
	if err != nil {
		return nil, fmt.Errorf("schema for %s: %w", evidenceID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rawFields := stringValue(records[0], "fields_json")
	if rawFields == "" {
		return nil, nil
	}

	var parsed []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(rawFields), &parsed); err != nil {
		return nil, fmt.Errorf("schema for %s: decode fields_json: %w", evidenceID, err)
	}
	if len(parsed) == 0 {
		return nil, nil
	}

	schema := &model.EvidenceSchema{
		EvidenceID:   evidenceID,
		EvidenceName: stringValue(records[0], "name"),
	}
	for _, f := range parsed {
		schema.Fields = append(schema.Fields, model.SchemaField{
			Name: f.Name,
			Type: model.NormalizeFieldType(f.Type),
		})
	}
	return schema, nil
}

// read runs one read transaction and collects its records
func (s *Store) read(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	session := s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var records []*neo4j.Record
		for res.Next(ctx) {
			records = append(records, res.Record())
		}
		return records, res.Err()
	})
	if err != nil {
		return nil, err
	}
	records, _ := out.([]*neo4j.Record)
	return records, nil
}

func stringValue(rec *neo4j.Record, key string) string {
	val, ok := rec.Get(key)
	if !ok || val == nil {
		return ""
	}
	s, _ := val.(string)
	return s
}
