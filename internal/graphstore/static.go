package graphstore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/accordhq/accord/internal/model"
)

// StaticGraph is a file-backed graph for offline traces and tests. It
// implements the same reader operations as the live store; unknown ids are
// a normal empty case.
type StaticGraph struct {
	controls map[string]*staticControl
	schemas  map[string]*model.EvidenceSchema
}

type staticFile struct {
	Controls []staticControl `yaml:"controls"`
}

type staticControl struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name"`
	Links    []string         `yaml:"links"`
	Evidence []staticEvidence `yaml:"evidence"`
}

type staticEvidence struct {
	ID     string        `yaml:"id"`
	Name   string        `yaml:"name"`
	Schema []staticField `yaml:"schema"`
}

type staticField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadStatic reads a graph fixture file
func LoadStatic(path string) (*StaticGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph file: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic builds a static graph from YAML content.
func ParseStatic(data []byte) (*StaticGraph, error) {
	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse graph file: %w", err)
	}

	graph := &StaticGraph{
		controls: make(map[string]*staticControl),
		schemas:  make(map[string]*model.EvidenceSchema),
	}

	for i := range file.Controls {
		ctrl := &file.Controls[i]
		if ctrl.ID == "" {
			return nil, fmt.Errorf("parse graph file: control %d has no id", i)
		}
		if _, dup := graph.controls[ctrl.ID]; dup {
			return nil, fmt.Errorf("parse graph file: duplicate control id %q", ctrl.ID)
		}
		graph.controls[ctrl.ID] = ctrl

		for _, ev := range ctrl.Evidence {
			if ev.ID == "" || len(ev.Schema) == 0 {
				continue
			}
			schema := &model.EvidenceSchema{
				EvidenceID:   ev.ID,
				EvidenceName: ev.Name,
			}
			for _, f := range ev.Schema {
				schema.Fields = append(schema.Fields, model.SchemaField{
					Name: f.Name,
					Type: model.NormalizeFieldType(f.Type),
				})
			}
			graph.schemas[ev.ID] = schema
		}
	}

	return graph, nil
}

// ControlLinks returns linked controls in file order
func (g *StaticGraph) ControlLinks(ctx context.Context, id string) ([]model.ControlConfig, error) {
	ctrl, ok := g.controls[id]
	if !ok {
		return nil, nil
	}

	var links []model.ControlConfig
	for _, linkID := range ctrl.Links {
		link := model.ControlConfig{ID: linkID}
		if target, ok := g.controls[linkID]; ok {
			link.Name = target.Name
		}
		links = append(links, link)
	}
	return links, nil
}

// EvidenceLinks returns the node's evidence configs in file order
func (g *StaticGraph) EvidenceLinks(ctx context.Context, id string) ([]model.EvidenceConfig, error) {
	ctrl, ok := g.controls[id]
	if !ok {
		return nil, nil
	}

	var evidence []model.EvidenceConfig
	for _, ev := range ctrl.Evidence {
		if ev.ID == "" {
			continue
		}
		evidence = append(evidence, model.EvidenceConfig{ID: ev.ID, Name: ev.Name})
	}
	return evidence, nil
}

// Schema returns the inline schema declared for the evidence config, or nil
// when the fixture declares none.
func (g *StaticGraph) Schema(ctx context.Context, evidenceID string) (*model.EvidenceSchema, error) {
	return g.schemas[evidenceID], nil
}
