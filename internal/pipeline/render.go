package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/accordhq/accord/internal/model"
)

// Renderer writes compiled documents and reports. Paths equal to "" or "-"
// write to stdout.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderDocumentYAML writes the assessment document as YAML
func (r *Renderer) RenderDocumentYAML(doc *model.Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return writeOut(path, data)
}

// RenderJSON writes any report value as indented JSON
func (r *Renderer) RenderJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeOut(path, append(data, '\n'))
}

// RenderTraceMarkdown writes the control documentation note for a trace:
// evidence sources, both queries, and their outputs.
func (r *Renderer) RenderTraceMarkdown(report *model.TraceReport, path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Control %s SQL Automation Documentation\n\n", report.Start)

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "Trace %s visited %d linked controls and resolved %d evidence sources.\n\n",
		report.RunID, len(report.Visited), len(report.Evidence))

	fmt.Fprintf(&b, "## Assessment Context\nControl ID: %s\nTraced: %s\n\n",
		report.Start, report.TracedAt.Format(time.RFC3339))

	if len(report.Evidence) > 0 {
		b.WriteString("## Evidence Sources\n")
		for i, schema := range report.Evidence {
			fmt.Fprintf(&b, "%d. %s - %d fields\n", i+1, schema.EvidenceName, len(schema.Fields))
		}
		b.WriteString("\n")
	}

	if report.Selection != "" {
		b.WriteString("## Query 1: Operational Evidence\n")
		b.WriteString("Logic: Filters control assets and normalizes evidence.\n\n")
		fmt.Fprintf(&b, "```sql\n%s\n```\n\n", report.Selection)
	}

	if report.Summary != "" {
		b.WriteString("## Query 2: Compliance Summary\n")
		b.WriteString("Logic: Aggregates metrics and determines compliance.\n\n")
		fmt.Fprintf(&b, "```sql\n%s\n```\n\n", report.Summary)
	}

	b.WriteString("## Outputs\n")
	b.WriteString("- Operational evidence: rows selected for review\n")
	b.WriteString("- Compliance summary: aggregated status per control scope\n")

	if len(report.SampleRows) > 0 {
		b.WriteString("\n## Sample Rows\n")
		data, err := json.MarshalIndent(report.SampleRows, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "```json\n%s\n```\n", data)
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n## Warnings\n")
		for _, warn := range report.Warnings {
			fmt.Fprintf(&b, "- [%s] %s\n", warn.Type, warn.Description)
		}
	}

	if r.includeFooter {
		fmt.Fprintf(&b, "\n---\n_Generated by accord on %s_\n", report.TracedAt.Format("2006-01-02"))
	}

	return writeOut(path, []byte(b.String()))
}

// CompileSummary prints a short human summary of a compile run
func (r *Renderer) CompileSummary(w io.Writer, report *model.CompileReport) {
	fmt.Fprintf(w, "Source:       %s\n", report.Source)
	fmt.Fprintf(w, "Requirements: %d\n", len(report.Requirements))
	if report.Document != nil {
		fmt.Fprintf(w, "Assessment:   %s (%s)\n", report.Document.Metadata.Name, report.Document.Metadata.CategoryName)
		fmt.Fprintf(w, "Controls:     %d root, %d leaves\n",
			len(report.Document.Spec.PlanControls), len(report.Document.Assessment().Leaves()))
	}
	if report.Outline != nil && report.Outline.Enabled {
		applied := "not applied"
		if report.Outline.Applied {
			applied = "applied"
		}
		fmt.Fprintf(w, "Assist:       %s/%s (%s)\n", report.Outline.Provider, report.Outline.Model, applied)
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "Warning:      [%s] %s\n", warn.Type, warn.Description)
	}
}

// TraceSummary prints a short human summary of a trace run
func (r *Renderer) TraceSummary(w io.Writer, report *model.TraceReport) {
	fmt.Fprintf(w, "Run:      %s\n", report.RunID)
	fmt.Fprintf(w, "Start:    %s\n", report.Start)
	fmt.Fprintf(w, "Visited:  %d controls\n", len(report.Visited))
	fmt.Fprintf(w, "Evidence: %d schemas\n", len(report.Evidence))
	if report.Selection != "" {
		fmt.Fprintf(w, "\n-- Query 1: operational evidence\n%s\n", report.Selection)
	}
	if report.Summary != "" {
		fmt.Fprintf(w, "\n-- Query 2: compliance summary\n%s\n", report.Summary)
	}
	if len(report.SampleRows) > 0 {
		fmt.Fprintf(w, "\nSample:   %d rows\n", len(report.SampleRows))
	}
	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "Warning:  [%s] %s\n", warn.Type, warn.Description)
	}
}

// LoadDocument reads an assessment document YAML from disk
func LoadDocument(path string) (*model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc model.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc.Kind != model.KindAssessment {
		return nil, fmt.Errorf("unexpected document kind %q (want %s)", doc.Kind, model.KindAssessment)
	}
	return &doc, nil
}

func writeOut(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
