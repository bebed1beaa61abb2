package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/accordhq/accord/internal/extract"
	"github.com/accordhq/accord/internal/hierarchy"
	"github.com/accordhq/accord/internal/llm"
	"github.com/accordhq/accord/internal/model"
)

// Compiler turns one policy source into a compiled assessment document
type Compiler struct {
	loader    *Loader
	extractor *extract.RequirementExtractor
	builder   *hierarchy.Builder
	assist    *llm.Assist // Optional grouping assist (nil if disabled)
	config    *model.Config
}

// NewCompiler creates a compiler wired from configuration
func NewCompiler(cfg *model.Config) *Compiler {
	// Create the grouping assist if configured
	var assist *llm.Assist
	if cfg.LLM.Provider != "" {
		a, err := llm.NewAssist(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize LLM provider: %v\n", err)
		} else {
			assist = a
		}
	}

	return &Compiler{
		loader:    NewLoader(FetcherFromConfig(cfg.HTTP, cfg.Cache)),
		extractor: extract.NewRequirementExtractor(),
		builder:   hierarchy.NewBuilder(),
		assist:    assist,
		config:    cfg,
	}
}

// CompileOptions carries per-run metadata overrides
type CompileOptions struct {
	Name        string // Overrides the derived document name
	Description string
	Category    string // Forced category, also passed to the assist as a hint
}

// Compile compiles a source with default options. It satisfies the batch
// worker's job contract.
func (c *Compiler) Compile(ctx context.Context, source string) (*model.CompileReport, error) {
	return c.CompileWithOptions(ctx, source, CompileOptions{})
}

// CompileWithOptions runs the full compile: load, extract requirements,
// propose an outline when the assist is enabled, build the assessment tree,
// and wrap it in a document envelope.
func (c *Compiler) CompileWithOptions(ctx context.Context, source string, opts CompileOptions) (*model.CompileReport, error) {
	// 1. Load policy text
	loaded, err := c.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	// 2. Extract requirements, sniffing HTML sources
	var reqs []model.Requirement
	if extract.LooksLikeHTML(loaded.Text) {
		reqs, err = c.extractor.ExtractHTML(loaded.Text)
	} else {
		reqs, err = c.extractor.Extract(loaded.Text)
	}
	if err != nil {
		return nil, fmt.Errorf("extract requirements: %w", err)
	}

	report := &model.CompileReport{
		Source:       source,
		CompiledAt:   time.Now().UTC(),
		FetchMeta:    loaded.Meta,
		Requirements: reqs,
	}

	// 3. Ask the assist for an outline. The proposal shapes grouping only;
	// a rejected proposal leaves the heuristic grouping untouched.
	var outline *model.Outline
	if c.assist != nil && c.assist.IsEnabled() {
		texts := make([]string, len(reqs))
		for i, r := range reqs {
			texts[i] = r.Text
		}
		proposal, summary := c.assist.ProposeOutline(ctx, texts, opts.Category)
		report.Outline = summary

		if proposal != nil {
			if verr := hierarchy.ValidateOutline(proposal, len(reqs)); verr != nil {
				report.Warnings = append(report.Warnings, model.Warning{
					Type:        model.WarnOutlineRejected,
					Severity:    model.SeverityWarning,
					Description: fmt.Sprintf("Outline proposal rejected: %v", verr),
					Data:        map[string]interface{}{"groups": len(proposal.Groups)},
				})
				if summary != nil {
					summary.Applied = false
				}
			} else {
				outline = proposal
			}
		}
	}

	// 4. Build and validate the assessment tree
	name := opts.Name
	if name == "" {
		name = loaded.Name
	}
	assessment, err := c.builder.Build(reqs, hierarchy.BuildOptions{
		Name:        name,
		Description: opts.Description,
		Category:    opts.Category,
		Outline:     outline,
	})
	if err != nil {
		return nil, fmt.Errorf("build assessment: %w", err)
	}

	// 5. Wrap in the document envelope
	report.Document = model.NewDocument(assessment)

	return report, nil
}
