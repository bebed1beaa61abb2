package llm

import (
	"context"
	"fmt"

	"github.com/accordhq/accord/internal/model"
)

// Assist coordinates outline proposals from the configured provider.
// The compliance semantics of a compiled document never depend on it:
// a failed or rejected proposal degrades to the heuristic grouping.
type Assist struct {
	provider Provider
	config   Config
}

// NewAssist creates an assist coordinator from configuration.
// An empty provider name yields a disabled coordinator, not an error.
func NewAssist(config Config) (*Assist, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Assist{
		provider: provider,
		config:   config,
	}, nil
}

// IsEnabled reports whether a provider is configured
func (a *Assist) IsEnabled() bool {
	return a != nil && a.provider != nil
}

// ProviderName returns the configured provider name, empty when disabled
func (a *Assist) ProviderName() string {
	if a == nil || a.provider == nil {
		return ""
	}
	return a.provider.Name()
}

// ProposeOutline asks the provider to group the requirements. Failures never
// abort document compilation: the outline comes back nil and the summary
// carries the warnings.
func (a *Assist) ProposeOutline(ctx context.Context, requirements []string, categoryHint string) (*model.Outline, *model.OutlineSummary) {
	if a == nil || a.provider == nil {
		return nil, nil
	}

	summary := &model.OutlineSummary{
		Enabled:  true,
		Provider: a.provider.Name(),
		Model:    a.config.Model,
	}

	if len(requirements) == 0 {
		summary.Warnings = append(summary.Warnings, "no requirements to group")
		return nil, summary
	}

	if !a.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("LLM provider %s is not available - check configuration", a.provider.Name()))
		return nil, summary
	}

	resp, err := a.provider.ProposeOutline(ctx, OutlineRequest{
		Requirements: requirements,
		CategoryHint: categoryHint,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("outline proposal failed: %v", err))
		return nil, summary
	}

	if resp.Model != "" {
		summary.Model = resp.Model
	}
	if resp.TokensUsed > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	summary.Applied = true

	return resp.Outline, summary
}
