package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// Provider defines the interface for outline assist providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ProposeOutline asks the model to regroup extracted requirements into
	// an assessment outline. The model only regroups; it never rewrites or
	// invents requirements.
	ProposeOutline(ctx context.Context, req OutlineRequest) (*OutlineResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// OutlineRequest contains the input for an outline proposal
type OutlineRequest struct {
	// Requirements are the extracted requirement texts, in extraction order.
	// Proposals refer to them by 1-based position and may never alter them.
	Requirements []string

	// CategoryHint is an optional category the caller already derived
	CategoryHint string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// OutlineResponse contains the parsed proposal
type OutlineResponse struct {
	// Outline is the validated grouping proposal, member indexes 0-based
	Outline *model.Outline

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds outline assist provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictOutline rejects a whole proposal on any invalid group instead
	// of silently dropping the bad ones
	StrictOutline bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:      "", // Disabled by default
		Model:         "",
		Timeout:       30,
		StrictOutline: true,
		MaxTokens:     1500,
	}
}

const outlineSystemPrompt = "You organize compliance requirements into an assessment outline. You only regroup existing requirements; you never rewrite, merge, or invent them."

// BuildOutlinePrompt constructs the default proposal prompt. Requirements
// are numbered so the model can only refer to them by position.
func BuildOutlinePrompt(requirements []string, categoryHint string) string {
	var b strings.Builder
	b.WriteString("Group the numbered requirements below into an assessment outline.\n\nSTRICT RULES:\n")
	b.WriteString("1. Reply with ONLY a JSON object, no prose, no code fences.\n")
	b.WriteString("2. Shape: {\"category\": \"...\", \"groups\": [{\"label\": \"...\", \"members\": [1, 2]}]}\n")
	b.WriteString("3. Members are the 1-based requirement numbers. Never invent numbers.\n")
	b.WriteString("4. Each requirement number may appear in at most one group.\n")
	b.WriteString("5. Requirements you cannot group go in no group at all; do not force them.\n")
	b.WriteString("6. The category is a short reusable theme name (e.g. \"Access Management\"), not a restatement of the document title.\n")
	if categoryHint != "" {
		b.WriteString(fmt.Sprintf("7. A heuristic pass suggested the category %q; keep it unless the requirements clearly say otherwise.\n", categoryHint))
	}

	b.WriteString("\nRequirements:\n")
	for i, req := range requirements {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, req))
	}

	return b.String()
}

// parseOutlineReply extracts and validates the JSON proposal from a model
// reply. total is the number of requirements presented; member indexes are
// normalized to 0-based. In strict mode any invalid group rejects the whole
// proposal; otherwise invalid groups are dropped.
func parseOutlineReply(text string, total int, strict bool) (*model.Outline, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in assist reply")
	}

	var reply struct {
		Category string `json:"category"`
		Groups   []struct {
			Label   string `json:"label"`
			Members []int  `json:"members"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("decode assist reply: %w", err)
	}

	outline := &model.Outline{Category: strings.TrimSpace(reply.Category)}
	claimed := make(map[int]bool)

	for _, group := range reply.Groups {
		label := strings.TrimSpace(group.Label)
		members, err := normalizeMembers(group.Members, total, claimed)
		if err == nil && label == "" {
			err = fmt.Errorf("group has no label")
		}
		if err == nil && len(members) == 0 {
			err = fmt.Errorf("group has no members")
		}
		if err != nil {
			if strict {
				return nil, fmt.Errorf("assist proposal rejected: group %q: %v", group.Label, err)
			}
			continue
		}
		for _, m := range members {
			claimed[m] = true
		}
		outline.Groups = append(outline.Groups, model.OutlineGroup{Label: label, Members: members})
	}

	if len(outline.Groups) == 0 {
		return nil, fmt.Errorf("assist proposal contains no usable groups")
	}
	return outline, nil
}

// normalizeMembers converts 1-based reply indexes to 0-based, rejecting
// out-of-range and doubly claimed members.
func normalizeMembers(raw []int, total int, claimed map[int]bool) ([]int, error) {
	var members []int
	seen := make(map[int]bool)
	for _, m := range raw {
		idx := m - 1
		if idx < 0 || idx >= total {
			return nil, fmt.Errorf("member %d out of range", m)
		}
		if claimed[idx] || seen[idx] {
			return nil, fmt.Errorf("member %d claimed twice", m)
		}
		seen[idx] = true
		members = append(members, idx)
	}
	return members, nil
}

// extractJSON returns the outermost JSON object in the text. Models wrap
// replies in prose or code fences often enough that this cannot be skipped.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
