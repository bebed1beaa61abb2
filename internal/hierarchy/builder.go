package hierarchy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// Builder assembles extracted requirements into an assessment tree
type Builder struct {
	themes []Theme
}

// NewBuilder creates a builder with the default theme table
func NewBuilder() *Builder {
	return &Builder{themes: DefaultThemes()}
}

// BuildOptions carries caller-supplied metadata and an optional grouping
// proposal. A proposal must already have passed ValidateOutline; invalid
// proposals are the caller's to reject.
type BuildOptions struct {
	Name        string
	Description string
	Category    string // Overrides the derived category when set
	Outline     *model.Outline
}

// Build assembles the requirement sequence into an Assessment. Requirements
// sharing a theme group form a synthesized parent control; the rest become
// root-level leaves. Aliases are assigned in a single depth-first pass over
// the finished shape, then the tree is validated.
func (b *Builder) Build(reqs []model.Requirement, opts BuildOptions) (*model.Assessment, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no requirements to build an assessment from")
	}

	groups, ungrouped := b.group(reqs, opts.Outline)

	category := opts.Category
	if category == "" {
		category = b.deriveCategory(reqs, opts.Outline)
	}

	a := &model.Assessment{
		Name:         opts.Name,
		Description:  opts.Description,
		CategoryName: category,
	}

	// Root order follows document order of each item's first requirement
	type rootItem struct {
		first   int
		control *model.Control
	}
	var roots []rootItem

	for _, g := range groups {
		if len(g.members) == 1 {
			// A group of one is no grouping; the requirement stands alone
			ungrouped = append(ungrouped, g.members[0])
			continue
		}
		parent := &model.Control{Name: g.label}
		for _, i := range g.members {
			parent.Controls = append(parent.Controls, leafControl(reqs[i]))
		}
		roots = append(roots, rootItem{first: g.members[0], control: parent})
	}

	for _, i := range ungrouped {
		roots = append(roots, rootItem{first: i, control: leafControl(reqs[i])})
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].first < roots[j].first })
	for _, r := range roots {
		a.Controls = append(a.Controls, r.control)
	}

	ReassignAliases(a)

	if err := Validate(a); err != nil {
		return nil, err
	}
	return a, nil
}

type buildGroup struct {
	label   string
	theme   string
	members []int
}

// group partitions requirement indexes into labeled groups plus the
// ungrouped remainder, preserving document order within each.
func (b *Builder) group(reqs []model.Requirement, outline *model.Outline) ([]buildGroup, []int) {
	if outline != nil {
		return groupFromOutline(reqs, outline)
	}

	byLabel := make(map[string]int)
	var groups []buildGroup
	var ungrouped []int

	for i, req := range reqs {
		theme, label, ok := b.classify(req.Text)
		if !ok {
			ungrouped = append(ungrouped, i)
			continue
		}
		gi, exists := byLabel[label]
		if !exists {
			gi = len(groups)
			byLabel[label] = gi
			groups = append(groups, buildGroup{label: label, theme: theme})
		}
		groups[gi].members = append(groups[gi].members, i)
	}

	return groups, ungrouped
}

func groupFromOutline(reqs []model.Requirement, outline *model.Outline) ([]buildGroup, []int) {
	claimed := make(map[int]bool)
	var groups []buildGroup

	for _, g := range outline.Groups {
		bg := buildGroup{label: g.Label}
		for _, i := range g.Members {
			bg.members = append(bg.members, i)
			claimed[i] = true
		}
		if len(bg.members) > 0 {
			groups = append(groups, bg)
		}
	}

	var ungrouped []int
	for i := range reqs {
		if !claimed[i] {
			ungrouped = append(ungrouped, i)
		}
	}
	return groups, ungrouped
}

// classify returns the first matching theme and group label in table order.
// First match wins; this is the documented tie-break for requirements that
// could plausibly belong to two groups.
func (b *Builder) classify(text string) (theme, label string, ok bool) {
	lower := strings.ToLower(text)
	for _, t := range b.themes {
		for _, g := range t.Groups {
			for _, kw := range g.Keywords {
				if strings.Contains(lower, kw) {
					return t.Name, g.Label, true
				}
			}
		}
	}
	return "", "", false
}

// deriveCategory picks the dominant theme across all requirements. Ties
// resolve to the earlier theme in table order; no theme at all falls back to
// DefaultCategory. An outline's category wins when it names one.
func (b *Builder) deriveCategory(reqs []model.Requirement, outline *model.Outline) string {
	if outline != nil && strings.TrimSpace(outline.Category) != "" {
		return strings.TrimSpace(outline.Category)
	}

	counts := make(map[string]int)
	for _, req := range reqs {
		if theme, _, ok := b.classify(req.Text); ok {
			counts[theme]++
		}
	}

	best := ""
	bestCount := 0
	for _, t := range b.themes {
		if counts[t.Name] > bestCount {
			best = t.Name
			bestCount = counts[t.Name]
		}
	}
	if best == "" {
		return DefaultCategory
	}
	return best
}

// ValidateOutline checks a grouping proposal against the requirement count:
// indexes in range, no index claimed twice, labels present.
func ValidateOutline(outline *model.Outline, requirementCount int) error {
	if outline == nil {
		return nil
	}
	claimed := make(map[int]bool)
	for _, g := range outline.Groups {
		if strings.TrimSpace(g.Label) == "" {
			return fmt.Errorf("outline group with empty label")
		}
		for _, i := range g.Members {
			if i < 0 || i >= requirementCount {
				return fmt.Errorf("outline member index %d out of range [0,%d)", i, requirementCount)
			}
			if claimed[i] {
				return fmt.Errorf("outline claims requirement %d in two groups", i)
			}
			claimed[i] = true
		}
	}
	return nil
}

func leafControl(req model.Requirement) *model.Control {
	return &model.Control{
		Name:        strings.TrimSuffix(req.Text, "."),
		Description: req.Source,
	}
}
