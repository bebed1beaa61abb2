package hierarchy

import (
	"fmt"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// AliasCollisionError reports two controls sharing one alias. This is a
// structural bug in the build and is fatal to the whole assessment.
type AliasCollisionError struct {
	Alias string
}

func (e *AliasCollisionError) Error() string {
	return fmt.Sprintf("alias collision: %q assigned to more than one control", e.Alias)
}

// Validate checks the structural invariants of a built assessment: required
// category, alias uniqueness, parent-prefix aliases, sibling display label
// uniqueness, and leaf consistency.
func Validate(a *model.Assessment) error {
	if strings.TrimSpace(a.CategoryName) == "" {
		return fmt.Errorf("assessment %q has no categoryName", a.Name)
	}

	seen := make(map[string]bool)

	var check func(parent *model.Control, siblings []*model.Control) error
	check = func(parent *model.Control, siblings []*model.Control) error {
		display := make(map[string]bool)

		for _, c := range siblings {
			if c.Alias == "" {
				return fmt.Errorf("control %q has no alias", c.Name)
			}
			if seen[c.Alias] {
				return &AliasCollisionError{Alias: c.Alias}
			}
			seen[c.Alias] = true

			if parent != nil && !strings.HasPrefix(c.Alias, parent.Alias+".") {
				return fmt.Errorf("alias %q does not extend parent alias %q", c.Alias, parent.Alias)
			}

			if c.Displayable != "" {
				if display[c.Displayable] {
					return fmt.Errorf("display label %q repeats among children of %q", c.Displayable, parentLabel(parent))
				}
				display[c.Displayable] = true
			}

			if c.IsLeaf != (len(c.Controls) == 0) {
				return fmt.Errorf("control %q: isLeaf=%v with %d children", c.Alias, c.IsLeaf, len(c.Controls))
			}

			if err := check(c, c.Controls); err != nil {
				return err
			}
		}
		return nil
	}

	return check(nil, a.Controls)
}

func parentLabel(c *model.Control) string {
	if c == nil {
		return "root"
	}
	return c.Alias
}
