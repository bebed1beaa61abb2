package hierarchy

import (
	"strconv"

	"github.com/accordhq/accord/internal/model"
)

// ReassignAliases rebuilds every alias in a single depth-first pass: root
// siblings are "1","2",...; children extend the parent alias with a dot and a
// 1-based ordinal. IsLeaf is recomputed from the children. Always called
// wholesale after a build or a reorder; aliases are never patched in place.
func ReassignAliases(a *model.Assessment) {
	for i, c := range a.Controls {
		assignAlias(c, strconv.Itoa(i+1))
	}
}

func assignAlias(c *model.Control, alias string) {
	// Displayable tracks the alias unless deliberately customized
	if c.Displayable == "" || c.Displayable == c.Alias {
		c.Displayable = alias
	}
	c.Alias = alias
	c.IsLeaf = len(c.Controls) == 0

	for i, child := range c.Controls {
		assignAlias(child, alias+"."+strconv.Itoa(i+1))
	}
}
