package model

// Control is one node in an Assessment tree. Aliases are dotted numeric
// paths assigned depth-first ("1", "1.1", "1.2"); a control is a leaf iff it
// has no children.
type Control struct {
	Alias       string     `yaml:"alias" json:"alias"`                                 // Dotted numeric path, unique within the assessment
	Displayable string     `yaml:"displayable" json:"displayable"`                     // Human label, normally equal to the alias
	Name        string     `yaml:"name" json:"name"`                                   // Requirement text or synthesized group label
	Description string     `yaml:"description,omitempty" json:"description,omitempty"` // Optional longer description
	IsLeaf      bool       `yaml:"isLeaf" json:"isLeaf"`                               // True iff Controls is empty
	Controls    []*Control `yaml:"planControls,omitempty" json:"planControls,omitempty"`
}

// Walk visits the control and every descendant depth-first, left to right.
func (c *Control) Walk(fn func(*Control)) {
	if c == nil {
		return
	}
	fn(c)
	for _, child := range c.Controls {
		child.Walk(fn)
	}
}

// Assessment is the root container compiled from a single policy document
type Assessment struct {
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	CategoryName string     `json:"categoryName"` // Groups similar assessments; required
	Controls     []*Control `json:"planControls"` // Ordered root controls
}

// Walk visits every control in the assessment depth-first, left to right.
func (a *Assessment) Walk(fn func(*Control)) {
	for _, c := range a.Controls {
		c.Walk(fn)
	}
}

// Leaves returns every leaf control in depth-first order.
func (a *Assessment) Leaves() []*Control {
	var leaves []*Control
	a.Walk(func(c *Control) {
		if c.IsLeaf {
			leaves = append(leaves, c)
		}
	})
	return leaves
}

// FindByAlias returns the control with the given alias, or nil.
func (a *Assessment) FindByAlias(alias string) *Control {
	var found *Control
	a.Walk(func(c *Control) {
		if found == nil && c.Alias == alias {
			found = c
		}
	})
	return found
}
