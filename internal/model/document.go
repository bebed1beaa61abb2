package model

import "github.com/google/uuid"

// Persisted document constants
const (
	APIVersion     = "assessments/v1"
	KindAssessment = "Assessment"
)

// Document is the persisted form of an Assessment. It is the sole artifact
// the compiler writes and the contract consumed by rule-attachment tooling.
type Document struct {
	APIVersion string       `yaml:"apiVersion" json:"apiVersion"`
	Kind       string       `yaml:"kind" json:"kind"`
	Metadata   Metadata     `yaml:"metadata" json:"metadata"`
	Spec       DocumentSpec `yaml:"spec" json:"spec"`
}

// Metadata identifies and categorizes the assessment
type Metadata struct {
	Name         string `yaml:"name" json:"name"`
	UID          string `yaml:"uid,omitempty" json:"uid,omitempty"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	CategoryName string `yaml:"categoryName" json:"categoryName"`
}

// DocumentSpec holds the ordered control tree
type DocumentSpec struct {
	PlanControls []*Control `yaml:"planControls" json:"planControls"`
}

// NewDocument wraps an assessment in the persisted document form,
// assigning a fresh uid.
func NewDocument(a *Assessment) *Document {
	return &Document{
		APIVersion: APIVersion,
		Kind:       KindAssessment,
		Metadata: Metadata{
			Name:         a.Name,
			UID:          uuid.NewString(),
			Description:  a.Description,
			CategoryName: a.CategoryName,
		},
		Spec: DocumentSpec{PlanControls: a.Controls},
	}
}

// Assessment reconstructs the in-memory assessment from a loaded document.
func (d *Document) Assessment() *Assessment {
	return &Assessment{
		Name:         d.Metadata.Name,
		Description:  d.Metadata.Description,
		CategoryName: d.Metadata.CategoryName,
		Controls:     d.Spec.PlanControls,
	}
}
