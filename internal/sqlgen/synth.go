package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// ErrNoEvidence is returned when synthesis runs over an empty schema set
var ErrNoEvidence = errors.New("no evidence schemas to build queries from")

// UndefinedFieldError reports a context field that none of the evidence
// tables under query defines. Raised at synthesis time, never deferred to
// SQL execution.
type UndefinedFieldError struct {
	Field  string
	Tables []string
}

func (e *UndefinedFieldError) Error() string {
	return fmt.Sprintf("field %q is not defined by evidence tables %s", e.Field, strings.Join(e.Tables, ", "))
}

// Artifacts holds the two SQL statements produced for a control. They are
// reviewed and executed independently and are never concatenated.
type Artifacts struct {
	Selection string          `json:"selection,omitempty"` // Operational evidence query
	Summary   string          `json:"summary,omitempty"`   // Compliance summary query
	Warnings  []model.Warning `json:"warnings,omitempty"`
}

// Synthesizer builds SQL artifacts from resolved evidence schemas and the
// contexts scoping a control. Table names come verbatim from the evidence
// config names.
type Synthesizer struct{}

func New() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize builds both artifacts. When one fails field validation the
// other is still produced; the first failure is reported alongside whatever
// succeeded.
func (s *Synthesizer) Synthesize(schemas []model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext) (*Artifacts, error) {
	if len(schemas) == 0 {
		return nil, ErrNoEvidence
	}

	art := &Artifacts{}

	selection, selWarns, selErr := s.Selection(schemas, control, assessment)
	if selErr == nil {
		art.Selection = selection
		art.Warnings = mergeWarnings(art.Warnings, selWarns)
	}

	summary, sumWarns, sumErr := s.Summary(schemas, control, assessment)
	if sumErr == nil {
		art.Summary = summary
		art.Warnings = mergeWarnings(art.Warnings, sumWarns)
	}

	if selErr != nil {
		return art, selErr
	}
	return art, sumErr
}

// mergeWarnings appends src onto dst, dropping duplicates produced when both
// artifacts fall back the same way.
func mergeWarnings(dst, src []model.Warning) []model.Warning {
	for _, warn := range src {
		dup := false
		for _, have := range dst {
			if have.Type == warn.Type && have.Description == warn.Description {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, warn)
		}
	}
	return dst
}

func tableNames(schemas []model.EvidenceSchema) []string {
	names := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		names = append(names, schema.EvidenceName)
	}
	return names
}

// fieldOwner returns the index of the first schema defining the field
func fieldOwner(schemas []model.EvidenceSchema, field string) (int, bool) {
	for i := range schemas {
		if schemas[i].HasField(field) {
			return i, true
		}
	}
	return 0, false
}

// validateFields checks that every referenced field exists somewhere in the
// schema set.
func validateFields(schemas []model.EvidenceSchema, fields []string) error {
	for _, field := range fields {
		if _, ok := fieldOwner(schemas, field); !ok {
			return &UndefinedFieldError{Field: field, Tables: tableNames(schemas)}
		}
	}
	return nil
}

// unionCompatible reports whether all schemas expose the same field names
// and types, ignoring field order.
func unionCompatible(schemas []model.EvidenceSchema) bool {
	first := schemas[0]
	for i := 1; i < len(schemas); i++ {
		if len(schemas[i].Fields) != len(first.Fields) {
			return false
		}
		for _, field := range first.Fields {
			got, ok := schemas[i].FieldType(field.Name)
			if !ok || got != field.Type {
				return false
			}
		}
	}
	return true
}

// joinKey finds a field defined in every schema with a single type. Group-by
// keys are preferred as the join key, then first-schema field order. The key
// is never fabricated: absence means the schemas cannot be joined.
func joinKey(schemas []model.EvidenceSchema, preferred []string) (string, bool) {
	sharedWithOneType := func(field string) bool {
		want, ok := schemas[0].FieldType(field)
		if !ok {
			return false
		}
		for i := 1; i < len(schemas); i++ {
			got, ok := schemas[i].FieldType(field)
			if !ok || got != want {
				return false
			}
		}
		return true
	}

	for _, key := range preferred {
		if sharedWithOneType(key) {
			return key, true
		}
	}
	for _, field := range schemas[0].Fields {
		if sharedWithOneType(field.Name) {
			return field.Name, true
		}
	}
	return "", false
}

func splitWarning(schemas []model.EvidenceSchema) model.Warning {
	return model.Warning{
		Type:        model.WarnSelectionSplit,
		Severity:    model.SeverityInfo,
		Description: "evidence tables share no join key and are not union-compatible; emitting one statement per table",
		Data: map[string]interface{}{
			"tables": tableNames(schemas),
		},
	}
}

func filterKeys(filters []model.Filter) []string {
	keys := make([]string, 0, len(filters))
	for _, f := range filters {
		keys = append(keys, f.Key)
	}
	return keys
}
