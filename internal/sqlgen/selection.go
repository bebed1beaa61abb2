package sqlgen

import (
	"fmt"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// Selection builds the operational evidence query: the full column set of
// every implicated evidence table, scoped by the assessment and control
// filters. With multiple tables the shape is a pure structural decision:
// union-compatible schemas are unioned, schemas sharing a typed key are
// joined on it, and anything else becomes one statement per table.
func (s *Synthesizer) Selection(schemas []model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext) (string, []model.Warning, error) {
	if len(schemas) == 0 {
		return "", nil, ErrNoEvidence
	}

	filters := append(append([]model.Filter{}, assessment.Filters...), control.Filters...)
	if err := validateFields(schemas, filterKeys(filters)); err != nil {
		return "", nil, err
	}

	if len(schemas) == 1 {
		return selectionSingle(&schemas[0], filters), nil, nil
	}
	if unionCompatible(schemas) {
		return selectionUnion(schemas, filters), nil, nil
	}
	if key, ok := joinKey(schemas, control.GroupBy); ok {
		return selectionJoin(schemas, filters, key), nil, nil
	}
	return selectionSplit(schemas, filters), []model.Warning{splitWarning(schemas)}, nil
}

func selectionSingle(schema *model.EvidenceSchema, filters []model.Filter) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(columnList(schema.FieldNames(), ""))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(schema.EvidenceName))
	if preds := scopedPredicates(schema, filters); len(preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(andJoin(preds))
	}
	return b.String()
}

// selectionUnion stacks identically shaped tables. Column order follows the
// first schema so every branch lines up.
func selectionUnion(schemas []model.EvidenceSchema, filters []model.Filter) string {
	columns := schemas[0].FieldNames()
	branches := make([]string, 0, len(schemas))
	for i := range schemas {
		var b strings.Builder
		b.WriteString("SELECT ")
		b.WriteString(columnList(columns, ""))
		b.WriteString(" FROM ")
		b.WriteString(quoteIdent(schemas[i].EvidenceName))
		if preds := scopedPredicates(&schemas[i], filters); len(preds) > 0 {
			b.WriteString(" WHERE ")
			b.WriteString(andJoin(preds))
		}
		branches = append(branches, b.String())
	}
	return strings.Join(branches, " UNION ALL ")
}

// selectionJoin joins all tables on the shared key. The key column appears
// once, from the first table; duplicated non-key names are aliased by their
// table.
func selectionJoin(schemas []model.EvidenceSchema, filters []model.Filter, key string) string {
	aliases := make([]string, len(schemas))
	for i := range schemas {
		aliases[i] = fmt.Sprintf("e%d", i)
	}

	var cols []string
	seen := make(map[string]bool)
	for i := range schemas {
		for _, field := range schemas[i].Fields {
			if i > 0 && field.Name == key {
				continue
			}
			ref := aliases[i] + "." + quoteIdent(field.Name)
			if seen[field.Name] {
				cols = append(cols, ref+" AS "+quoteIdent(columnAlias(schemas[i].EvidenceName, field.Name)))
				continue
			}
			seen[field.Name] = true
			cols = append(cols, ref)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(schemas[0].EvidenceName))
	b.WriteString(" AS ")
	b.WriteString(aliases[0])
	for i := 1; i < len(schemas); i++ {
		b.WriteString(" JOIN ")
		b.WriteString(quoteIdent(schemas[i].EvidenceName))
		b.WriteString(" AS ")
		b.WriteString(aliases[i])
		b.WriteString(" ON ")
		b.WriteString(aliases[0] + "." + quoteIdent(key))
		b.WriteString(" = ")
		b.WriteString(aliases[i] + "." + quoteIdent(key))
	}
	if preds := qualifiedPredicates(schemas, aliases, filters); len(preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(andJoin(preds))
	}
	return b.String()
}

// selectionSplit emits one statement per table. Each statement carries only
// the filters its table can evaluate.
func selectionSplit(schemas []model.EvidenceSchema, filters []model.Filter) string {
	statements := make([]string, 0, len(schemas))
	for i := range schemas {
		statements = append(statements, selectionSingle(&schemas[i], filters))
	}
	return strings.Join(statements, ";\n")
}

// SampleQuery builds the plain preview statement run against a single
// evidence table. Empty fields select everything.
func SampleQuery(table string, fields []string) string {
	cols := "*"
	if len(fields) > 0 {
		cols = columnList(fields, "")
	}
	return fmt.Sprintf("SELECT %s FROM %s", cols, quoteIdent(table))
}
