package sqlgen

import (
	"fmt"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

// Summary builds the compliance summary query: one row per control scope
// with total and compliant record counts and a derived status column. The
// status values match the rollup evaluator's states, so summary output can
// be recorded against leaf controls directly. Assessment filters scope the
// WHERE clause; control filters are measured inside the aggregates.
func (s *Synthesizer) Summary(schemas []model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext) (string, []model.Warning, error) {
	if len(schemas) == 0 {
		return "", nil, ErrNoEvidence
	}

	groupKeys := control.GroupBy
	if len(groupKeys) == 0 && len(control.Filters) > 0 {
		groupKeys = []string{control.Filters[0].Key}
	}

	refs := append(append(filterKeys(assessment.Filters), filterKeys(control.Filters)...), groupKeys...)
	if err := validateFields(schemas, refs); err != nil {
		return "", nil, err
	}

	if len(schemas) == 1 {
		return summaryOver(quoteIdent(schemas[0].EvidenceName), &schemas[0], control, assessment, groupKeys), nil, nil
	}
	if unionCompatible(schemas) {
		return summaryUnion(schemas, control, assessment, groupKeys), nil, nil
	}
	if key, ok := joinKey(schemas, groupKeys); ok {
		return summaryJoin(schemas, control, assessment, groupKeys, key), nil, nil
	}
	return summarySplit(schemas, control, assessment, groupKeys), []model.Warning{splitWarning(schemas)}, nil
}

// summaryOver aggregates a single table or table-shaped source. Group keys
// not defined by the schema are dropped from this scope.
func summaryOver(from string, schema *model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext, groupKeys []string) string {
	var groupCols []string
	for _, key := range groupKeys {
		if schema.HasField(key) {
			groupCols = append(groupCols, quoteIdent(key))
		}
	}
	return renderSummary(
		from,
		scopedPredicates(schema, assessment.Filters),
		scopedPredicates(schema, control.Filters),
		groupCols,
	)
}

// summaryUnion aggregates over the stacked union of identically shaped
// tables, wrapped as a derived table so grouping applies across all of them.
func summaryUnion(schemas []model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext, groupKeys []string) string {
	branches := make([]string, 0, len(schemas))
	columns := schemas[0].FieldNames()
	for i := range schemas {
		branches = append(branches, "SELECT "+columnList(columns, "")+" FROM "+quoteIdent(schemas[i].EvidenceName))
	}
	from := "(" + strings.Join(branches, " UNION ALL ") + ") AS evidence"
	return summaryOver(from, &schemas[0], control, assessment, groupKeys)
}

// summaryJoin aggregates over the joined table set, with every reference
// qualified by the alias of the table owning it.
func summaryJoin(schemas []model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext, groupKeys []string, key string) string {
	aliases := make([]string, len(schemas))
	for i := range schemas {
		aliases[i] = fmt.Sprintf("e%d", i)
	}

	var from strings.Builder
	from.WriteString(quoteIdent(schemas[0].EvidenceName))
	from.WriteString(" AS ")
	from.WriteString(aliases[0])
	for i := 1; i < len(schemas); i++ {
		from.WriteString(" JOIN ")
		from.WriteString(quoteIdent(schemas[i].EvidenceName))
		from.WriteString(" AS ")
		from.WriteString(aliases[i])
		from.WriteString(" ON ")
		from.WriteString(aliases[0] + "." + quoteIdent(key))
		from.WriteString(" = ")
		from.WriteString(aliases[i] + "." + quoteIdent(key))
	}

	var groupCols []string
	for _, gk := range groupKeys {
		if owner, ok := fieldOwner(schemas, gk); ok {
			groupCols = append(groupCols, aliases[owner]+"."+quoteIdent(gk))
		}
	}

	return renderSummary(
		from.String(),
		qualifiedPredicates(schemas, aliases, assessment.Filters),
		qualifiedPredicates(schemas, aliases, control.Filters),
		groupCols,
	)
}

// summarySplit emits one summary per table when no combined shape exists.
func summarySplit(schemas []model.EvidenceSchema, control model.ControlContext, assessment model.AssessmentContext, groupKeys []string) string {
	statements := make([]string, 0, len(schemas))
	for i := range schemas {
		statements = append(statements, summaryOver(quoteIdent(schemas[i].EvidenceName), &schemas[i], control, assessment, groupKeys))
	}
	return strings.Join(statements, ";\n")
}

// renderSummary assembles the aggregate statement. With no control
// predicates every scoped row counts as compliant.
func renderSummary(from string, wherePreds, controlPreds, groupCols []string) string {
	compliant := "COUNT(*)"
	if len(controlPreds) > 0 {
		compliant = "SUM(CASE WHEN " + andJoin(controlPreds) + " THEN 1 ELSE 0 END)"
	}

	status := fmt.Sprintf(
		"CASE WHEN COUNT(*) = 0 THEN '%s' WHEN %s = COUNT(*) THEN '%s' ELSE '%s' END AS compliance_status",
		model.StateUnevaluated, compliant, model.StateCompliant, model.StateNonCompliant,
	)

	cols := append([]string{}, groupCols...)
	cols = append(cols,
		"COUNT(*) AS total_records",
		compliant+" AS compliant_records",
		status,
	)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(from)
	if len(wherePreds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(andJoin(wherePreds))
	}
	if len(groupCols) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupCols, ", "))
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(groupCols, ", "))
	}
	return b.String()
}
