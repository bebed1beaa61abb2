package sqlgen

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/accordhq/accord/internal/model"
)

var bareIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent renders a table or column name, double-quoting anything that
// is not a plain identifier.
func quoteIdent(name string) string {
	if bareIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// renderLiteral renders a filter value as a SQL literal. Numbers and
// booleans stay unquoted when the field type says so and the value parses;
// everything else is single-quoted with '' escaping.
func renderLiteral(value string, fieldType model.FieldType) string {
	switch fieldType {
	case model.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return value
		}
	case model.FieldBoolean:
		if parsed, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return strconv.FormatBool(parsed)
		}
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// renderPredicate renders one equality predicate. qualifier is a table
// alias, empty for unqualified references.
func renderPredicate(filter model.Filter, fieldType model.FieldType, qualifier string) string {
	column := quoteIdent(filter.Key)
	if qualifier != "" {
		column = qualifier + "." + column
	}
	return column + " = " + renderLiteral(filter.Value, fieldType)
}

// scopedPredicates renders the filters whose keys the schema defines,
// unqualified. Filters targeting other tables are dropped from this scope.
func scopedPredicates(schema *model.EvidenceSchema, filters []model.Filter) []string {
	var preds []string
	for _, filter := range filters {
		fieldType, ok := schema.FieldType(filter.Key)
		if !ok {
			continue
		}
		preds = append(preds, renderPredicate(filter, fieldType, ""))
	}
	return preds
}

// qualifiedPredicates renders filters against a joined table set, each
// qualified by the alias of the first schema owning its key.
func qualifiedPredicates(schemas []model.EvidenceSchema, aliases []string, filters []model.Filter) []string {
	var preds []string
	for _, filter := range filters {
		owner, ok := fieldOwner(schemas, filter.Key)
		if !ok {
			continue
		}
		fieldType, _ := schemas[owner].FieldType(filter.Key)
		preds = append(preds, renderPredicate(filter, fieldType, aliases[owner]))
	}
	return preds
}

func andJoin(preds []string) string {
	return strings.Join(preds, " AND ")
}

// columnList renders field names as a SELECT list, optionally qualified.
func columnList(names []string, qualifier string) string {
	cols := make([]string, 0, len(names))
	for _, name := range names {
		col := quoteIdent(name)
		if qualifier != "" {
			col = qualifier + "." + col
		}
		cols = append(cols, col)
	}
	return strings.Join(cols, ", ")
}

// columnAlias disambiguates a duplicated column name by prefixing its table
func columnAlias(table, field string) string {
	sanitized := strings.ToLower(table)
	sanitized = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, sanitized)
	return sanitized + "_" + field
}
