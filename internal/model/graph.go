package model

import "strings"

// ControlConfig is an external graph node representing a control's
// automation configuration. Read-only to this system.
type ControlConfig struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// EvidenceConfig names a data source used to check compliance. Its name is
// used verbatim as the SQL table name during synthesis.
type EvidenceConfig struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldType is the normalized type of a schema field
type FieldType string

const (
	FieldString    FieldType = "string"
	FieldNumber    FieldType = "number"
	FieldBoolean   FieldType = "boolean"
	FieldTimestamp FieldType = "timestamp"
)

// NormalizeFieldType maps raw store-specific type names onto the small set
// synthesis reasons about. Unrecognized types are treated as strings.
func NormalizeFieldType(raw string) FieldType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "int", "integer", "bigint", "smallint", "float", "double", "decimal", "numeric", "number":
		return FieldNumber
	case "bool", "boolean":
		return FieldBoolean
	case "timestamp", "timestamptz", "date", "datetime", "time":
		return FieldTimestamp
	default:
		return FieldString
	}
}

// SchemaField is one field definition within an evidence schema
type SchemaField struct {
	Name string    `yaml:"name" json:"name"`
	Type FieldType `yaml:"type" json:"type"`
}

// EvidenceSchema describes the fields of one EvidenceConfig. Exactly one
// schema exists per evidence config.
type EvidenceSchema struct {
	EvidenceID   string        `json:"evidence_id"`
	EvidenceName string        `json:"evidence_name"` // Table name for synthesized SQL
	Fields       []SchemaField `json:"fields"`
}

// HasField reports whether the schema defines the named field.
func (s *EvidenceSchema) HasField(name string) bool {
	_, ok := s.FieldType(name)
	return ok
}

// FieldType returns the type of the named field, if defined.
func (s *EvidenceSchema) FieldType(name string) (FieldType, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// FieldNames returns the schema's field names in definition order.
func (s *EvidenceSchema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}
