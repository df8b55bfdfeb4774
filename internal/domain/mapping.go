package domain

// ColumnType selects the coercion/validation strategy for a mapped column
// (spec.md §9: "represent this as a closed sum of type tags").
type ColumnType string

const (
	ColString   ColumnType = "string"
	ColInt      ColumnType = "int"
	ColFloat    ColumnType = "float"
	ColDecimal  ColumnType = "decimal"
	ColDate     ColumnType = "date"
	ColDatetime ColumnType = "datetime"
	ColBoolean  ColumnType = "boolean"
	ColFK       ColumnType = "fk"
)

// OnMissingPolicy governs FK resolution when the lookup misses.
type OnMissingPolicy string

const (
	OnMissingCreate OnMissingPolicy = "create"
	OnMissingIgnore OnMissingPolicy = "ignore"
	OnMissingError  OnMissingPolicy = "error"
)

// FKMapping describes how an `fk`-typed column resolves to another table.
type FKMapping struct {
	Table         string          `json:"table"`
	LookupColumn  string          `json:"lookup_column"`
	OnMissing     OnMissingPolicy `json:"on_missing"`
}

// ColumnMapping describes how one source column becomes one target column.
//
// Unique marks this column as part of the uniqueness key set used for
// intra-file and cross-file duplicate detection (Open Question #3 in
// spec.md §9, resolved in SPEC_FULL.md §3/DESIGN.md).
type ColumnMapping struct {
	SourceColumn string     `json:"source_column"`
	DBColumn     string     `json:"db_column"`
	Type         ColumnType `json:"type"`
	Required     bool       `json:"required"`
	Unique       bool       `json:"unique"`
	Validate     string     `json:"validate,omitempty"` // e.g. "placa", "year", "positive"
	FK           *FKMapping `json:"fk,omitempty"`
}

// MappingConfig is the caller-supplied description of how source columns
// become target columns, consumed by the row processor.
//
// EntityDisplayName/Description/Icon are additive, forward-compatible fields
// for the dynamic-entity UI layer (out of scope here beyond its read
// contract) — see DESIGN.md Open Question #1.
type MappingConfig struct {
	TargetTable       string          `json:"target_table"`
	CreateTable       bool            `json:"create_table"`
	Columns           []ColumnMapping `json:"columns"`
	EntityDisplayName string          `json:"entity_display_name,omitempty"`
	Description       string          `json:"description,omitempty"`
	Icon              string          `json:"icon,omitempty"`
}

// RequiredColumns returns the source column names that header validation
// must find present (every mapped source column, regardless of Required,
// must exist in the header for the mapping to make sense downstream).
func (m MappingConfig) RequiredColumns() []string {
	cols := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		cols = append(cols, c.SourceColumn)
	}
	return cols
}

// UniqueColumns returns the db_column names marked as uniqueness keys.
func (m MappingConfig) UniqueColumns() []string {
	var cols []string
	for _, c := range m.Columns {
		if c.Unique {
			cols = append(cols, c.DBColumn)
		}
	}
	return cols
}

// Validate checks the shape is usable: a target table, at least one column,
// and at least one uniqueness key (spec.md §9 Open Question #3).
func (m MappingConfig) Validate() error {
	if m.TargetTable == "" {
		return ErrMissingTargetTable
	}
	if len(m.Columns) == 0 {
		return ErrNoColumns
	}
	hasUnique := false
	for _, c := range m.Columns {
		if c.SourceColumn == "" || c.DBColumn == "" {
			return ErrInvalidColumnMapping
		}
		if c.Type == ColFK && c.FK == nil {
			return ErrMissingFKSpec
		}
		if c.Unique {
			hasUnique = true
		}
	}
	if !hasUnique {
		return ErrNoUniqueColumn
	}
	return nil
}

// VehiclePreset is the fixed-schema mapping named in spec.md §8 scenarios
// (modelo/placa/ano/valor_fipe), kept as the built-in default template.
func VehiclePreset() MappingConfig {
	return MappingConfig{
		TargetTable: "vehicles",
		CreateTable: false,
		Columns: []ColumnMapping{
			{SourceColumn: "modelo", DBColumn: "modelo", Type: ColString, Required: true},
			{SourceColumn: "placa", DBColumn: "placa", Type: ColString, Required: true, Unique: true, Validate: "placa"},
			{SourceColumn: "ano", DBColumn: "ano", Type: ColInt, Required: true, Validate: "year"},
			{SourceColumn: "valor_fipe", DBColumn: "valor_fipe", Type: ColDecimal, Required: true, Validate: "positive"},
		},
	}
}
