package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// FieldType is the coercion applied to a column value.
type FieldType int

const (
	FieldText  FieldType = iota // trimmed string, "" when absent
	FieldLower                  // trimmed, lowercased string
	FieldFloat                  // float64, default 0
	FieldInt                    // int, default 0
	FieldBool                   // true only for "true" after trim+lowercase
)

// String returns the manifest name of the field type.
func (t FieldType) String() string {
	switch t {
	case FieldLower:
		return "lower"
	case FieldFloat:
		return "float"
	case FieldInt:
		return "int"
	case FieldBool:
		return "bool"
	default:
		return "text"
	}
}

// ParseFieldType maps a manifest type name to a FieldType.
func ParseFieldType(s string) (FieldType, bool) {
	switch s {
	case "", "text", "string":
		return FieldText, true
	case "lower":
		return FieldLower, true
	case "float", "number":
		return FieldFloat, true
	case "int", "integer":
		return FieldInt, true
	case "bool", "boolean":
		return FieldBool, true
	}
	return FieldText, false
}

// FieldSpec describes how one CSV column becomes one record field.
type FieldSpec struct {
	Name     string    // Column header name (matched case-insensitively)
	Key      string    // Output key; derived from Name when empty
	Type     FieldType // Coercion
	Omit     bool      // Numeric fields: omit instead of defaulting to 0
	Required bool      // Column must exist in the header row
}

// OutputKey returns the key the field is written under.
func (f FieldSpec) OutputKey() string {
	if f.Key != "" {
		return f.Key
	}
	return f.Name
}

// EntityInfo names an importable entity and where its data lives.
type EntityInfo struct {
	Key          string // Unique identifier: "venues"
	Label        string // Display name: "Venues"
	Source       string // Input CSV file name, relative to the data dir
	Output       string // Output file name, relative to the output dir
	ConstName    string // Exported constant bound to the array in Output
	IDColumn     string // Rows with an empty value here are not emitted
	IDKey        string // JSON key holding the identifier in output records
	FilterColumn string // Optional: only rows where this column is "true"
	Table        string // Postgres table for sync; empty disables sync
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// BuildFunc builds a typed record from one data row.
type BuildFunc func(row Row) (any, error)

// UpsertFunc writes one record. inserted is false when an existing row was updated.
type UpsertFunc func(ctx context.Context, db DBTX, record any) (inserted bool, err error)

// IDFunc returns the identifier of a record built by the same definition.
type IDFunc func(record any) string

// EntityDefinition contains everything needed to import one entity.
type EntityDefinition struct {
	Info       EntityInfo
	FieldSpecs []FieldSpec
	Build      BuildFunc
	ID         IDFunc
	Upsert     UpsertFunc // nil when the entity is not synced to Postgres
}

// SupportsSync reports whether records of this entity can be upserted.
func (d EntityDefinition) SupportsSync() bool {
	return d.Upsert != nil && d.Info.Table != ""
}

// MapResult is the outcome of mapping a parsed file.
type MapResult struct {
	Records  []any
	Total    int // data rows seen, excluding the header and blank rows
	Skipped  int // rows without an identifier
	Filtered int // rows excluded by the filter column
	Failed   []FailedRow
}

// FailedRow is a row Build rejected.
type FailedRow struct {
	Record int // see Row.Record
	Reason string
	Data   []string
}
