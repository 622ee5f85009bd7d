// Package core turns parsed CSV rows into the typed records of the venue
// directory.
//
// It is independent of where rows come from and where records go: the
// importer writes them to static data files, the sync command upserts them
// into Postgres, and tests feed rows directly.
//
// # Entity Registry
//
// Entities are registered at init time using [Register]. Each
// [EntityDefinition] names its source file, output constant, identifier and
// optional filter column, and supplies a [BuildFunc]:
//
//	core.Register(core.EntityDefinition{
//	    Info: core.EntityInfo{
//	        Key: "venues", Source: "venues.csv", Output: "venues.ts",
//	        ConstName: "venues", IDColumn: "id", FilterColumn: "published",
//	    },
//	    Build: func(row core.Row) (any, error) {
//	        return Venue{ID: row.Text("id"), Rating: row.Float("rating", 0)}, nil
//	    },
//	})
//
// # Mapping Rules
//
// [MapRows] builds a [HeaderIndex] from the first row, pads short rows to
// the header width, skips rows without an identifier, applies the filter
// column and calls Build for each remaining row, in input order. [Row]
// accessors implement the coercions: trimmed text defaulting to "", numbers
// falling back to a default (or nil) when blank or invalid, and booleans that
// are true only for the literal "true".
//
// Entities declared in an import manifest have no Go type; they use
// [MapRow] with a list of [FieldSpec] rules and produce an ordered [Record].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
package core
