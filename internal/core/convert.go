package core

// convert.go provides the coercions applied to CSV cells and the
// conversions used when records are written to PostgreSQL.
//
// The import rules are intentionally lenient: a blank or unparsable number
// never fails a row, it falls back to the caller's default (or nil when the
// field is optional). Booleans are true only for the literal "true".
//
// ToPg* functions return pgtype values with Valid=false for empty input,
// allowing the database to store NULL.

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006-01-02T15:04:05Z07:00", "2006/01/02",
		"02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ParseFloat parses a trimmed decimal. A lone comma is accepted as the
// decimal separator ("4,5"). Reports false for blank, invalid or
// non-finite input.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt parses a trimmed integer. Decimal input is truncated toward zero.
func ParseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, ok := ParseFloat(s)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// ParseBool reports whether s is "true" after trimming and lowercasing.
func ParseBool(s string) bool {
	return strings.ToLower(strings.TrimSpace(s)) == "true"
}

// SplitList splits s on sep, trimming each part and dropping empty ones.
// Returns nil when nothing remains.
func SplitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgFloat8 converts an optional float to pgtype.Float8.
func ToPgFloat8(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}

// ToPgInt4 converts an optional int to pgtype.Int4.
func ToPgInt4(i *int) pgtype.Int4 {
	if i == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*i), Valid: true}
}

// ToPgBool converts a boolean-like cell to pgtype.Bool.
// Returns invalid when the cell is blank, so "not set" stays NULL.
func ToPgBool(s string) pgtype.Bool {
	if strings.TrimSpace(s) == "" {
		return pgtype.Bool{Valid: false}
	}
	return pgtype.Bool{Bool: ParseBool(s), Valid: true}
}

// ToPgDate converts a string to pgtype.Date.
// Supports ISO and day-first (Italian) layouts and handles 2-digit years with pivot.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	currentYear := time.Now().Year()
	pivotYear := currentYear + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are cleaned and lowercased for case-insensitive matching.
// When a column name repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a header value:
// - Trims whitespace and a leading UTF-8 BOM
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
