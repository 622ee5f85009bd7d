package store

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lozio/venues/internal/core/entities"
)

// splitColumns splits a select list on the commas outside parentheses.
func splitColumns(list string) []string {
	var (
		cols  []string
		depth int
		start int
	)
	for i, c := range list {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				cols = append(cols, strings.Join(strings.Fields(list[start:i]), " "))
				start = i + 1
			}
		}
	}
	return append(cols, strings.Join(strings.Fields(list[start:]), " "))
}

// nullableColumns returns the columns of table declared without NOT NULL or
// PRIMARY KEY in schema.sql.
func nullableColumns(t *testing.T, table string) map[string]bool {
	t.Helper()
	head := "CREATE TABLE IF NOT EXISTS " + table + " ("
	start := strings.Index(schemaSQL, head)
	require.GreaterOrEqual(t, start, 0, "table %s not in schema", table)
	body := schemaSQL[start+len(head):]
	body = body[:strings.Index(body, ");")]

	nullable := map[string]bool{}
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.ToUpper(fields[0]) == fields[0] {
			continue // blank or a constraint continuation
		}
		if !strings.Contains(line, "NOT NULL") && !strings.Contains(line, "PRIMARY KEY") {
			nullable[fields[0]] = true
		}
	}
	return nullable
}

// checkProjection asserts one destination per selected column, and that a
// nullable column is either wrapped in COALESCE or scanned into a pointer.
func checkProjection(t *testing.T, table, columns string, dest []any) {
	t.Helper()
	cols := splitColumns(columns)
	require.Len(t, dest, len(cols), "%s: select list and scan destinations differ", table)

	nullable := nullableColumns(t, table)
	for i, col := range cols {
		if strings.HasPrefix(col, "COALESCE(") {
			continue
		}
		d := reflect.TypeOf(dest[i])
		require.Equal(t, reflect.Pointer, d.Kind(), "%s.%s destination", table, col)
		if nullable[col] {
			assert.Equal(t, reflect.Pointer, d.Elem().Kind(),
				"%s.%s is nullable and needs COALESCE or a pointer destination", table, col)
		}
	}
}

func TestVenueColumns(t *testing.T) {
	var v entities.Venue
	checkProjection(t, "venues", venueColumns, venueFields(&v))
}

func TestReviewColumns(t *testing.T) {
	var r Review
	checkProjection(t, "reviews", reviewColumns, reviewFields(&r))
}

func TestArticleColumns(t *testing.T) {
	var a entities.Article
	checkProjection(t, "articles", articleColumns, articleFields(&a))
}

var placeholder = regexp.MustCompile(`\$\d+`)

// insertArity returns the number of target columns and of placeholders in
// an INSERT statement.
func insertArity(t *testing.T, stmt string) (int, int) {
	t.Helper()
	open := strings.Index(stmt, "(")
	closing := strings.Index(stmt, ")")
	values := strings.Index(stmt, "VALUES (")
	require.True(t, open >= 0 && closing > open && values > closing, "malformed insert: %s", stmt)

	vals := stmt[values+len("VALUES ("):]
	vals = vals[:strings.Index(vals, ")")]
	return len(splitColumns(stmt[open+1 : closing])), len(placeholder.FindAllString(vals, -1))
}

func TestInsertVenueArity(t *testing.T) {
	cols, params := insertArity(t, insertVenue)
	assert.Equal(t, cols, params)
	assert.Len(t, venueArgs(entities.Venue{ID: "v1", Name: "Rum Bar"}), params)
}

func TestInsertReviewArity(t *testing.T) {
	cols, params := insertArity(t, insertReview)
	assert.Equal(t, cols, params)
	assert.Len(t, reviewArgs("r1", NewReview{VenueID: "v1"}), params)
	assert.True(t, strings.HasSuffix(insertReview, reviewColumns))
}

func TestTargetOf(t *testing.T) {
	a, err := pgx.ParseConfig("postgres://u:p@db.example:5433/venues")
	require.NoError(t, err)
	b, err := pgx.ParseConfig("postgres://u:p@db.example:5433/staging")
	require.NoError(t, err)

	assert.Equal(t, "db.example:5433/venues", targetOf(a))
	assert.NotEqual(t, targetOf(a), targetOf(b))
}

func TestVenueQuery(t *testing.T) {
	featured := true
	q, args := venueQuery(VenueFilter{City: "Lisbon", Category: "Rum Bar", Featured: &featured, Limit: 10})

	assert.Contains(t, q, "WHERE published AND lower(city) = lower($1) AND lower(category) = $2 AND featured = $3")
	assert.Contains(t, q, "LIMIT $4 OFFSET $5")
	require.Len(t, args, 5)
	assert.Equal(t, "rum bar", args[1])

	q, args = venueQuery(VenueFilter{})
	assert.NotContains(t, q, "category")
	assert.Contains(t, q, "LIMIT $1 OFFSET $2")
	assert.Len(t, args, 2)
}
