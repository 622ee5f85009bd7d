package store

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{argIndex: 1}
}

// Add adds "column = $n". Empty values are skipped.
func (wb *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.AddExpr(column+" = $%d", value)
}

// AddExpr adds a condition whose single %d verb is replaced by the next
// placeholder number.
func (wb *whereBuilder) AddExpr(expr string, value any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(expr, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddRaw adds a condition without arguments.
func (wb *whereBuilder) AddRaw(cond string) {
	wb.conditions = append(wb.conditions, cond)
}

// AddSearch matches query case-insensitively against any of columns.
func (wb *whereBuilder) AddSearch(query string, columns ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
	wb.argIndex++
}

// NextArgIndex returns the number of the next placeholder.
func (wb *whereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the WHERE clause (with a leading space) and its arguments.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
