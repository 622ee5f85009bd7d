package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder_Empty(t *testing.T) {
	clause, args := newWhereBuilder().Build()
	assert.Equal(t, "", clause)
	assert.Nil(t, args)
}

func TestWhereBuilder_Conditions(t *testing.T) {
	wb := newWhereBuilder()
	wb.AddRaw("published")
	wb.Add("category", "")
	wb.AddExpr("lower(city) = lower($%d)", "Roma")
	wb.Add("category", "tiki")
	wb.AddSearch("50%_off", "name", "description")

	clause, args := wb.Build()
	assert.Equal(t,
		" WHERE published AND lower(city) = lower($1) AND category = $2 AND (name ILIKE $3 OR description ILIKE $3)",
		clause)
	assert.Equal(t, []any{"Roma", "tiki", `%50\%\_off%`}, args)
	assert.Equal(t, 4, wb.NextArgIndex())
}

func TestWhereBuilder_BlankSearchSkipped(t *testing.T) {
	wb := newWhereBuilder()
	wb.AddSearch("   ", "name")
	clause, _ := wb.Build()
	assert.Equal(t, "", clause)
}
