// Package query builds parameterized PostgreSQL WHERE clauses.
package query

import (
	"strconv"
	"strings"
)

// WhereBuilder collects SQL conditions written with "?" placeholders and
// renders them with PostgreSQL positional parameters ($1, $2, ...).
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("price >= ?", 10)
//	wb.AddAny("main_category_id", "uuid", ids)
//	where, args := wb.Build(1)
//	// price >= $1 AND main_category_id = ANY($2::uuid[])
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition with its arguments. The number of "?" in
// clause must match len(args).
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddAny adds "column = ANY(?::elemType[])". Empty values are skipped, so an
// absent filter never narrows the result.
func (wb *WhereBuilder) AddAny(column, elemType string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	return wb.AddClause(column+" = ANY(?::"+elemType+"[])", values)
}

// AddRange adds inclusive lower and upper bounds on column. Nil bounds are
// skipped.
func (wb *WhereBuilder) AddRange(column string, min, max *float64) *WhereBuilder {
	if min != nil {
		wb.AddClause(column+" >= ?", *min)
	}
	if max != nil {
		wb.AddClause(column+" <= ?", *max)
	}
	return wb
}

// Build joins the clauses with AND and numbers the placeholders starting at
// first. It returns ("TRUE", nil) when no clauses were added.
func (wb *WhereBuilder) Build(first int) (string, []any) {
	if len(wb.clauses) == 0 {
		return "TRUE", nil
	}

	joined := strings.Join(wb.clauses, " AND ")
	var b strings.Builder
	b.Grow(len(joined) + len(wb.args)*2)
	n := first
	for i := 0; i < len(joined); i++ {
		if joined[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(joined[i])
	}

	args := make([]any, len(wb.args))
	copy(args, wb.args)
	return b.String(), args
}
