// Package querysql compiles Query IR to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/til/internal/queryir"
)

// tiebreakColumn is appended to every ORDER BY so equal sort keys come back
// in a stable order.
const tiebreakColumn = "id"

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: Every SELECT ends its ORDER BY with the id tiebreaker.
// CRITICAL: All values are parameterized, never interpolated. Identifiers
// are spliced only after queryir.Validate accepted them.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its positional parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Insert:
		return c.compileInsert(query)
	case *queryir.Insert:
		return c.compileInsert(*query)
	case queryir.Update:
		return c.compileUpdate(query)
	case *queryir.Update:
		return c.compileUpdate(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a Select. Always includes ORDER BY.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	fmt.Fprintf(&b, "SELECT %s FROM %s", columnList(q.Columns), q.From)

	if q.Filter != nil {
		where, whereParams := c.compilePredicate(q.Filter)
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy(q.OrderBy))

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return b.String(), params, nil
}

// compileInsert compiles an Insert into INSERT ... RETURNING.
func (c *SQLCompiler) compileInsert(q queryir.Insert) (string, []any, error) {
	cols := make([]string, len(q.Values))
	marks := make([]string, len(q.Values))
	params := make([]any, len(q.Values))
	for i, a := range q.Values {
		cols[i] = a.Field
		marks[i] = "?"
		params[i] = a.Value
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		q.Into,
		strings.Join(cols, ", "),
		strings.Join(marks, ", "),
		columnList(q.Returning))

	return sql, params, nil
}

// compileUpdate compiles an Update into UPDATE ... RETURNING.
func (c *SQLCompiler) compileUpdate(q queryir.Update) (string, []any, error) {
	sets := make([]string, len(q.Set))
	params := make([]any, 0, len(q.Set)+1)
	for i, a := range q.Set {
		sets[i] = a.Field + " = ?"
		params = append(params, a.Value)
	}

	where, whereParams := c.compilePredicate(q.Filter)
	params = append(params, whereParams...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING %s",
		q.Table,
		strings.Join(sets, ", "),
		where,
		columnList(q.Returning))

	return sql, params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any) {
	switch pred := p.(type) {
	case queryir.Equals:
		return pred.Field + " = ?", []any{pred.Value}
	case *queryir.Equals:
		return pred.Field + " = ?", []any{pred.Value}
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "1 = 1", nil
	}
}

// compileAnd joins sub-predicates with AND. Empty And is always true.
func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, sub := range and.Predicates {
		sql, subParams := c.compilePredicate(sub)
		if _, nested := sub.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}
	return strings.Join(parts, " AND "), params
}

func columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	return strings.Join(cols, ", ")
}

// orderBy renders the requested terms followed by the id tiebreaker, unless
// the caller already ordered by id. COLLATE BINARY keeps text ordering
// identical across SQLite versions. SQLite only accepts the collation before
// the direction keyword.
func orderBy(terms []queryir.Order) string {
	parts := make([]string, 0, len(terms)+1)
	hasID := false
	for _, o := range terms {
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		if o.Field == tiebreakColumn {
			hasID = true
			parts = append(parts, o.Field+" COLLATE BINARY "+dir)
			continue
		}
		parts = append(parts, o.Field+" "+dir)
	}
	if !hasID {
		parts = append(parts, tiebreakColumn+" COLLATE BINARY ASC")
	}
	return strings.Join(parts, ", ")
}
