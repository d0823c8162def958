package fhir

import (
	"fmt"
	"strings"
	"time"
)

// MatchMode decides how filter clauses combine.
type MatchMode int

const (
	MatchAll MatchMode = iota // every clause must hold
	MatchAny                  // at least one clause must hold
)

// SearchQuery builds SQL WHERE clauses from search terms.
// Filter clauses are joined according to the match mode; keyset clauses are
// always ANDed onto the result so paging holds under either mode.
type SearchQuery struct {
	table   string
	cols    string
	mode    MatchMode
	filter  []string
	keyset  []string
	args    []interface{}
	idx     int
	orderBy string
}

// NewSearchQuery creates a new SearchQuery for the given table and columns.
func NewSearchQuery(table, cols string) *SearchQuery {
	return &SearchQuery{
		table: table,
		cols:  cols,
		idx:   1,
	}
}

// Match sets how filter clauses are combined.
func (q *SearchQuery) Match(mode MatchMode) { q.mode = mode }

// Idx returns the next available parameter index.
func (q *SearchQuery) Idx() int { return q.idx }

// AddContains adds a case-insensitive substring clause.
func (q *SearchQuery) AddContains(column, value string) {
	clause, args, nextIdx := ContainsClause(column, value, q.idx)
	q.filter = append(q.filter, clause)
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddToken adds an exact code clause.
func (q *SearchQuery) AddToken(column, value string) {
	clause, args, nextIdx := TokenClause(column, value, q.idx)
	q.filter = append(q.filter, clause)
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddDateOverlap adds an interval overlap clause.
func (q *SearchQuery) AddDateOverlap(startCol, endCol string, from, until *time.Time) {
	clause, args, nextIdx := DateOverlapClause(startCol, endCol, from, until, q.idx)
	q.filter = append(q.filter, clause)
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddKeyset appends a paging clause that is ANDed regardless of match mode.
func (q *SearchQuery) AddKeyset(clause string, args ...interface{}) {
	q.keyset = append(q.keyset, clause)
	q.args = append(q.args, args...)
	q.idx += len(args)
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *SearchQuery) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

func (q *SearchQuery) where() string {
	var b strings.Builder
	b.WriteString(" WHERE ")
	if len(q.filter) == 0 {
		b.WriteString("TRUE")
	} else {
		sep := " AND "
		if q.mode == MatchAny {
			sep = " OR "
		}
		b.WriteString("(" + strings.Join(q.filter, sep) + ")")
	}
	for _, k := range q.keyset {
		b.WriteString(" AND " + k)
	}
	return b.String()
}

// DataSQL returns the data query SQL with ORDER BY and LIMIT.
func (q *SearchQuery) DataSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s%s", q.cols, q.table, q.where())
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d", q.idx)
	return sql
}

// DataArgs returns the arguments for the data query (search args + limit).
func (q *SearchQuery) DataArgs(limit int) []interface{} {
	result := make([]interface{}, len(q.args)+1)
	copy(result, q.args)
	result[len(q.args)] = limit
	return result
}
