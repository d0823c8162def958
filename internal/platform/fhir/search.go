package fhir

import (
	"fmt"
	"strings"
	"time"
)

// DateInterval is the span of time a partial-precision date covers.
// End is exclusive: "1992-09" covers [1992-09-01, 1992-10-01).
type DateInterval struct {
	Start time.Time
	End   time.Time
}

// ParseDateInterval parses a date in any of the precisions a birth date may
// be recorded with: YYYY, YYYY-MM, YYYY-MM-DD or a full date-time.
func ParseDateInterval(s string) (DateInterval, error) {
	for _, f := range []struct {
		layout string
		step   func(time.Time) time.Time
	}{
		{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
		{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
		{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
		{time.RFC3339, func(t time.Time) time.Time { return t.Add(time.Second) }},
		{"2006-01-02T15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
	} {
		if t, err := time.Parse(f.layout, s); err == nil {
			t = t.UTC()
			return DateInterval{Start: t, End: f.step(t)}, nil
		}
	}
	return DateInterval{}, fmt.Errorf("unable to parse date: %s", s)
}

// Overlaps reports whether d shares any instant with the window that begins
// at from (inclusive) and ends at until (exclusive). A nil bound is open.
func (d DateInterval) Overlaps(from, until *time.Time) bool {
	if from != nil && !d.End.After(*from) {
		return false
	}
	if until != nil && !d.Start.Before(*until) {
		return false
	}
	return true
}

// EscapeLike escapes the LIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ContainsClause generates a case-insensitive substring match on column.
func ContainsClause(column, value string, argIdx int) (string, []interface{}, int) {
	return fmt.Sprintf("%s ILIKE $%d", column, argIdx), []interface{}{"%" + EscapeLike(value) + "%"}, argIdx + 1
}

// DateOverlapClause matches rows whose [startCol, endCol) interval overlaps
// the window [from, until). Nil bounds are left out.
func DateOverlapClause(startCol, endCol string, from, until *time.Time, argIdx int) (string, []interface{}, int) {
	var parts []string
	var args []interface{}
	if from != nil {
		parts = append(parts, fmt.Sprintf("%s > $%d", endCol, argIdx))
		args = append(args, *from)
		argIdx++
	}
	if until != nil {
		parts = append(parts, fmt.Sprintf("%s < $%d", startCol, argIdx))
		args = append(args, *until)
		argIdx++
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s IS NOT NULL", startCol), nil, argIdx
	}
	return "(" + strings.Join(parts, " AND ") + ")", args, argIdx
}

// TokenClause generates an exact code match.
func TokenClause(column, value string, argIdx int) (string, []interface{}, int) {
	return fmt.Sprintf("%s = $%d", column, argIdx), []interface{}{value}, argIdx + 1
}
