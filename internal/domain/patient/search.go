package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

// DefaultCount is the page size used when a search names none.
const DefaultCount = 30

var (
	ErrInvalidGender   = errors.New("invalid gender")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCursor   = errors.New("invalid cursor")
)

// Operator combines search terms.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// Criteria is a search request as the client sends it. Empty fields
// contribute no term. Count is passed through unchecked; callers fill in
// DefaultCount when the client names none.
type Criteria struct {
	Name           string
	BirthdateFrom  string
	BirthdateUntil string
	Gender         string
	Operator       string
	Count          int
	LastID         string
	IterationKey   string
}

// Filter validates the criteria and turns them into a Filter.
func (c Criteria) Filter() (*Filter, error) {
	f := &Filter{Mode: fhir.MatchAll, Count: c.Count}

	switch Operator(c.Operator) {
	case "", OperatorAnd:
	case OperatorOr:
		f.Mode = fhir.MatchAny
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, c.Operator)
	}

	if c.Name != "" {
		f.Terms = append(f.Terms, NameTerm{Value: c.Name})
	}

	if c.BirthdateFrom != "" || c.BirthdateUntil != "" {
		var term BirthDateTerm
		if c.BirthdateFrom != "" {
			iv, err := fhir.ParseDateInterval(c.BirthdateFrom)
			if err != nil {
				return nil, fmt.Errorf("%w: birthdateFrom %q", ErrInvalidDate, c.BirthdateFrom)
			}
			term.From = &iv.Start
		}
		if c.BirthdateUntil != "" {
			iv, err := fhir.ParseDateInterval(c.BirthdateUntil)
			if err != nil {
				return nil, fmt.Errorf("%w: birthdateUntil %q", ErrInvalidDate, c.BirthdateUntil)
			}
			term.Until = &iv.End
		}
		f.Terms = append(f.Terms, term)
	}

	if c.Gender != "" {
		g, err := ParseGender(c.Gender)
		if err != nil {
			return nil, err
		}
		f.Terms = append(f.Terms, GenderTerm{Value: g})
	}

	switch {
	case c.IterationKey != "":
		cur, err := fhir.DecodeCursor(c.IterationKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
		id, err := uuid.Parse(cur.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: iterationKey names %q", ErrInvalidCursor, cur.ID)
		}
		cur.ID = id.String()
		f.After = &cur
	case c.LastID != "":
		id, err := uuid.Parse(c.LastID)
		if err != nil {
			return nil, fmt.Errorf("%w: lastId %q", ErrInvalidCursor, c.LastID)
		}
		f.AfterID = id.String()
	}

	return f, nil
}

// Filter is a validated search. Terms combine under Mode; a filter without
// terms matches every patient. Results start strictly after the cursor
// After when set, otherwise after the patient AfterID when set. A cursor
// whose patient does not hold its key, or an unknown AfterID, yields an
// empty page.
type Filter struct {
	Mode    fhir.MatchMode
	Terms   []Term
	Count   int
	After   *fhir.Cursor
	AfterID string
}

// Matches reports whether p satisfies the filter terms. Paging is not
// considered.
func (f *Filter) Matches(p *Patient) bool {
	if len(f.Terms) == 0 {
		return true
	}
	for _, t := range f.Terms {
		ok := t.Matches(p)
		if f.Mode == fhir.MatchAny && ok {
			return true
		}
		if f.Mode == fhir.MatchAll && !ok {
			return false
		}
	}
	return f.Mode == fhir.MatchAll
}

// Term is one search predicate.
type Term interface {
	Matches(p *Patient) bool
}

// NameTerm matches a case-insensitive substring of any recorded name part.
type NameTerm struct {
	Value string
}

func (t NameTerm) Matches(p *Patient) bool {
	needle := strings.ToLower(t.Value)
	for _, part := range p.NameParts() {
		if strings.Contains(strings.ToLower(part), needle) {
			return true
		}
	}
	return false
}

// BirthDateTerm matches when the span covered by the birth date overlaps
// [From, Until). A nil bound is open. Patients without a readable birth
// date never match.
type BirthDateTerm struct {
	From  *time.Time
	Until *time.Time
}

func (t BirthDateTerm) Matches(p *Patient) bool {
	if p.BirthDate == "" {
		return false
	}
	iv, err := fhir.ParseDateInterval(p.BirthDate)
	if err != nil {
		return false
	}
	return iv.Overlaps(t.From, t.Until)
}

type GenderTerm struct {
	Value Gender
}

func (t GenderTerm) Matches(p *Patient) bool {
	return p.Gender == t.Value
}
