package patient

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

func TestBuildSearchQuery_AND(t *testing.T) {
	f, err := Criteria{Name: "Meier", Gender: "FEMALE", Count: 3}.Filter()
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	q, err := buildSearchQuery(f)
	if err != nil {
		t.Fatalf("buildSearchQuery: %v", err)
	}

	want := "SELECT id, resource, iteration_key FROM patient WHERE (name_search ILIKE $1 AND gender = $2) ORDER BY iteration_key LIMIT $3"
	if got := q.DataSQL(); got != want {
		t.Errorf("unexpected SQL\n got: %s\nwant: %s", got, want)
	}
	args := q.DataArgs(f.Count)
	if len(args) != 3 || args[0] != "%Meier%" || args[1] != "FEMALE" || args[2] != 3 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildSearchQuery_ORKeepsCursorANDed(t *testing.T) {
	last := uuid.New()
	f := &Filter{
		Mode:  fhir.MatchAny,
		Terms: []Term{NameTerm{Value: "50%"}, GenderTerm{Value: GenderMale}},
		Count: 10,
		After: &fhir.Cursor{Key: 17, ID: last.String()},
	}
	q, err := buildSearchQuery(f)
	if err != nil {
		t.Fatalf("buildSearchQuery: %v", err)
	}

	want := "SELECT id, resource, iteration_key FROM patient WHERE (name_search ILIKE $1 OR gender = $2) AND " +
		"iteration_key > (SELECT iteration_key FROM patient WHERE id = $3 AND iteration_key = $4) ORDER BY iteration_key LIMIT $5"
	if got := q.DataSQL(); got != want {
		t.Errorf("unexpected SQL\n got: %s\nwant: %s", got, want)
	}
	args := q.DataArgs(f.Count)
	if args[0] != `%50\%%` || args[2] != last || args[3] != int64(17) || args[4] != 10 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildSearchQuery_BirthDateAndLastID(t *testing.T) {
	from := time.Date(1992, 9, 2, 0, 0, 0, 0, time.UTC)
	last := uuid.New()
	f := &Filter{
		Terms:   []Term{BirthDateTerm{From: &from}},
		Count:   5,
		AfterID: last.String(),
	}
	q, err := buildSearchQuery(f)
	if err != nil {
		t.Fatalf("buildSearchQuery: %v", err)
	}

	want := "SELECT id, resource, iteration_key FROM patient WHERE ((birth_end > $1)) AND iteration_key > (SELECT iteration_key FROM patient WHERE id = $2) ORDER BY iteration_key LIMIT $3"
	if got := q.DataSQL(); got != want {
		t.Errorf("unexpected SQL\n got: %s\nwant: %s", got, want)
	}
	args := q.DataArgs(f.Count)
	if args[1] != last {
		t.Errorf("expected lastId bound as uuid, got %v", args[1])
	}
}

func TestBuildSearchQuery_NoTerms(t *testing.T) {
	q, err := buildSearchQuery(&Filter{Count: 30})
	if err != nil {
		t.Fatalf("buildSearchQuery: %v", err)
	}
	want := "SELECT id, resource, iteration_key FROM patient WHERE TRUE ORDER BY iteration_key LIMIT $1"
	if got := q.DataSQL(); got != want {
		t.Errorf("unexpected SQL\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildSearchQuery_BadLastID(t *testing.T) {
	if _, err := buildSearchQuery(&Filter{AfterID: "nope"}); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
	if _, err := buildSearchQuery(&Filter{After: &fhir.Cursor{Key: 1, ID: "nope"}}); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestBirthBounds(t *testing.T) {
	start, end := birthBounds("1992-09")
	if start == nil || end == nil {
		t.Fatal("expected bounds for a month precision date")
	}
	if !start.Equal(time.Date(1992, 9, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(1992, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected bounds %s..%s", start, end)
	}
	for _, s := range []string{"", "yesterday"} {
		if start, end := birthBounds(s); start != nil || end != nil {
			t.Errorf("expected no bounds for %q", s)
		}
	}
}
