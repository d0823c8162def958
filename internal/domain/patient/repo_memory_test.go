package patient

import (
	"context"
	"testing"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

type fixturePatient struct {
	given, family, birthDate string
	gender                   Gender
}

// fixture holds seven patients: four named Meier, four female, four born
// inside 1992-09-02..1993-09-02.
var fixture = []fixturePatient{
	{"A", "Meier", "1992", GenderFemale},
	{"B", "Meier", "1992-09", GenderMale},
	{"C", "Meier", "1993-09-02", GenderFemale},
	{"D", "Meier", "1992-09-02", GenderMale},
	{"E", "Meyer", "1994", GenderFemale},
	{"F", "Meyer", "1992-08", GenderMale},
	{"G", "Meyer", "1993-10", GenderFemale},
}

func seedFixture(t *testing.T, svc *Service) []string {
	t.Helper()
	var ids []string
	for _, f := range fixture {
		p := &Patient{
			Name: fhir.List[fhir.HumanName]{{
				Use:    fhir.HumanNameOfficial,
				Family: f.family,
				Given:  fhir.List[string]{f.given},
				Text:   f.given + " " + f.family,
			}},
			BirthDate: f.birthDate,
			Gender:    f.gender,
		}
		id, err := svc.Upsert(context.Background(), p)
		if err != nil {
			t.Fatalf("seed %s: %v", f.given, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func search(t *testing.T, svc *Service, c Criteria) []Stub {
	t.Helper()
	if c.Count == 0 {
		c.Count = 100
	}
	stubs, err := svc.Search(context.Background(), c)
	if err != nil {
		t.Fatalf("Search(%+v): %v", c, err)
	}
	return stubs
}

func stubNames(stubs []Stub) []string {
	var out []string
	for _, s := range stubs {
		out = append(out, s.Name...)
	}
	return out
}

func TestMemoryRepo_SearchFixture(t *testing.T) {
	svc := NewService(NewRepoMemory(), nil)
	seedFixture(t, svc)

	cases := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"birthdate range", Criteria{BirthdateFrom: "1992-09-02", BirthdateUntil: "1993-09-02"},
			[]string{"A Meier", "B Meier", "C Meier", "D Meier"}},
		{"gender", Criteria{Gender: "FEMALE"},
			[]string{"A Meier", "C Meier", "E Meyer", "G Meyer"}},
		{"and", Criteria{Name: "Meier", Gender: "FEMALE"},
			[]string{"A Meier", "C Meier"}},
		{"or", Criteria{Name: "Meier", Gender: "FEMALE", Operator: "OR"},
			[]string{"A Meier", "B Meier", "C Meier", "D Meier", "E Meyer", "G Meyer"}},
		{"no terms", Criteria{},
			[]string{"A Meier", "B Meier", "C Meier", "D Meier", "E Meyer", "F Meyer", "G Meyer"}},
		{"case insensitive", Criteria{Name: "mEyEr"},
			[]string{"E Meyer", "F Meyer", "G Meyer"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stubNames(search(t, svc, tc.criteria))
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestMemoryRepo_PagingByLastID(t *testing.T) {
	svc := NewService(NewRepoMemory(), nil)
	seedFixture(t, svc)

	page1 := search(t, svc, Criteria{Name: "Meier", Count: 3})
	if len(page1) != 3 {
		t.Fatalf("expected 3 on page 1, got %d", len(page1))
	}
	page2 := search(t, svc, Criteria{Name: "Meier", Count: 3, LastID: page1[2].ID})
	if len(page2) != 1 {
		t.Fatalf("expected 1 on page 2, got %d", len(page2))
	}

	seen := map[string]bool{}
	for _, s := range append(page1, page2...) {
		if seen[s.ID] {
			t.Errorf("stub %s returned twice", s.ID)
		}
		seen[s.ID] = true
	}
	all := search(t, svc, Criteria{Name: "Meier"})
	for _, s := range all {
		if !seen[s.ID] {
			t.Errorf("stub %s missing from paged results", s.ID)
		}
	}
}

func TestMemoryRepo_PagingByIterationKey(t *testing.T) {
	svc := NewService(NewRepoMemory(), nil)
	seedFixture(t, svc)

	var pages [][]Stub
	c := Criteria{Count: 2}
	for {
		page := search(t, svc, c)
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)
		c.IterationKey = page[len(page)-1].IterationKey
		c.LastID = "00000000-0000-4000-8000-000000000000"
	}
	if len(pages) != 4 {
		t.Fatalf("expected 4 pages for 7 patients, got %d", len(pages))
	}
	if n := len(pages[3]); n != 1 {
		t.Errorf("expected 1 patient on the last page, got %d", n)
	}
}

func TestMemoryRepo_TamperedIterationKeyYieldsEmptyPage(t *testing.T) {
	svc := NewService(NewRepoMemory(), nil)
	seedFixture(t, svc)

	page := search(t, svc, Criteria{Count: 2})
	if len(page) != 2 {
		t.Fatalf("expected 2, got %d", len(page))
	}
	cur, err := fhir.DecodeCursor(page[1].IterationKey)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}

	if got := search(t, svc, Criteria{Count: 10, IterationKey: fhir.EncodeCursor(cur.Key-1, cur.ID)}); len(got) != 0 {
		t.Errorf("expected empty page for a key the patient does not hold, got %d", len(got))
	}
	if got := search(t, svc, Criteria{Count: 10, IterationKey: fhir.EncodeCursor(cur.Key, page[0].ID)}); len(got) != 0 {
		t.Errorf("expected empty page for a cursor naming another patient, got %d", len(got))
	}
	if got := search(t, svc, Criteria{Count: 10, IterationKey: page[1].IterationKey}); len(got) != 5 {
		t.Errorf("expected the remaining 5 for the genuine cursor, got %d", len(got))
	}
}

func TestMemoryRepo_UnknownLastIDYieldsEmptyPage(t *testing.T) {
	svc := NewService(NewRepoMemory(), nil)
	seedFixture(t, svc)

	got := search(t, svc, Criteria{LastID: "00000000-0000-4000-8000-000000000000"})
	if len(got) != 0 {
		t.Errorf("expected empty page, got %d", len(got))
	}
}

func TestMemoryRepo_NonPositiveCount(t *testing.T) {
	repo := NewRepoMemory()
	seedFixture(t, NewService(repo, nil))

	for _, count := range []int{0, -1} {
		stubs, err := repo.Search(context.Background(), &Filter{Count: count})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if stubs == nil || len(stubs) != 0 {
			t.Errorf("count %d: expected empty non-nil page, got %v", count, stubs)
		}
	}
}

func TestMemoryRepo_UpdateKeepsPosition(t *testing.T) {
	repo := NewRepoMemory()
	svc := NewService(repo, nil)
	ids := seedFixture(t, svc)

	p, err := repo.Get(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	p.Gender = GenderOther
	if _, err := svc.Upsert(context.Background(), p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	all := search(t, svc, Criteria{})
	if len(all) != len(fixture) {
		t.Fatalf("update must not add a record, got %d", len(all))
	}
	if all[0].ID != ids[0] {
		t.Errorf("updated patient should keep its place, got %s first", all[0].ID)
	}
	got, _ := repo.Get(context.Background(), ids[0])
	if got.Gender != GenderOther {
		t.Errorf("expected updated gender, got %q", got.Gender)
	}
}

func TestMemoryRepo_GetNotFound(t *testing.T) {
	repo := NewRepoMemory()
	for _, id := range []string{"00000000-0000-4000-8000-000000000000", "garbage"} {
		if _, err := repo.Get(context.Background(), id); err != ErrNotFound {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestMemoryRepo_NextIDUnique(t *testing.T) {
	repo := NewRepoMemory()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := repo.NextID(context.Background())
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestMemoryRepo_IterationOrderIsInsertOrder(t *testing.T) {
	svc := NewService(NewRepoMemory(), nil)
	ids := seedFixture(t, svc)

	got := search(t, svc, Criteria{})
	var gotIDs []string
	for _, s := range got {
		gotIDs = append(gotIDs, s.ID)
	}
	if len(gotIDs) != len(ids) {
		t.Fatalf("unexpected result %v", gotIDs)
	}
	for i := range ids {
		if gotIDs[i] != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], gotIDs[i])
		}
	}
}
