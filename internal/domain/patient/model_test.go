package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

type seqGen struct{ n int }

func (g *seqGen) NextID(context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("id-%d", g.n), nil
}

func boolPtr(b bool) *bool { return &b }

func fullPatient() *Patient {
	return &Patient{
		Meta:      &fhir.Meta{Tag: fhir.List[fhir.Coding]{{Code: "vip"}}},
		Text:      &fhir.Narrative{Status: fhir.NarrativeGenerated, Div: "<div/>"},
		Contained: fhir.List[fhir.Resource]{{Meta: &fhir.Meta{}}},
		Extension: fhir.List[fhir.Extension]{{
			URL:       "http://example.org/a",
			Extension: fhir.List[fhir.Extension]{{URL: "http://example.org/a/b"}},
		}},
		ModifierExtension: fhir.List[fhir.Extension]{{URL: "http://example.org/m"}},
		Identifier: fhir.List[fhir.Identifier]{{
			Value:    "MRN-1",
			Type:     &fhir.CodeableConcept{Coding: fhir.List[fhir.Coding]{{Code: "MR"}}},
			Assigner: &fhir.Reference{Display: "Clinic"},
		}},
		Name:          fhir.List[fhir.HumanName]{{Family: "Meier", Given: fhir.List[string]{"Anna"}}},
		Telecom:       fhir.List[fhir.ContactPoint]{{Value: "+41 44 000 00 00"}},
		Gender:        GenderFemale,
		BirthDate:     "1992-09-02",
		Deceased:      &Deceased{DeceasedBoolean: boolPtr(false)},
		Address:       &fhir.Address{City: "Zurich"},
		MaritalStatus: &fhir.CodeableConcept{Text: "married"},
		Photo:         fhir.List[fhir.Attachment]{{Title: "portrait"}},
		Contact: fhir.List[Contact]{{
			Relationship: fhir.List[fhir.CodeableConcept]{{Text: "sister"}},
			Name:         fhir.List[fhir.HumanName]{{Text: "Eva Meier"}},
			Organization: &fhir.Reference{Display: "Employer"},
		}},
		Communication:        fhir.List[Communication]{{Language: "de-CH", Preferred: boolPtr(true)}},
		GeneralPractitioner:  fhir.List[fhir.Reference]{{Display: "Dr. House"}},
		ManagingOrganization: &fhir.Reference{Display: "Hospital"},
		Link:                 fhir.List[Link]{{Other: fhir.Reference{Display: "old record"}, Type: LinkReplaces}},
	}
}

func TestAssignIDs_FullPatient(t *testing.T) {
	p := fullPatient()
	n, err := fhir.AssignIDs(context.Background(), p, &seqGen{})
	if err != nil {
		t.Fatalf("AssignIDs: %v", err)
	}

	var total int
	fhir.Walk(p, func(node fhir.Node) bool {
		total++
		if node.NodeID() == "" {
			t.Errorf("node %T left without id", node)
		}
		return true
	})
	if n != total {
		t.Errorf("expected %d ids assigned, got %d", total, n)
	}
	if p.ID != "id-1" {
		t.Errorf("expected root visited first, got %q", p.ID)
	}
	if p.Meta.ID != "id-2" || p.Meta.Tag[0].ID != "id-3" || p.Text.ID != "id-4" {
		t.Errorf("expected pre-order meta, tag, text; got %q %q %q", p.Meta.ID, p.Meta.Tag[0].ID, p.Text.ID)
	}
	if p.Link[0].Other.ID == "" || p.Identifier[0].Assigner.ID == "" || p.Contact[0].Organization.ID == "" {
		t.Error("expected nested references to receive ids")
	}
	if got := p.Extension[0].Extension[0].ID; got == "" {
		t.Error("expected nested extension to receive an id")
	}
}

func TestAssignIDs_DeepExtensionChain(t *testing.T) {
	const depth = 10000
	p := &Patient{}
	cur := &p.Extension
	for i := 0; i < depth; i++ {
		*cur = fhir.List[fhir.Extension]{{URL: "http://example.org/nested"}}
		cur = &(*cur)[0].Extension
	}

	n, err := fhir.AssignIDs(context.Background(), p, &seqGen{})
	if err != nil {
		t.Fatalf("AssignIDs: %v", err)
	}
	if n != depth+1 {
		t.Errorf("expected %d ids, got %d", depth+1, n)
	}
}

func TestPatient_JSONWireRules(t *testing.T) {
	p := &Patient{Deceased: &Deceased{}, MultipleBirth: &MultipleBirth{MultipleBirthBoolean: boolPtr(true)}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)

	for _, want := range []string{`"name":[]`, `"link":[]`, `"contact":[]`, `"deceased":{"deceasedBoolean":null}`, `"multipleBirth":{"multipleBirthBoolean":true}`} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %s in %s", want, s)
		}
	}
	for _, absent := range []string{`"id"`, `"gender"`, `"birthDate"`, `"meta"`} {
		if strings.Contains(s, absent) {
			t.Errorf("expected %s omitted from %s", absent, s)
		}
	}
}

func TestPatient_UnmarshalDropsNulls(t *testing.T) {
	var p Patient
	body := `{"name":[null,{"family":"Meier","given":null}],"link":null,"gender":"FEMALE","deceased":{"deceasedBoolean":null,"deceasedDateTime":"2020-01-01"}}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(p.Name) != 1 || p.Name[0].Family != "Meier" {
		t.Errorf("expected one name after dropping null, got %+v", p.Name)
	}
	if p.Gender != GenderFemale {
		t.Errorf("expected FEMALE, got %q", p.Gender)
	}
	if p.Deceased == nil || p.Deceased.DeceasedBoolean != nil || p.Deceased.DeceasedDateTime != "2020-01-01" {
		t.Errorf("unexpected deceased %+v", p.Deceased)
	}
}

func TestPatient_UnmarshalRejectsUnknownCodes(t *testing.T) {
	cases := []string{
		`{"gender":"female"}`,
		`{"gender":"X"}`,
		`{"link":[{"other":{},"type":"MERGED"}]}`,
	}
	for _, body := range cases {
		var p Patient
		if err := json.Unmarshal([]byte(body), &p); err == nil {
			t.Errorf("expected error decoding %s", body)
		}
	}
}

func TestPatient_CloneIsIndependent(t *testing.T) {
	p := fullPatient()
	c, err := p.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	c.Name[0].Family = "Changed"
	c.Extension[0].Extension[0].URL = "changed"
	c.ID = "x"

	if p.Name[0].Family != "Meier" || p.Extension[0].Extension[0].URL != "http://example.org/a/b" || p.ID != "" {
		t.Error("mutating the clone changed the original")
	}
}

func TestPatient_Stub(t *testing.T) {
	p := &Patient{
		Element:   fhir.Element{ID: "abc"},
		Name:      fhir.List[fhir.HumanName]{{Text: "A Meier"}, {Family: "Meier", Given: fhir.List[string]{"Anna", "B"}}},
		BirthDate: "1992",
	}
	s := p.Stub("k")
	if s.ID != "abc" || s.BirthDate != "1992" || s.IterationKey != "k" {
		t.Errorf("unexpected stub %+v", s)
	}
	if len(s.Name) != 2 || s.Name[0] != "A Meier" || s.Name[1] != "Anna B Meier" {
		t.Errorf("unexpected stub names %v", s.Name)
	}

	data, _ := json.Marshal((&Patient{Element: fhir.Element{ID: "x"}}).Stub("k"))
	if string(data) != `{"id":"x","name":[],"iterationKey":"k"}` {
		t.Errorf("unexpected stub json %s", data)
	}
}
