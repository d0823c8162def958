package patient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ehr/patientstore/internal/platform/fhir"
)

type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderOther   Gender = "OTHER"
	GenderUnknown Gender = "UNKNOWN"
)

func (g *Gender) UnmarshalJSON(data []byte) error {
	return fhir.DecodeCode(data, g, GenderMale, GenderFemale, GenderOther, GenderUnknown)
}

// ParseGender returns the gender for code, or ErrInvalidGender.
func ParseGender(code string) (Gender, error) {
	switch g := Gender(code); g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, code)
}

type LinkType string

const (
	LinkReplacedBy LinkType = "REPLACED-BY"
	LinkReplaces   LinkType = "REPLACES"
	LinkRefer      LinkType = "REFER"
	LinkSeeAlso    LinkType = "SEEALSO"
)

func (t *LinkType) UnmarshalJSON(data []byte) error {
	return fhir.DecodeCode(data, t, LinkReplacedBy, LinkReplaces, LinkRefer, LinkSeeAlso)
}

// Patient is the stored document. Every nested element with an id field is
// a node for identity assignment.
type Patient struct {
	fhir.Element
	Meta                 *fhir.Meta                   `json:"meta,omitempty"`
	ImplicitRules        fhir.List[string]            `json:"implicitRules"`
	Language             string                       `json:"language,omitempty"`
	Text                 *fhir.Narrative              `json:"text,omitempty"`
	Contained            fhir.List[fhir.Resource]     `json:"contained"`
	Extension            fhir.List[fhir.Extension]    `json:"extension"`
	ModifierExtension    fhir.List[fhir.Extension]    `json:"modifierExtension"`
	Identifier           fhir.List[fhir.Identifier]   `json:"identifier"`
	Active               *bool                        `json:"active,omitempty"`
	Name                 fhir.List[fhir.HumanName]    `json:"name"`
	Telecom              fhir.List[fhir.ContactPoint] `json:"telecom"`
	Gender               Gender                       `json:"gender,omitempty"`
	BirthDate            string                       `json:"birthDate,omitempty"`
	Deceased             *Deceased                    `json:"deceased,omitempty"`
	Address              *fhir.Address                `json:"address,omitempty"`
	MaritalStatus        *fhir.CodeableConcept        `json:"maritalStatus,omitempty"`
	MultipleBirth        *MultipleBirth               `json:"multipleBirth,omitempty"`
	Photo                fhir.List[fhir.Attachment]   `json:"photo"`
	Contact              fhir.List[Contact]           `json:"contact"`
	Communication        fhir.List[Communication]     `json:"communication"`
	GeneralPractitioner  fhir.List[fhir.Reference]    `json:"generalPractitioner"`
	ManagingOrganization *fhir.Reference              `json:"managingOrganization,omitempty"`
	Link                 fhir.List[Link]              `json:"link"`
}

func (p *Patient) Children() []fhir.Node {
	out := fhir.AppendOpt(nil, p.Meta)
	out = fhir.AppendOpt(out, p.Text)
	out = fhir.AppendEach(out, p.Contained)
	out = fhir.AppendEach(out, p.Extension)
	out = fhir.AppendEach(out, p.ModifierExtension)
	out = fhir.AppendEach(out, p.Identifier)
	out = fhir.AppendEach(out, p.Name)
	out = fhir.AppendEach(out, p.Telecom)
	out = fhir.AppendOpt(out, p.Address)
	out = fhir.AppendOpt(out, p.MaritalStatus)
	out = fhir.AppendEach(out, p.Photo)
	out = fhir.AppendEach(out, p.Contact)
	out = fhir.AppendEach(out, p.Communication)
	out = fhir.AppendEach(out, p.GeneralPractitioner)
	out = fhir.AppendOpt(out, p.ManagingOrganization)
	return fhir.AppendEach(out, p.Link)
}

// Clone returns a deep copy of p.
func (p *Patient) Clone() (*Patient, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("clone patient: %w", err)
	}
	var out Patient
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone patient: %w", err)
	}
	return &out, nil
}

// Stub summarises p for a search result page.
func (p *Patient) Stub(iterationKey string) Stub {
	names := make(fhir.List[string], 0, len(p.Name))
	for i := range p.Name {
		names = append(names, p.Name[i].Display())
	}
	return Stub{
		ID:           p.ID,
		Name:         names,
		BirthDate:    p.BirthDate,
		IterationKey: iterationKey,
	}
}

// NameParts returns every text, family and given name recorded on p.
func (p *Patient) NameParts() []string {
	var parts []string
	for _, n := range p.Name {
		if n.Text != "" {
			parts = append(parts, n.Text)
		}
		if n.Family != "" {
			parts = append(parts, n.Family)
		}
		parts = append(parts, n.Given...)
	}
	return parts
}

type Deceased struct {
	DeceasedBoolean  *bool  `json:"deceasedBoolean"`
	DeceasedDateTime string `json:"deceasedDateTime,omitempty"`
}

type MultipleBirth struct {
	MultipleBirthBoolean *bool   `json:"multipleBirthBoolean"`
	MultipleBirthInteger *uint32 `json:"multipleBirthInteger,omitempty"`
}

type Contact struct {
	fhir.Element
	Extension         fhir.List[fhir.Extension]       `json:"extension"`
	ModifierExtension fhir.List[fhir.Extension]       `json:"modifierExtension"`
	Relationship      fhir.List[fhir.CodeableConcept] `json:"relationship"`
	Name              fhir.List[fhir.HumanName]       `json:"name"`
	Telecom           fhir.List[fhir.ContactPoint]    `json:"telecom"`
	Address           *fhir.Address                   `json:"address,omitempty"`
	Gender            Gender                          `json:"gender,omitempty"`
	Organization      *fhir.Reference                 `json:"organization,omitempty"`
	Period            *fhir.Period                    `json:"period,omitempty"`
}

func (c *Contact) Children() []fhir.Node {
	out := fhir.AppendEach(nil, c.Extension)
	out = fhir.AppendEach(out, c.ModifierExtension)
	out = fhir.AppendEach(out, c.Relationship)
	out = fhir.AppendEach(out, c.Name)
	out = fhir.AppendEach(out, c.Telecom)
	out = fhir.AppendOpt(out, c.Address)
	return fhir.AppendOpt(out, c.Organization)
}

type Communication struct {
	fhir.Element
	Extension         fhir.List[fhir.Extension] `json:"extension"`
	ModifierExtension fhir.List[fhir.Extension] `json:"modifierExtension"`
	Language          string                    `json:"language"`
	Preferred         *bool                     `json:"preferred,omitempty"`
}

func (c *Communication) Children() []fhir.Node {
	out := fhir.AppendEach(nil, c.Extension)
	return fhir.AppendEach(out, c.ModifierExtension)
}

// Link points at another patient record describing the same person.
type Link struct {
	fhir.Element
	Extension         fhir.List[fhir.Extension] `json:"extension"`
	ModifierExtension fhir.List[fhir.Extension] `json:"modifierExtension"`
	Other             fhir.Reference            `json:"other"`
	Type              LinkType                  `json:"type"`
}

func (l *Link) Children() []fhir.Node {
	out := fhir.AppendEach(nil, l.Extension)
	out = fhir.AppendEach(out, l.ModifierExtension)
	return append(out, &l.Other)
}

func (l *Link) Validate() error {
	if l.Type == "" {
		return errors.New("link type is required")
	}
	return nil
}

// Stub is one entry of a search result page.
type Stub struct {
	ID           string            `json:"id"`
	Name         fhir.List[string] `json:"name"`
	BirthDate    string            `json:"birthdate,omitempty"`
	IterationKey string            `json:"iterationKey"`
}
