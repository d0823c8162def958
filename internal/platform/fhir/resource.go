package fhir

import (
	"errors"
	"strings"
)

// Element is embedded by every datatype that carries its own identity.
type Element struct {
	ID string `json:"id,omitempty"`
}

func (e *Element) NodeID() string      { return e.ID }
func (e *Element) SetNodeID(id string) { e.ID = id }

// Resource is a contained resource. Only its envelope is modelled.
type Resource struct {
	Element
	Meta          *Meta        `json:"meta,omitempty"`
	ImplicitRules List[string] `json:"implicitRules"`
	Language      string       `json:"language,omitempty"`
}

func (r *Resource) Children() []Node {
	return AppendOpt(nil, r.Meta)
}

type Meta struct {
	Element
	Extension List[Extension] `json:"extension"`
	Source    string          `json:"source,omitempty"`
	Profile   List[string]    `json:"profile"`
	Security  List[Coding]    `json:"security"`
	Tag       List[Coding]    `json:"tag"`
}

func (m *Meta) Children() []Node {
	out := AppendEach(nil, m.Extension)
	out = AppendEach(out, m.Security)
	return AppendEach(out, m.Tag)
}

type Narrative struct {
	Element
	Extension List[Extension] `json:"extension"`
	Status    NarrativeStatus `json:"status"`
	Div       string          `json:"div"`
}

func (n *Narrative) Children() []Node {
	return AppendEach(nil, n.Extension)
}

func (n *Narrative) Validate() error {
	if n.Status == "" {
		return errors.New("narrative status is required")
	}
	return nil
}

// Extension may nest further extensions to any depth.
type Extension struct {
	Element
	Extension         List[Extension] `json:"extension"`
	URL               string          `json:"url"`
	ValueBase64Binary *string         `json:"valueBase64Binary,omitempty"`
	ValueBoolean      *bool           `json:"valueBoolean,omitempty"`
	ValueString       *string         `json:"valueString,omitempty"`
	ValueInteger      *int32          `json:"valueInteger,omitempty"`
}

func (e *Extension) Children() []Node {
	return AppendEach(nil, e.Extension)
}

type Coding struct {
	Element
	Extension    List[Extension] `json:"extension"`
	System       string          `json:"system,omitempty"`
	Version      string          `json:"version,omitempty"`
	Code         string          `json:"code,omitempty"`
	Display      string          `json:"display,omitempty"`
	UserSelected *bool           `json:"userSelected,omitempty"`
}

func (c *Coding) Children() []Node {
	return AppendEach(nil, c.Extension)
}

type CodeableConcept struct {
	Element
	Extension List[Extension] `json:"extension"`
	Coding    List[Coding]    `json:"coding"`
	Text      string          `json:"text,omitempty"`
}

func (c *CodeableConcept) Children() []Node {
	out := AppendEach(nil, c.Extension)
	return AppendEach(out, c.Coding)
}

type Identifier struct {
	Element
	Extension List[Extension]  `json:"extension"`
	Use       IdentifierUse    `json:"use,omitempty"`
	Type      *CodeableConcept `json:"type,omitempty"`
	System    string           `json:"system,omitempty"`
	Value     string           `json:"value,omitempty"`
	Period    *Period          `json:"period,omitempty"`
	Assigner  *Reference       `json:"assigner,omitempty"`
}

func (i *Identifier) Children() []Node {
	out := AppendEach(nil, i.Extension)
	out = AppendOpt(out, i.Type)
	return AppendOpt(out, i.Assigner)
}

type Reference struct {
	Element
	Extension  List[Extension] `json:"extension"`
	Reference  string          `json:"reference,omitempty"`
	Type       string          `json:"type,omitempty"`
	Identifier *Identifier     `json:"identifier,omitempty"`
	Display    string          `json:"display,omitempty"`
}

func (r *Reference) Children() []Node {
	out := AppendEach(nil, r.Extension)
	return AppendOpt(out, r.Identifier)
}

type HumanName struct {
	Element
	Extension List[Extension] `json:"extension"`
	Use       HumanNameUse    `json:"use,omitempty"`
	Text      string          `json:"text,omitempty"`
	Family    string          `json:"family,omitempty"`
	Given     List[string]    `json:"given"`
	Prefix    List[string]    `json:"prefix"`
	Suffix    List[string]    `json:"suffix"`
	Period    *Period         `json:"period,omitempty"`
}

func (h *HumanName) Children() []Node {
	return AppendEach(nil, h.Extension)
}

// Display renders the name as its text, or "given family" when no text is
// recorded.
func (h *HumanName) Display() string {
	if h.Text != "" {
		return h.Text
	}
	parts := make([]string, 0, len(h.Given)+1)
	parts = append(parts, h.Given...)
	if h.Family != "" {
		parts = append(parts, h.Family)
	}
	return strings.Join(parts, " ")
}

type ContactPoint struct {
	Element
	Extension List[Extension]    `json:"extension"`
	System    ContactPointSystem `json:"system,omitempty"`
	Value     string             `json:"value,omitempty"`
	Use       ContactPointUse    `json:"use,omitempty"`
	Rank      *uint32            `json:"rank,omitempty"`
	Period    *Period            `json:"period,omitempty"`
}

func (c *ContactPoint) Children() []Node {
	return AppendEach(nil, c.Extension)
}

type Address struct {
	Element
	Extension  List[Extension] `json:"extension"`
	Use        AddressUse      `json:"use,omitempty"`
	Type       AddressType     `json:"type,omitempty"`
	Text       string          `json:"text,omitempty"`
	Line       List[string]    `json:"line"`
	City       string          `json:"city,omitempty"`
	District   string          `json:"district,omitempty"`
	State      string          `json:"state,omitempty"`
	PostalCode string          `json:"postalCode,omitempty"`
	Country    string          `json:"country,omitempty"`
	Period     *Period         `json:"period,omitempty"`
}

func (a *Address) Children() []Node {
	return AppendEach(nil, a.Extension)
}

type Attachment struct {
	Element
	Extension   List[Extension] `json:"extension"`
	ContentType string          `json:"contentType,omitempty"`
	Language    string          `json:"language,omitempty"`
	Data        string          `json:"data,omitempty"`
	URL         string          `json:"url,omitempty"`
	Size        *uint32         `json:"size,omitempty"`
	Hash        string          `json:"hash,omitempty"`
	Title       string          `json:"title,omitempty"`
	Creation    string          `json:"creation,omitempty"`
}

func (a *Attachment) Children() []Node {
	return AppendEach(nil, a.Extension)
}

// Period is a plain value and carries no identity.
type Period struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}
