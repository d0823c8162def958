package fhir

import (
	"encoding/json"
	"fmt"
)

// Coded values travel as fixed uppercase codes. Decoding rejects anything
// outside the value set.

type NarrativeStatus string

const (
	NarrativeGenerated  NarrativeStatus = "GENERATED"
	NarrativeExtensions NarrativeStatus = "EXTENSIONS"
	NarrativeAdditional NarrativeStatus = "ADDITIONAL"
	NarrativeEmpty      NarrativeStatus = "EMPTY"
)

func (s *NarrativeStatus) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, s, NarrativeGenerated, NarrativeExtensions, NarrativeAdditional, NarrativeEmpty)
}

type HumanNameUse string

// HumanNameNickname keeps the historical "NICKCNAME" spelling so stored
// documents stay readable.
const (
	HumanNameUsual     HumanNameUse = "USUAL"
	HumanNameOfficial  HumanNameUse = "OFFICIAL"
	HumanNameTemp      HumanNameUse = "TEMP"
	HumanNameNickname  HumanNameUse = "NICKCNAME"
	HumanNameAnonymous HumanNameUse = "ANONYMOUS"
	HumanNameOld       HumanNameUse = "OLD"
	HumanNameMaiden    HumanNameUse = "MAIDEN"
)

func (u *HumanNameUse) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, u, HumanNameUsual, HumanNameOfficial, HumanNameTemp, HumanNameNickname,
		HumanNameAnonymous, HumanNameOld, HumanNameMaiden)
}

type IdentifierUse string

const (
	IdentifierUsual     IdentifierUse = "USUAL"
	IdentifierOfficial  IdentifierUse = "OFFICIAL"
	IdentifierTemp      IdentifierUse = "TEMP"
	IdentifierSecondary IdentifierUse = "SECONDARY"
	IdentifierOld       IdentifierUse = "OLD"
)

func (u *IdentifierUse) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, u, IdentifierUsual, IdentifierOfficial, IdentifierTemp, IdentifierSecondary, IdentifierOld)
}

type ContactPointSystem string

const (
	ContactPointPhone ContactPointSystem = "PHONE"
	ContactPointFax   ContactPointSystem = "FAX"
	ContactPointEmail ContactPointSystem = "EMAIL"
	ContactPointPager ContactPointSystem = "PAGER"
	ContactPointURL   ContactPointSystem = "URL"
	ContactPointSMS   ContactPointSystem = "SMS"
	ContactPointOther ContactPointSystem = "OTHER"
)

func (s *ContactPointSystem) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, s, ContactPointPhone, ContactPointFax, ContactPointEmail, ContactPointPager,
		ContactPointURL, ContactPointSMS, ContactPointOther)
}

type ContactPointUse string

const (
	ContactPointHome   ContactPointUse = "HOME"
	ContactPointWork   ContactPointUse = "WORK"
	ContactPointTemp   ContactPointUse = "TEMP"
	ContactPointOld    ContactPointUse = "OLD"
	ContactPointMobile ContactPointUse = "MOBILE"
)

func (u *ContactPointUse) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, u, ContactPointHome, ContactPointWork, ContactPointTemp, ContactPointOld, ContactPointMobile)
}

type AddressUse string

const (
	AddressHome    AddressUse = "HOME"
	AddressWork    AddressUse = "WORK"
	AddressTemp    AddressUse = "TEMP"
	AddressOld     AddressUse = "OLD"
	AddressBilling AddressUse = "BILLING"
)

func (u *AddressUse) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, u, AddressHome, AddressWork, AddressTemp, AddressOld, AddressBilling)
}

type AddressType string

const (
	AddressPostal   AddressType = "POSTAL"
	AddressPhysical AddressType = "PHYSICAL"
	AddressBoth     AddressType = "BOTH"
)

func (t *AddressType) UnmarshalJSON(data []byte) error {
	return DecodeCode(data, t, AddressPostal, AddressPhysical, AddressBoth)
}

// DecodeCode decodes a JSON string into dst, accepting only the listed
// codes. A JSON null leaves dst unset.
func DecodeCode[T ~string](data []byte, dst *T, allowed ...T) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	for _, code := range allowed {
		if string(code) == *raw {
			*dst = code
			return nil
		}
	}
	return fmt.Errorf("unknown code %q", *raw)
}
