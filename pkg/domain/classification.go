package domain

import (
	"encoding/json"
	"strings"
)

// StructureType classifies the growth structure of a specimen.
type StructureType string

// Known structure classifications. Anything else decodes as StructureUnknown.
const (
	StructureUnknown      StructureType = "unknown"
	StructureStromatolite StructureType = "stromatolite"
	StructureThrombolite  StructureType = "thrombolite"
	StructureDendrolite   StructureType = "dendrolite"
	StructureLeiolite     StructureType = "leiolite"
	StructureOncolite     StructureType = "oncolite"
)

// StructureTypes lists every structure classification in display order.
var StructureTypes = []StructureType{
	StructureUnknown,
	StructureStromatolite,
	StructureThrombolite,
	StructureDendrolite,
	StructureLeiolite,
	StructureOncolite,
}

// ParseStructureType maps raw input onto a known variant, falling back to
// StructureUnknown for empty or unrecognised values.
func ParseStructureType(raw string) StructureType {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for _, v := range StructureTypes {
		if string(v) == needle {
			return v
		}
	}
	return StructureUnknown
}

// Known reports whether the value is a concrete classification.
func (s StructureType) Known() bool { return ParseStructureType(string(s)) != StructureUnknown }

func (s StructureType) String() string { return string(ParseStructureType(string(s))) }

// MarshalJSON always writes the normalised variant.
func (s StructureType) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON never fails on unknown strings.
func (s *StructureType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = StructureUnknown
		return nil
	}
	*s = ParseStructureType(raw)
	return nil
}

// MineralType classifies the dominant mineralogy of a specimen.
type MineralType string

// Known mineral classifications. Anything else decodes as MineralUnknown.
const (
	MineralUnknown   MineralType = "unknown"
	MineralCalcite   MineralType = "calcite"
	MineralAragonite MineralType = "aragonite"
	MineralDolomite  MineralType = "dolomite"
	MineralSilica    MineralType = "silica"
	MineralOther     MineralType = "other"
)

// MineralTypes lists every mineral classification in display order.
var MineralTypes = []MineralType{
	MineralUnknown,
	MineralCalcite,
	MineralAragonite,
	MineralDolomite,
	MineralSilica,
	MineralOther,
}

// ParseMineralType maps raw input onto a known variant, falling back to MineralUnknown.
func ParseMineralType(raw string) MineralType {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for _, v := range MineralTypes {
		if string(v) == needle {
			return v
		}
	}
	return MineralUnknown
}

// Known reports whether the value is a concrete classification.
func (m MineralType) Known() bool { return ParseMineralType(string(m)) != MineralUnknown }

func (m MineralType) String() string { return string(ParseMineralType(string(m))) }

// MarshalJSON always writes the normalised variant.
func (m MineralType) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

// UnmarshalJSON never fails on unknown strings.
func (m *MineralType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*m = MineralUnknown
		return nil
	}
	*m = ParseMineralType(raw)
	return nil
}
