package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// UnitKind enumerates the ways a logged quantity can be expressed
type UnitKind string

const (
	UnitGrams       UnitKind = "grams"
	UnitMilliliters UnitKind = "milliliters"
	UnitServing     UnitKind = "serving"
	UnitHousehold   UnitKind = "household"
)

// ServingUnit is the unit of a logged quantity. Label is only meaningful for household units.
type ServingUnit struct {
	Kind  UnitKind `json:"kind"`
	Label string   `json:"label,omitempty"`
}

func Grams() ServingUnit       { return ServingUnit{Kind: UnitGrams} }
func Milliliters() ServingUnit { return ServingUnit{Kind: UnitMilliliters} }
func Servings() ServingUnit    { return ServingUnit{Kind: UnitServing} }

// Household returns a household unit referring to a named container
func Household(label string) ServingUnit {
	return ServingUnit{Kind: UnitHousehold, Label: label}
}

// ParseServingUnit reads the short textual form used by the CLI and query strings.
// Anything that is not a known metric or serving token is treated as a household label.
func ParseServingUnit(s string) ServingUnit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "g", "gram", "grams":
		return Grams()
	case "ml", "milliliter", "milliliters", "millilitre", "millilitres":
		return Milliliters()
	case "serving", "servings":
		return Servings()
	default:
		return Household(s)
	}
}

// Valid reports whether the unit is one of the known kinds
func (u ServingUnit) Valid() bool {
	switch u.Kind {
	case UnitGrams, UnitMilliliters, UnitServing:
		return true
	case UnitHousehold:
		return NormalizeLabel(u.Label) != ""
	}
	return false
}

func (u ServingUnit) String() string {
	if u.Kind == UnitHousehold {
		return u.Label
	}
	return string(u.Kind)
}

// UnmarshalJSON accepts the object form {"kind":"household","label":"1 can"}
// as well as the short string form used by ParseServingUnit ("g", "ml", "1 can").
func (u *ServingUnit) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = ParseServingUnit(s)
		return nil
	}
	type plain ServingUnit
	return json.Unmarshal(data, (*plain)(u))
}
