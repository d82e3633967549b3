package domain

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// HouseholdUnit is a named non-metric container with a gram equivalent, e.g. "1 can" = 368 g
type HouseholdUnit struct {
	Label string  `json:"label"`
	Grams float64 `json:"grams"`
}

// NewHouseholdUnit validates label and weight
func NewHouseholdUnit(label string, grams float64) (HouseholdUnit, error) {
	if NormalizeLabel(label) == "" || !(grams > 0) {
		return HouseholdUnit{}, ErrInvalidHouseholdUnit
	}
	return HouseholdUnit{Label: label, Grams: grams}, nil
}

// NormalizedLabel is the lookup key used when matching a household unit
func (u HouseholdUnit) NormalizedLabel() string {
	return NormalizeLabel(u.Label)
}

// FoodLoggingNutrients is the nutrient snapshot stored with a log entry.
// A nil field means "unknown"; it is never replaced with zero.
type FoodLoggingNutrients struct {
	EnergyKcal    *float64 `json:"energyKcal,omitempty"`
	ProteinG      *float64 `json:"proteinG,omitempty"`
	FatG          *float64 `json:"fatG,omitempty"`
	SaturatedFatG *float64 `json:"saturatedFatG,omitempty"`
	CarbsG        *float64 `json:"carbsG,omitempty"`
	FiberG        *float64 `json:"fiberG,omitempty"`
	SugarsG       *float64 `json:"sugarsG,omitempty"`
	AddedSugarsG  *float64 `json:"addedSugarsG,omitempty"`
	SodiumMg      *float64 `json:"sodiumMg,omitempty"`
	CholesterolMg *float64 `json:"cholesterolMg,omitempty"`
}

// Scaled multiplies every known field by factor and leaves unknown fields unknown
func (n FoodLoggingNutrients) Scaled(factor float64) FoodLoggingNutrients {
	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		s := *v * factor
		return &s
	}
	return FoodLoggingNutrients{
		EnergyKcal:    scale(n.EnergyKcal),
		ProteinG:      scale(n.ProteinG),
		FatG:          scale(n.FatG),
		SaturatedFatG: scale(n.SaturatedFatG),
		CarbsG:        scale(n.CarbsG),
		FiberG:        scale(n.FiberG),
		SugarsG:       scale(n.SugarsG),
		AddedSugarsG:  scale(n.AddedSugarsG),
		SodiumMg:      scale(n.SodiumMg),
		CholesterolMg: scale(n.CholesterolMg),
	}
}

// IsUnset reports whether every field is unknown
func (n FoodLoggingNutrients) IsUnset() bool {
	return n == FoodLoggingNutrients{}
}

// EncodeHouseholdUnits serializes household units for blob storage
func EncodeHouseholdUnits(units []HouseholdUnit) ([]byte, error) {
	data, err := json.Marshal(units)
	if err != nil {
		return nil, eris.Wrap(err, "encode household units")
	}
	return data, nil
}

// DecodeHouseholdUnits is the inverse of EncodeHouseholdUnits
func DecodeHouseholdUnits(data []byte) ([]HouseholdUnit, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var units []HouseholdUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, eris.Wrap(err, "decode household units")
	}
	return units, nil
}

// EncodeLoggingNutrients serializes a snapshot; unknown fields are omitted
func EncodeLoggingNutrients(n FoodLoggingNutrients) ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, eris.Wrap(err, "encode logging nutrients")
	}
	return data, nil
}

// DecodeLoggingNutrients is the inverse of EncodeLoggingNutrients
func DecodeLoggingNutrients(data []byte) (FoodLoggingNutrients, error) {
	var n FoodLoggingNutrients
	if len(data) == 0 {
		return n, nil
	}
	if err := json.Unmarshal(data, &n); err != nil {
		return FoodLoggingNutrients{}, eris.Wrap(err, "decode logging nutrients")
	}
	return n, nil
}

// FoodReference is the stored reference entity a log entry points at
type FoodReference struct {
	GID             string               `json:"gid"`
	Name            string               `json:"name"`
	Brand           string               `json:"brand,omitempty"`
	BaseUnit        BaseUnit             `json:"baseUnit"`
	Per100          FoodLoggingNutrients `json:"per100"`
	GramsPerServing *float64             `json:"gramsPerServing,omitempty"`
	DensityGPerMl   *float64             `json:"densityGPerMl,omitempty"`
	HouseholdUnits  []HouseholdUnit      `json:"householdUnits,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// LogEntry records an amount of a reference food eaten at a point in time
type LogEntry struct {
	ID        string               `json:"id"`
	FoodGID   string               `json:"foodGid"`
	Quantity  float64              `json:"quantity"`
	Unit      ServingUnit          `json:"unit"`
	Grams     *float64             `json:"grams,omitempty"`
	Nutrients FoodLoggingNutrients `json:"nutrients"`
	LoggedAt  time.Time            `json:"loggedAt"`
}
