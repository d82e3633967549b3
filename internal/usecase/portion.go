package usecase

import (
	"github.com/macrolens/foodrecon/internal/domain"
)

// Densities outside this range are refused rather than trusted
const (
	MinDensityGPerMl = 0.2
	MaxDensityGPerMl = 2.0
)

// ResolveToGrams converts a logged quantity into an absolute mass.
// ok is false when no safe conversion exists; callers must branch on it.
// Volume is never converted with an assumed water density.
func ResolveToGrams(
	quantity float64,
	unit domain.ServingUnit,
	gramsPerServing *float64,
	densityGPerMl *float64,
	householdUnits []domain.HouseholdUnit,
) (grams float64, ok bool) {
	if !(quantity > 0) {
		return 0, false
	}

	switch unit.Kind {
	case domain.UnitGrams:
		return quantity, true

	case domain.UnitMilliliters:
		if !ValidDensity(densityGPerMl) {
			return 0, false
		}
		return quantity * *densityGPerMl, true

	case domain.UnitServing:
		if gramsPerServing == nil || !(*gramsPerServing > 0) {
			return 0, false
		}
		return quantity * *gramsPerServing, true

	case domain.UnitHousehold:
		key := domain.NormalizeLabel(unit.Label)
		if key == "" {
			return 0, false
		}
		for _, hu := range householdUnits {
			if hu.NormalizedLabel() == key && hu.Grams > 0 {
				return quantity * hu.Grams, true
			}
		}
	}

	return 0, false
}

// ValidDensity reports whether a density is present and inside the accepted range
func ValidDensity(densityGPerMl *float64) bool {
	return densityGPerMl != nil && *densityGPerMl >= MinDensityGPerMl && *densityGPerMl <= MaxDensityGPerMl
}

// MassUnit is a closed set of mass units
type MassUnit int

const (
	MassGrams MassUnit = iota
	MassKilograms
	MassOunces
	MassPounds
)

var gramsPerMassUnit = [...]float64{
	MassGrams:     1,
	MassKilograms: 1000,
	MassOunces:    28.349523125,
	MassPounds:    453.59237,
}

// ConvertMass converts between mass units
func ConvertMass(value float64, from, to MassUnit) float64 {
	return value * gramsPerMassUnit[from] / gramsPerMassUnit[to]
}

// VolumeUnit is a closed set of volume units
type VolumeUnit int

const (
	VolumeMilliliters VolumeUnit = iota
	VolumeLiters
	VolumeFluidOunces
)

var millilitersPerVolumeUnit = [...]float64{
	VolumeMilliliters: 1,
	VolumeLiters:      1000,
	VolumeFluidOunces: 29.5735295625,
}

// ConvertVolume converts between volume units
func ConvertVolume(value float64, from, to VolumeUnit) float64 {
	return value * millilitersPerVolumeUnit[from] / millilitersPerVolumeUnit[to]
}
