package usda

import (
	"github.com/macrolens/foodrecon/internal/domain"
)

// USDA Nutrient IDs. Energy is kcal, masses are grams except sodium and cholesterol (mg).
const (
	NutrientIDNitrogen       = 1002
	NutrientIDProtein        = 1003
	NutrientIDTotalFat       = 1004
	NutrientIDCarbohydrate   = 1005
	NutrientIDEnergy         = 1008
	NutrientIDFiber          = 1079
	NutrientIDSodium         = 1093
	NutrientIDAddedSugars    = 1235
	NutrientIDCholesterol    = 1253
	NutrientIDSaturatedFat   = 1258
	NutrientIDTotalSugars    = 2000
	NutrientIDEnergyGeneral  = 2047 // Atwater general factors
	NutrientIDEnergySpecific = 2048 // Atwater specific factors

	nitrogenToProteinFactor = 6.25
)

// MacroNutrients are the four headline macros. Zero means "not found";
// callers that need to tell unknown from zero must not rely on this struct.
type MacroNutrients struct {
	EnergyKcal    float64
	Protein       float64
	Fat           float64
	Carbohydrates float64
}

// ParseMacros extracts the macros from a nutrient list with an optional label fallback.
//
// Both the nitrogen and the direct protein entry assign protein when seen,
// so if a list carries both the one that comes last wins. Energy from the
// Atwater factor entries only fills energy that is still zero.
// After the scan, label values fill any macro that is still exactly zero.
func ParseMacros(nutrients []domain.USDANutrient, label *domain.USDALabelNutrients) MacroNutrients {
	var m MacroNutrients

	for _, n := range nutrients {
		switch n.NutrientID {
		case NutrientIDEnergy:
			m.EnergyKcal = n.Value
		case NutrientIDEnergyGeneral, NutrientIDEnergySpecific:
			if m.EnergyKcal == 0 {
				m.EnergyKcal = n.Value
			}
		case NutrientIDNitrogen:
			m.Protein = n.Value * nitrogenToProteinFactor
		case NutrientIDProtein:
			m.Protein = n.Value
		case NutrientIDTotalFat:
			m.Fat = n.Value
		case NutrientIDCarbohydrate:
			m.Carbohydrates = n.Value
		}
	}

	if label == nil {
		return m
	}
	fill := func(dst *float64, v *domain.USDALabelValue) {
		if *dst == 0 && v != nil && v.Value != nil {
			*dst = *v.Value
		}
	}
	fill(&m.EnergyKcal, label.Calories)
	fill(&m.Protein, label.Protein)
	fill(&m.Fat, label.Fat)
	fill(&m.Carbohydrates, label.Carbohydrates)

	return m
}
