package usecase

import (
	"strings"

	"github.com/macrolens/foodrecon/internal/domain"
	"github.com/macrolens/foodrecon/internal/infrastructure/usda"
)

// CalculateSnapshot scales per-100 g nutrients to the mass implied by a logged quantity.
// When the quantity cannot be resolved the snapshot is entirely unset, not zero.
func CalculateSnapshot(
	per100 domain.FoodLoggingNutrients,
	quantity float64,
	unit domain.ServingUnit,
	gramsPerServing *float64,
	densityGPerMl *float64,
	householdUnits []domain.HouseholdUnit,
) domain.FoodLoggingNutrients {
	grams, ok := ResolveToGrams(quantity, unit, gramsPerServing, densityGPerMl, householdUnits)
	if !ok {
		return domain.FoodLoggingNutrients{}
	}
	return per100.Scaled(grams / 100.0)
}

// loggingField binds one snapshot field to the catalog nutrients that feed it
type loggingField struct {
	ids   []int // in preference order
	names []string
	unit  string
	set   func(*domain.FoodLoggingNutrients, *float64)
}

var loggingFields = []loggingField{
	{
		ids: []int{usda.NutrientIDEnergy, usda.NutrientIDEnergyGeneral, usda.NutrientIDEnergySpecific}, names: []string{"energy"}, unit: "kcal",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.EnergyKcal = v },
	},
	{
		ids: []int{usda.NutrientIDProtein}, names: []string{"protein"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.ProteinG = v },
	},
	{
		ids: []int{usda.NutrientIDTotalFat}, names: []string{"total lipid (fat)", "fat"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.FatG = v },
	},
	{
		ids: []int{usda.NutrientIDSaturatedFat}, names: []string{"fatty acids, total saturated", "saturated fat"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.SaturatedFatG = v },
	},
	{
		ids: []int{usda.NutrientIDCarbohydrate}, names: []string{"carbohydrate, by difference", "carbohydrates"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.CarbsG = v },
	},
	{
		ids: []int{usda.NutrientIDFiber}, names: []string{"fiber, total dietary", "fiber"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.FiberG = v },
	},
	{
		ids: []int{usda.NutrientIDTotalSugars}, names: []string{"total sugars", "sugars"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.SugarsG = v },
	},
	{
		ids: []int{usda.NutrientIDAddedSugars}, names: []string{"sugars, added", "added sugars"}, unit: "g",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.AddedSugarsG = v },
	},
	{
		ids: []int{usda.NutrientIDSodium}, names: []string{"sodium, na", "sodium"}, unit: "mg",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.SodiumMg = v },
	},
	{
		ids: []int{usda.NutrientIDCholesterol}, names: []string{"cholesterol"}, unit: "mg",
		set: func(n *domain.FoodLoggingNutrients, v *float64) { n.CholesterolMg = v },
	},
}

// LoggingNutrientsFromFood projects a food's per-100 list onto the snapshot fields.
// Matching is by FoodData Central id first, then by name. Fields with no
// matching entry, or whose entry has no amount, stay unset.
func LoggingNutrientsFromFood(food domain.NormalizedFood) domain.FoodLoggingNutrients {
	var out domain.FoodLoggingNutrients
	for _, f := range loggingFields {
		if n, ok := findNutrient(food.Per100Base, f); ok {
			f.set(&out, convertAmount(n, f.unit))
		}
	}
	return out
}

func findNutrient(list []domain.NormalizedNutrient, f loggingField) (domain.NormalizedNutrient, bool) {
	for _, id := range f.ids {
		for _, n := range list {
			if n.ID != nil && *n.ID == id && compatibleUnit(n.Unit, f.unit) {
				return n, true
			}
		}
	}
	for _, name := range f.names {
		for _, n := range list {
			if n.ID == nil && strings.EqualFold(strings.TrimSpace(n.Name), name) && compatibleUnit(n.Unit, f.unit) {
				return n, true
			}
		}
	}
	return domain.NormalizedNutrient{}, false
}

// compatibleUnit rejects kJ energy and anything we cannot convert
func compatibleUnit(unit, want string) bool {
	unit = strings.ToLower(strings.TrimSpace(unit))
	switch want {
	case "kcal":
		return unit == "kcal"
	case "mg":
		return unit == "mg" || unit == "g"
	default:
		return unit == want || unit == ""
	}
}

func convertAmount(n domain.NormalizedNutrient, want string) *float64 {
	if n.Amount == nil {
		return nil
	}
	v := *n.Amount
	if want == "mg" && strings.EqualFold(strings.TrimSpace(n.Unit), "g") {
		v *= 1000
	}
	return &v
}
