package usda

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolens/foodrecon/internal/domain"
)

const foundationMilk = `{
	"fdcId": 746782,
	"description": "Milk, whole, 3.25% milkfat",
	"dataType": "Foundation",
	"foodCategory": {"id": 1, "description": "Dairy and Egg Products"},
	"foodNutrients": [
		{"nutrient": {"id": 1003, "name": "Protein", "unitName": "g"}, "amount": 3.27},
		{"nutrient": {"id": 1004, "name": "Total lipid (fat)", "unitName": "g"}, "amount": 3.2},
		{"nutrient": {"id": 2048, "name": "Energy (Atwater Specific Factors)", "unitName": "kcal"}, "amount": 60},
		{"nutrient": {"id": 1093, "name": "Sodium, Na", "unitName": "mg"}},
		{"nutrient": {"id": 1253, "name": "Cholesterol", "unitName": "mg"}, "amount": 12}
	],
	"foodPortions": [
		{"amount": 1, "gramWeight": 244, "measureUnit": {"name": "cup", "abbreviation": "cup"}},
		{"amount": 1, "gramWeight": 0, "measureUnit": {"name": "tablespoon"}},
		{"amount": 2, "gramWeight": 30.5, "measureUnit": {"name": "undetermined"}, "modifier": "tbsp"}
	]
}`

const brandedBar = `{
	"fdcId": 2101,
	"description": "PROTEIN BAR",
	"dataType": "Branded",
	"gtinUpc": "0850000001",
	"brandOwner": "Bar Co",
	"brandName": "BarBrand",
	"ingredients": "peanuts, whey",
	"brandedFoodCategory": "Snack Bars",
	"servingSize": 50,
	"servingSizeUnit": "g",
	"householdServingFullText": "1 bar",
	"foodNutrients": [
		{"nutrientId": 1004, "nutrientName": "Total lipid (fat)", "unitName": "G", "value": 16}
	],
	"labelNutrients": {"calories": {"value": 200}, "protein": {"value": 20}}
}`

func nutrientByID(f domain.NormalizedFood, id int) *domain.NormalizedNutrient {
	for i := range f.Per100Base {
		if n := f.Per100Base[i]; n.ID != nil && *n.ID == id {
			return &f.Per100Base[i]
		}
	}
	return nil
}

func TestNormalize_DetailShape(t *testing.T) {
	f := Normalize(746782, []byte(foundationMilk))

	assert.Equal(t, "fdc:746782", f.GID)
	assert.Equal(t, domain.SourceFDC, f.Source)
	assert.Equal(t, domain.KindGeneric, f.Kind)
	assert.Equal(t, domain.BaseGrams, f.BaseUnit)
	assert.Equal(t, []string{"fdc:dairy-and-egg-products"}, f.CategoryIDs)

	sodium := nutrientByID(f, NutrientIDSodium)
	require.NotNil(t, sodium)
	assert.Nil(t, sodium.Amount, "entry without an amount stays unknown")

	energy := nutrientByID(f, NutrientIDEnergy)
	require.NotNil(t, energy, "energy is synthesized from the Atwater entry")
	assert.Equal(t, 60.0, *energy.Amount)
	assert.Equal(t, "kcal", energy.Unit)

	require.Len(t, f.Portions, 2)
	assert.Equal(t, "1 cup", f.Portions[0].Label)
	assert.Equal(t, 244.0, *f.Portions[0].Grams)
	assert.InDelta(t, 236.588, *f.Portions[0].Milliliters, 1e-3)
	assert.Equal(t, "2 tbsp", f.Portions[1].Label)

	require.NotNil(t, f.DensityGPerMl)
	assert.InDelta(t, 244/236.5882365, *f.DensityGPerMl, 1e-9)
	assert.Equal(t, "fdc", f.Provenance[domain.FieldNutrients])
	assert.False(t, f.Completeness.Core, "no serving declared")
}

func TestNormalize_BrandedWithLabelFallback(t *testing.T) {
	f := Normalize(2101, []byte(brandedBar))

	assert.Equal(t, domain.KindBranded, f.Kind)
	assert.Equal(t, "BarBrand", f.Brand)
	assert.Equal(t, "0850000001", f.Barcode)
	assert.Equal(t, "peanuts, whey", f.Ingredients)
	require.NotNil(t, f.Serving)
	assert.Equal(t, 50.0, f.Serving.Quantity)

	energy := nutrientByID(f, NutrientIDEnergy)
	require.NotNil(t, energy)
	assert.Equal(t, 400.0, *energy.Amount, "label values are per serving")
	protein := nutrientByID(f, NutrientIDProtein)
	require.NotNil(t, protein)
	assert.Equal(t, 40.0, *protein.Amount)
	fat := nutrientByID(f, NutrientIDTotalFat)
	require.NotNil(t, fat)
	assert.Equal(t, 16.0, *fat.Amount)
	assert.Equal(t, "g", fat.Unit)

	require.Len(t, f.Portions, 1)
	assert.Equal(t, "1 bar", f.Portions[0].Label)
	assert.Equal(t, domain.QualityInferred, f.Portions[0].Quality)
	assert.True(t, f.Completeness.Core)
}

func TestNormalize_SearchShape(t *testing.T) {
	var resp domain.USDASearchResponse
	require.NoError(t, json.Unmarshal([]byte(`{"foods":[{
		"fdcId": 9,
		"description": "Orange juice",
		"dataType": "Survey (FNDDS)",
		"foodCategory": "Juices",
		"servingSizeUnit": "MLT",
		"foodNutrients": [{"nutrientId": 1008, "nutrientName": "Energy", "unitName": "KCAL", "value": 45}]
	}]}`), &resp))

	f := NormalizeFood(&resp.Foods[0])
	assert.Equal(t, "fdc:9", f.GID)
	assert.Equal(t, domain.BaseMilliliters, f.BaseUnit)
	assert.Equal(t, []string{"fdc:juices"}, f.CategoryIDs)
	energy := nutrientByID(f, NutrientIDEnergy)
	require.NotNil(t, energy)
	assert.Equal(t, 45.0, *energy.Amount)
}

func TestNormalize_Malformed(t *testing.T) {
	for _, raw := range []string{``, `not json`, `{"fdcId": "abc"}`, `[1,2]`} {
		f := Normalize(77, []byte(raw))
		assert.Equal(t, "fdc:77", f.GID, "input %q", raw)
		assert.True(t, f.IsEmpty(), "input %q", raw)
	}
}

func TestNormalize_ProteinFollowsListOrder(t *testing.T) {
	protein := `{"nutrient": {"id": 1003, "name": "Protein", "unitName": "g"}, "amount": 3.0}`
	nitrogen := `{"nutrient": {"id": 1002, "name": "Nitrogen", "unitName": "g"}, "amount": 1.0}`

	tests := []struct {
		name      string
		nutrients string
		want      float64
	}{
		{name: "nitrogen last", nutrients: protein + "," + nitrogen, want: 6.25},
		{name: "protein last", nutrients: nitrogen + "," + protein, want: 3.0},
		{name: "nitrogen only", nutrients: nitrogen, want: 6.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"fdcId": 9, "description": "Lentils", "foodNutrients": [` + tt.nutrients + `]}`
			var food domain.USDAFood
			require.NoError(t, json.Unmarshal([]byte(raw), &food))

			f := Normalize(9, []byte(raw))
			p := nutrientByID(f, NutrientIDProtein)
			require.NotNil(t, p)
			require.NotNil(t, p.Amount)
			assert.InDelta(t, tt.want, *p.Amount, 1e-9)
			assert.InDelta(t, ParseMacros(food.Nutrients, nil).Protein, *p.Amount, 1e-9)
		})
	}
}

func TestNormalize_LabelReplacesZeroMacro(t *testing.T) {
	raw := `{
		"fdcId": 10, "description": "BAR", "dataType": "Branded",
		"servingSize": 50, "servingSizeUnit": "g",
		"foodNutrients": [{"nutrientId": 1003, "nutrientName": "Protein", "unitName": "G", "value": 0}],
		"labelNutrients": {"protein": {"value": 10}}
	}`
	f := Normalize(10, []byte(raw))
	p := nutrientByID(f, NutrientIDProtein)
	require.NotNil(t, p)
	assert.InDelta(t, 20.0, *p.Amount, 1e-9)
	assert.Len(t, f.Per100Base, 1, "no duplicate protein entry")
}
