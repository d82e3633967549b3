package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolens/foodrecon/internal/domain"
)

func ip(v int) *int { return &v }

func TestCalculateSnapshot(t *testing.T) {
	per100 := domain.FoodLoggingNutrients{
		EnergyKcal: fp(200),
		ProteinG:   fp(10),
		SodiumMg:   fp(0),
	}

	t.Run("scales known fields by grams over 100", func(t *testing.T) {
		got := CalculateSnapshot(per100, 2, domain.Servings(), fp(150), nil, nil)
		require.NotNil(t, got.EnergyKcal)
		assert.InDelta(t, 600, *got.EnergyKcal, 1e-9)
		assert.InDelta(t, 30, *got.ProteinG, 1e-9)
		assert.Equal(t, 0.0, *got.SodiumMg, "a known zero stays a known zero")
		assert.Nil(t, got.FatG, "unknown stays unknown")
		assert.Nil(t, got.CholesterolMg)
	})

	t.Run("unresolvable amount yields an all-unset snapshot", func(t *testing.T) {
		got := CalculateSnapshot(per100, 1, domain.Milliliters(), nil, nil, nil)
		assert.True(t, got.IsUnset())
	})

	t.Run("household unit", func(t *testing.T) {
		got := CalculateSnapshot(per100, 1, domain.Household("1 can"), nil, nil,
			[]domain.HouseholdUnit{{Label: "1 can", Grams: 368}})
		assert.InDelta(t, 736, *got.EnergyKcal, 1e-9)
	})
}

func TestScaledPreservesUnknown(t *testing.T) {
	for _, factor := range []float64{0, 0.5, 1, 3.68, 1e6} {
		n := domain.FoodLoggingNutrients{EnergyKcal: fp(39), FiberG: nil}
		s := n.Scaled(factor)
		require.NotNil(t, s.EnergyKcal)
		assert.InDelta(t, 39*factor, *s.EnergyKcal, 1e-9)
		assert.Nil(t, s.FiberG)

		assert.Nil(t, domain.FoodLoggingNutrients{}.Scaled(factor).EnergyKcal)
	}
}

func TestLoggingNutrientsFromFood(t *testing.T) {
	food := domain.EmptyFood("fdc:1", domain.SourceFDC)
	food.Per100Base = []domain.NormalizedNutrient{
		{ID: ip(2047), Name: "Energy (Atwater General Factors)", Unit: "kcal", Amount: fp(120)},
		{ID: ip(1008), Name: "Energy", Unit: "kcal", Amount: fp(118)},
		{ID: ip(1003), Name: "Protein", Unit: "g", Amount: fp(4)},
		{ID: ip(1004), Name: "Total lipid (fat)", Unit: "g"},
		{Name: "Sodium, Na", Unit: "g", Amount: fp(0.4), Source: domain.SourceOpenFoodFacts},
		{Name: "Fiber, total dietary", Unit: "g", Amount: fp(2.5), Source: domain.SourceOpenFoodFacts},
		{ID: ip(1062), Name: "Energy", Unit: "kJ", Amount: fp(494)},
	}

	got := LoggingNutrientsFromFood(food)
	require.NotNil(t, got.EnergyKcal)
	assert.Equal(t, 118.0, *got.EnergyKcal, "1008 is preferred over the Atwater fallbacks")
	assert.Equal(t, 4.0, *got.ProteinG)
	assert.Nil(t, got.FatG, "an entry without amount stays unknown")
	require.NotNil(t, got.SodiumMg)
	assert.InDelta(t, 400, *got.SodiumMg, 1e-9, "grams converted to milligrams")
	assert.Equal(t, 2.5, *got.FiberG)
	assert.Nil(t, got.CarbsG)
	assert.Nil(t, got.CholesterolMg)
}

func TestLoggingNutrientsFromFood_EnergyFallback(t *testing.T) {
	food := domain.EmptyFood("fdc:2", domain.SourceFDC)
	food.Per100Base = []domain.NormalizedNutrient{
		{ID: ip(2048), Name: "Energy (Atwater Specific Factors)", Unit: "KCAL", Amount: fp(95)},
	}
	got := LoggingNutrientsFromFood(food)
	require.NotNil(t, got.EnergyKcal)
	assert.Equal(t, 95.0, *got.EnergyKcal)
}
