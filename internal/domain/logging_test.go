package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHouseholdUnit(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		grams   float64
		wantErr bool
	}{
		{name: "valid", label: "1 can", grams: 368},
		{name: "blank label", label: "  ", grams: 10, wantErr: true},
		{name: "zero grams", label: "cup", grams: 0, wantErr: true},
		{name: "negative grams", label: "cup", grams: -3, wantErr: true},
		{name: "NaN grams", label: "cup", grams: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hu, err := NewHouseholdUnit(tt.label, tt.grams)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidHouseholdUnit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.label, hu.Label)
			assert.Equal(t, tt.grams, hu.Grams)
		})
	}
}

func TestHouseholdUnitsBlob(t *testing.T) {
	units := []HouseholdUnit{{Label: "1 can", Grams: 368}, {Label: "Slice", Grams: 28.5}}
	data, err := EncodeHouseholdUnits(units)
	require.NoError(t, err)

	back, err := DecodeHouseholdUnits(data)
	require.NoError(t, err)
	assert.Equal(t, units, back)

	empty, err := DecodeHouseholdUnits(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeHouseholdUnits([]byte("{"))
	assert.Error(t, err)
}

func TestLoggingNutrientsBlobKeepsUnknown(t *testing.T) {
	n := FoodLoggingNutrients{EnergyKcal: f64(120), SodiumMg: f64(0)}
	data, err := EncodeLoggingNutrients(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"energyKcal":120,"sodiumMg":0}`, string(data))

	back, err := DecodeLoggingNutrients(data)
	require.NoError(t, err)
	require.NotNil(t, back.SodiumMg, "zero is not unknown")
	assert.Equal(t, 0.0, *back.SodiumMg)
	assert.Nil(t, back.ProteinG)
}

func TestScaled(t *testing.T) {
	n := FoodLoggingNutrients{EnergyKcal: f64(50), FatG: f64(2)}
	s := n.Scaled(2.5)
	assert.Equal(t, 125.0, *s.EnergyKcal)
	assert.Equal(t, 5.0, *s.FatG)
	assert.Nil(t, s.ProteinG)
	assert.Equal(t, 50.0, *n.EnergyKcal, "receiver is not modified")

	assert.True(t, FoodLoggingNutrients{}.IsUnset())
	assert.False(t, s.IsUnset())
}
