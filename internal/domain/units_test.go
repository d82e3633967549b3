package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServingUnit(t *testing.T) {
	tests := map[string]ServingUnit{
		"g":        Grams(),
		" Grams ":  Grams(),
		"ml":       Milliliters(),
		"ML":       Milliliters(),
		"serving":  Servings(),
		"servings": Servings(),
		"1 can":    Household("1 can"),
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseServingUnit(in), "input %q", in)
	}
}

func TestServingUnitValid(t *testing.T) {
	assert.True(t, Grams().Valid())
	assert.True(t, Household("cup").Valid())
	assert.False(t, Household("  ").Valid())
	assert.False(t, ServingUnit{}.Valid())
	assert.False(t, ServingUnit{Kind: "bushel"}.Valid())

	assert.Equal(t, "grams", Grams().String())
	assert.Equal(t, "1 can", Household("1 can").String())
}

func TestServingUnitJSON(t *testing.T) {
	var body struct {
		A ServingUnit `json:"a"`
		B ServingUnit `json:"b"`
		C ServingUnit `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"ml","b":"1 can","c":{"kind":"serving"}}`), &body))
	assert.Equal(t, Milliliters(), body.A)
	assert.Equal(t, Household("1 can"), body.B)
	assert.Equal(t, Servings(), body.C)

	out, err := json.Marshal(Household("cup"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"household","label":"cup"}`, string(out))
}

func TestUSDANutrientDecodesBothShapes(t *testing.T) {
	var flat, nested, missing USDANutrient
	require.NoError(t, json.Unmarshal([]byte(`{"nutrientId":1003,"nutrientName":"Protein","unitName":"G","value":3.2}`), &flat))
	require.NoError(t, json.Unmarshal([]byte(`{"nutrient":{"id":1003,"name":"Protein","unitName":"g"},"amount":3.2}`), &nested))
	require.NoError(t, json.Unmarshal([]byte(`{"nutrient":{"id":1093,"name":"Sodium, Na","unitName":"mg"}}`), &missing))

	assert.Equal(t, 1003, flat.NutrientID)
	assert.Equal(t, 1003, nested.NutrientID)
	assert.Equal(t, 3.2, flat.Value)
	assert.Equal(t, 3.2, nested.Value)
	assert.Equal(t, "Protein", nested.NutrientName)
	assert.True(t, flat.HasValue())
	assert.False(t, missing.HasValue())
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{in: `40`, want: 40, valid: true},
		{in: `"12.5"`, want: 12.5, valid: true},
		{in: `"2,5"`, want: 2.5, valid: true},
		{in: `null`},
		{in: `""`},
		{in: `"about a cup"`},
	}
	for _, tt := range tests {
		var f FlexFloat
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f), tt.in)
		assert.Equal(t, tt.valid, f.Valid, tt.in)
		assert.Equal(t, tt.want, f.Value, tt.in)
	}
}

func TestUSDACategoryDecodesStringOrObject(t *testing.T) {
	var a, b USDACategory
	require.NoError(t, json.Unmarshal([]byte(`"Dairy"`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"description":"Dairy"}`), &b))
	assert.Equal(t, "Dairy", a.Description)
	assert.Equal(t, USDACategory{ID: 1, Description: "Dairy"}, b)
}
