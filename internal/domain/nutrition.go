package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// USDAFood represents a food item from the USDA FoodData Central API.
// The same struct decodes both search results and the detail endpoint.
type USDAFood struct {
	FdcID                    int64               `json:"fdcId"`
	Description              string              `json:"description"`
	DataType                 string              `json:"dataType"`
	GTINUPC                  string              `json:"gtinUpc,omitempty"`
	BrandOwner               string              `json:"brandOwner,omitempty"`
	BrandName                string              `json:"brandName,omitempty"`
	Ingredients              string              `json:"ingredients,omitempty"`
	ServingSize              float64             `json:"servingSize,omitempty"`
	ServingSizeUnit          string              `json:"servingSizeUnit,omitempty"`
	HouseholdServingFullText string              `json:"householdServingFullText,omitempty"`
	BrandedFoodCategory      string              `json:"brandedFoodCategory,omitempty"`
	FoodCategory             USDACategory        `json:"foodCategory,omitempty"`
	Nutrients                []USDANutrient      `json:"foodNutrients"`
	LabelNutrients           *USDALabelNutrients `json:"labelNutrients,omitempty"`
	Portions                 []USDAPortion       `json:"foodPortions,omitempty"`
}

// USDANutrient represents a single nutrient from USDA data
type USDANutrient struct {
	NutrientID     int     `json:"nutrientId"`
	NutrientName   string  `json:"nutrientName"`
	NutrientNumber string  `json:"nutrientNumber,omitempty"`
	UnitName       string  `json:"unitName"`
	Value          float64 `json:"value"`

	// set when the payload carried the entry without an amount
	missing bool
}

// HasValue reports whether the entry carried an amount
func (n USDANutrient) HasValue() bool { return !n.missing }

// UnmarshalJSON accepts the flat search shape and the nested detail shape:
//
//	{"nutrientId":1003,"nutrientName":"Protein","unitName":"G","value":3.2}
//	{"nutrient":{"id":1003,"name":"Protein","unitName":"g"},"amount":3.2}
func (n *USDANutrient) UnmarshalJSON(data []byte) error {
	var raw struct {
		NutrientID     int      `json:"nutrientId"`
		NutrientName   string   `json:"nutrientName"`
		NutrientNumber string   `json:"nutrientNumber"`
		UnitName       string   `json:"unitName"`
		Value          *float64 `json:"value"`
		Amount         *float64 `json:"amount"`
		Nutrient       *struct {
			ID       int    `json:"id"`
			Number   string `json:"number"`
			Name     string `json:"name"`
			UnitName string `json:"unitName"`
		} `json:"nutrient"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = USDANutrient{
		NutrientID:     raw.NutrientID,
		NutrientName:   raw.NutrientName,
		NutrientNumber: raw.NutrientNumber,
		UnitName:       raw.UnitName,
	}
	if raw.Nutrient != nil {
		n.NutrientID = raw.Nutrient.ID
		n.NutrientName = raw.Nutrient.Name
		n.NutrientNumber = raw.Nutrient.Number
		n.UnitName = raw.Nutrient.UnitName
	}
	switch {
	case raw.Value != nil:
		n.Value = *raw.Value
	case raw.Amount != nil:
		n.Value = *raw.Amount
	default:
		n.missing = true
	}
	return nil
}

// USDACategory decodes foodCategory, which is a plain string in search
// results and an object in the detail endpoint
type USDACategory struct {
	ID          int    `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *USDACategory) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Description)
	}
	type plain USDACategory
	return json.Unmarshal(data, (*plain)(c))
}

// USDALabelValue is one entry of the branded label panel
type USDALabelValue struct {
	Value *float64 `json:"value"`
}

// USDALabelNutrients holds per-serving values printed on a branded label
type USDALabelNutrients struct {
	Calories      *USDALabelValue `json:"calories,omitempty"`
	Protein       *USDALabelValue `json:"protein,omitempty"`
	Fat           *USDALabelValue `json:"fat,omitempty"`
	SaturatedFat  *USDALabelValue `json:"saturatedFat,omitempty"`
	Carbohydrates *USDALabelValue `json:"carbohydrates,omitempty"`
	Fiber         *USDALabelValue `json:"fiber,omitempty"`
	Sugars        *USDALabelValue `json:"sugars,omitempty"`
	AddedSugar    *USDALabelValue `json:"addedSugar,omitempty"`
	Sodium        *USDALabelValue `json:"sodium,omitempty"`
	Cholesterol   *USDALabelValue `json:"cholesterol,omitempty"`
}

// USDAPortion is a measured portion from Foundation/SR Legacy/Survey foods
type USDAPortion struct {
	Amount             float64 `json:"amount"`
	GramWeight         float64 `json:"gramWeight"`
	Modifier           string  `json:"modifier,omitempty"`
	PortionDescription string  `json:"portionDescription,omitempty"`
	MeasureUnit        struct {
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"measureUnit"`
}

// USDASearchResponse represents the response from USDA search API
type USDASearchResponse struct {
	Foods       []USDAFood `json:"foods"`
	TotalHits   int        `json:"totalHits"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
}

// OFFEnvelope is the Open Food Facts product endpoint response
type OFFEnvelope struct {
	Code    string      `json:"code"`
	Status  int         `json:"status"`
	Product *OFFProduct `json:"product"`
}

// OFFProduct is the subset of an Open Food Facts product we normalize
type OFFProduct struct {
	Code                string         `json:"code"`
	ProductName         string         `json:"product_name"`
	ProductNameEn       string         `json:"product_name_en"`
	GenericName         string         `json:"generic_name"`
	Brands              string         `json:"brands"`
	ImageURL            string         `json:"image_url"`
	ImageFrontURL       string         `json:"image_front_url"`
	IngredientsText     string         `json:"ingredients_text"`
	IngredientsTextEn   string         `json:"ingredients_text_en"`
	ServingSize         string         `json:"serving_size"`
	ServingQuantity     FlexFloat      `json:"serving_quantity"`
	ServingQuantityUnit string         `json:"serving_quantity_unit"`
	NutritionDataPer    string         `json:"nutrition_data_per"`
	CategoriesTags      []string       `json:"categories_tags"`
	Nutriments          map[string]any `json:"nutriments"`
}

// OFFSearchResponse is the Open Food Facts search endpoint response.
// Products stay raw so that one malformed product does not discard the page.
type OFFSearchResponse struct {
	Count    int               `json:"count"`
	Products []json.RawMessage `json:"products"`
}

// FlexFloat decodes numbers that the open catalog sometimes sends as strings
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		// unparseable free text is treated as absent
		return nil
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
