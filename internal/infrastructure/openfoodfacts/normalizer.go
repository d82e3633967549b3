package openfoodfacts

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/macrolens/foodrecon/internal/domain"
)

// nutriment maps an Open Food Facts nutriment key onto the canonical
// FoodData Central naming so that merged records de-duplicate by name and unit
type nutriment struct {
	key  string
	name string
	unit string
	mul  float64 // OFF stores everything in grams; mg nutrients are scaled
}

var nutriments = []nutriment{
	{"energy-kcal", "Energy", "kcal", 1},
	{"proteins", "Protein", "g", 1},
	{"fat", "Total lipid (fat)", "g", 1},
	{"saturated-fat", "Fatty acids, total saturated", "g", 1},
	{"carbohydrates", "Carbohydrate, by difference", "g", 1},
	{"sugars", "Total Sugars", "g", 1},
	{"added-sugars", "Sugars, added", "g", 1},
	{"fiber", "Fiber, total dietary", "g", 1},
	{"sodium", "Sodium, Na", "mg", 1000},
	{"cholesterol", "Cholesterol", "mg", 1000},
}

const kjPerKcal = 4.184

var (
	// "30 g", "355ml", "2,5 cl"
	metricAmountPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(mg|g|gr|grams?|ml|cl|dl|l)\b`)
	parenPattern        = regexp.MustCompile(`\s*\(.*\)\s*`)
)

// GID returns the global id of an Open Food Facts product
func GID(barcode string) string {
	return "off:" + strings.TrimSpace(barcode)
}

// Normalize decodes a product envelope (or a bare product) into the canonical shape.
// A payload that cannot be decoded yields an empty record carrying the requested barcode.
func Normalize(barcode string, raw []byte) domain.NormalizedFood {
	product, err := decodeProduct(raw)
	if err != nil || product == nil {
		zap.L().Named("openfoodfacts").Warn("malformed product payload", zap.String("barcode", barcode), zap.Error(err))
		return domain.EmptyFood(GID(barcode), domain.SourceOpenFoodFacts)
	}
	if product.Code == "" {
		product.Code = barcode
	}
	return NormalizeProduct(product)
}

func decodeProduct(raw []byte) (*domain.OFFProduct, error) {
	raw = bytes.TrimSpace(raw)
	var envelope domain.OFFEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if envelope.Product != nil {
		if envelope.Product.Code == "" {
			envelope.Product.Code = envelope.Code
		}
		return envelope.Product, nil
	}
	var product domain.OFFProduct
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, err
	}
	if product.Code == "" && product.ProductName == "" && len(product.Nutriments) == 0 {
		return nil, nil
	}
	return &product, nil
}

// NormalizeProduct converts a decoded product into the canonical shape
func NormalizeProduct(p *domain.OFFProduct) domain.NormalizedFood {
	out := domain.EmptyFood(GID(p.Code), domain.SourceOpenFoodFacts)
	out.Kind = domain.KindProduct
	out.Name = firstNonEmpty(p.ProductName, p.ProductNameEn, p.GenericName)
	out.Brand = strings.TrimSpace(strings.Split(p.Brands, ",")[0])
	out.ImageURL = firstNonEmpty(p.ImageFrontURL, p.ImageURL)
	out.Ingredients = firstNonEmpty(p.IngredientsText, p.IngredientsTextEn)
	out.CategoryIDs = p.CategoriesTags
	if code := strings.TrimSpace(p.Code); code != "" {
		out.Barcode = code
		out.Barcodes = []string{code}
	}
	if strings.EqualFold(strings.TrimSpace(p.NutritionDataPer), "100ml") {
		out.BaseUnit = domain.BaseMilliliters
	}

	parsed := parseServingText(p.ServingSize)
	out.Serving = servingFrom(p, parsed)
	if parsed.grams != nil && parsed.milliliters != nil && *parsed.milliliters > 0 {
		d := *parsed.grams / *parsed.milliliters
		out.DensityGPerMl = &d
	}
	if portion, ok := servingPortion(parsed); ok {
		out.Portions = append(out.Portions, portion)
	}

	var servingQty float64
	if out.Serving != nil && out.Serving.Unit == out.BaseUnit {
		servingQty = out.Serving.Quantity
	}
	out.Per100Base = normalizeNutriments(p.Nutriments, servingQty)

	out.StampProvenance()
	out.RecomputeCompleteness()
	return out
}

// normalizeNutriments reads <key>_100g, falling back to <key>_serving rescaled
// to 100 when the serving quantity in the base unit is known
func normalizeNutriments(m map[string]any, servingQty float64) []domain.NormalizedNutrient {
	out := make([]domain.NormalizedNutrient, 0, len(nutriments))
	for _, n := range nutriments {
		v, ok := per100(m, n.key, servingQty)
		if !ok && n.key == "energy-kcal" {
			if kj, found := per100(m, "energy-kj", servingQty); found {
				v, ok = kj/kjPerKcal, true
			}
		}
		if !ok {
			continue
		}
		amount := v * n.mul
		out = append(out, domain.NormalizedNutrient{
			Name:   n.name,
			Unit:   n.unit,
			Amount: &amount,
			Basis:  domain.BasisPer100Base,
			Source: domain.SourceOpenFoodFacts,
		})
	}
	return out
}

func per100(m map[string]any, key string, servingQty float64) (float64, bool) {
	if v, ok := extractFloat(m, key+"_100g"); ok {
		return v, true
	}
	if servingQty > 0 {
		if v, ok := extractFloat(m, key+"_serving"); ok {
			return v * 100 / servingQty, true
		}
	}
	return 0, false
}

// extractFloat coerces a nutriments map value to float64
func extractFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return 0, false
		}
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(x), ",", "."), 64)
		if err == nil && f >= 0 {
			return f, true
		}
	}
	return 0, false
}

type servingText struct {
	label       string
	grams       *float64
	milliliters *float64
}

// parseServingText pulls masses and volumes out of free text such as
// "1 can (355 ml)" or "250 ml (258 g)"
func parseServingText(text string) servingText {
	text = strings.TrimSpace(text)
	out := servingText{label: strings.TrimSpace(parenPattern.ReplaceAllString(text, " "))}
	if out.label == "" {
		out.label = text
	}
	for _, match := range metricAmountPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
		if err != nil || v <= 0 {
			continue
		}
		switch strings.ToLower(match[2]) {
		case "mg":
			setOnce(&out.grams, v/1000)
		case "g", "gr", "gram", "grams":
			setOnce(&out.grams, v)
		case "ml":
			setOnce(&out.milliliters, v)
		case "cl":
			setOnce(&out.milliliters, v*10)
		case "dl":
			setOnce(&out.milliliters, v*100)
		case "l":
			setOnce(&out.milliliters, v*1000)
		}
	}
	return out
}

func setOnce(dst **float64, v float64) {
	if *dst == nil {
		*dst = &v
	}
}

func servingFrom(p *domain.OFFProduct, parsed servingText) *domain.Serving {
	text := strings.TrimSpace(p.ServingSize)
	if p.ServingQuantity.Valid && p.ServingQuantity.Value > 0 {
		unit := domain.BaseGrams
		if strings.EqualFold(strings.TrimSpace(p.ServingQuantityUnit), "ml") {
			unit = domain.BaseMilliliters
		}
		return &domain.Serving{Quantity: p.ServingQuantity.Value, Unit: unit, Text: text}
	}
	switch {
	case parsed.grams != nil:
		return &domain.Serving{Quantity: *parsed.grams, Unit: domain.BaseGrams, Text: text}
	case parsed.milliliters != nil:
		return &domain.Serving{Quantity: *parsed.milliliters, Unit: domain.BaseMilliliters, Text: text}
	}
	return nil
}

func servingPortion(parsed servingText) (domain.NormalizedPortion, bool) {
	if parsed.label == "" || (parsed.grams == nil && parsed.milliliters == nil) {
		return domain.NormalizedPortion{}, false
	}
	return domain.NormalizedPortion{
		Label:       parsed.label,
		Grams:       parsed.grams,
		Milliliters: parsed.milliliters,
		Source:      domain.SourceOpenFoodFacts,
		Quality:     domain.QualityInferred,
	}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
