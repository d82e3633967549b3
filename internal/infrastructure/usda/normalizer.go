package usda

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/macrolens/foodrecon/internal/domain"
)

// millilitersPerMeasure converts FDC portion measure units to milliliters
var millilitersPerMeasure = map[string]float64{
	"cup":         236.5882365,
	"tablespoon":  14.78676478125,
	"tbsp":        14.78676478125,
	"teaspoon":    4.92892159375,
	"tsp":         4.92892159375,
	"fl oz":       29.5735295625,
	"fluid ounce": 29.5735295625,
	"ml":          1,
	"milliliter":  1,
	"liter":       1000,
	"l":           1000,
}

// canonicalMacros are the per-100 entries whose amounts come from ParseMacros,
// including when the payload only carries them indirectly (nitrogen, Atwater energy, label panel)
var canonicalMacros = []struct {
	id   int
	name string
	unit string
	get  func(MacroNutrients) float64
}{
	{NutrientIDEnergy, "Energy", "kcal", func(m MacroNutrients) float64 { return m.EnergyKcal }},
	{NutrientIDProtein, "Protein", "g", func(m MacroNutrients) float64 { return m.Protein }},
	{NutrientIDTotalFat, "Total lipid (fat)", "g", func(m MacroNutrients) float64 { return m.Fat }},
	{NutrientIDCarbohydrate, "Carbohydrate, by difference", "g", func(m MacroNutrients) float64 { return m.Carbohydrates }},
}

// GID returns the global id of a FoodData Central food
func GID(fdcID int64) string {
	return "fdc:" + strconv.FormatInt(fdcID, 10)
}

// Normalize decodes a raw detail payload into the canonical shape.
// A payload that cannot be decoded yields an empty record carrying the requested id.
func Normalize(fdcID int64, raw []byte) domain.NormalizedFood {
	var food domain.USDAFood
	if err := json.Unmarshal(raw, &food); err != nil {
		zap.L().Named("usda").Warn("malformed food payload", zap.Int64("fdc_id", fdcID), zap.Error(err))
		return domain.EmptyFood(GID(fdcID), domain.SourceFDC)
	}
	if food.FdcID == 0 {
		food.FdcID = fdcID
	}
	return NormalizeFood(&food)
}

// NormalizeFood converts an already decoded food (search result or detail) into the canonical shape
func NormalizeFood(food *domain.USDAFood) domain.NormalizedFood {
	out := domain.EmptyFood(GID(food.FdcID), domain.SourceFDC)
	out.Kind = domain.KindGeneric
	if strings.EqualFold(food.DataType, "Branded") {
		out.Kind = domain.KindBranded
	}
	out.Name = strings.TrimSpace(food.Description)
	out.Brand = firstNonEmpty(food.BrandName, food.BrandOwner)
	out.BaseUnit = baseUnit(food.ServingSizeUnit)
	out.Ingredients = strings.TrimSpace(food.Ingredients)

	if gtin := strings.TrimSpace(food.GTINUPC); gtin != "" {
		out.Barcode = gtin
		out.Barcodes = []string{gtin}
	}
	if c := firstNonEmpty(food.BrandedFoodCategory, food.FoodCategory.Description); c != "" {
		out.CategoryIDs = []string{categoryID(c)}
	}

	if food.ServingSize > 0 {
		out.Serving = &domain.Serving{
			Quantity: food.ServingSize,
			Unit:     out.BaseUnit,
			Text:     strings.TrimSpace(food.HouseholdServingFullText),
		}
	}

	out.Per100Base = normalizeNutrients(food.Nutrients)
	macros := ParseMacros(food.Nutrients, labelPer100(food.LabelNutrients, out.Serving))
	out.Per100Base = withCanonicalMacros(out.Per100Base, macros)

	out.Portions, out.DensityGPerMl = normalizePortions(food.Portions)
	if out.Serving != nil && out.Serving.Text != "" {
		out.Portions = appendServingPortion(out.Portions, out.Serving)
	}

	out.StampProvenance()
	out.RecomputeCompleteness()
	return out
}

func normalizeNutrients(nutrients []domain.USDANutrient) []domain.NormalizedNutrient {
	out := make([]domain.NormalizedNutrient, 0, len(nutrients))
	for _, n := range nutrients {
		if n.NutrientID == 0 && n.NutrientName == "" {
			continue
		}
		nn := domain.NormalizedNutrient{
			Name:   n.NutrientName,
			Unit:   strings.ToLower(n.UnitName),
			Basis:  domain.BasisPer100Base,
			Source: domain.SourceFDC,
		}
		if n.NutrientID != 0 {
			id := n.NutrientID
			nn.ID = &id
		}
		if n.HasValue() {
			v := n.Value
			nn.Amount = &v
		}
		out = append(out, nn)
	}
	return out
}

// withCanonicalMacros stores each macro the parser found under its canonical id.
// The parsed value replaces the amount of an existing entry, so nitrogen-derived
// protein and label fallbacks decide the record exactly as ParseMacros does.
func withCanonicalMacros(list []domain.NormalizedNutrient, m MacroNutrients) []domain.NormalizedNutrient {
	for _, c := range canonicalMacros {
		v := c.get(m)
		if v == 0 {
			continue
		}
		if i := indexOfNutrient(list, c.id); i >= 0 {
			amount := v
			list[i].Amount = &amount
			continue
		}
		id, amount := c.id, v
		list = append(list, domain.NormalizedNutrient{
			ID:     &id,
			Name:   c.name,
			Unit:   c.unit,
			Amount: &amount,
			Basis:  domain.BasisPer100Base,
			Source: domain.SourceFDC,
		})
	}
	return list
}

func indexOfNutrient(list []domain.NormalizedNutrient, id int) int {
	for i := range list {
		if list[i].ID != nil && *list[i].ID == id {
			return i
		}
	}
	return -1
}

// labelPer100 rescales the per-serving label panel to the per-100 basis
func labelPer100(label *domain.USDALabelNutrients, serving *domain.Serving) *domain.USDALabelNutrients {
	if label == nil || serving == nil || serving.Quantity <= 0 {
		return nil
	}
	factor := 100.0 / serving.Quantity
	scale := func(v *domain.USDALabelValue) *domain.USDALabelValue {
		if v == nil || v.Value == nil {
			return nil
		}
		s := *v.Value * factor
		return &domain.USDALabelValue{Value: &s}
	}
	return &domain.USDALabelNutrients{
		Calories:      scale(label.Calories),
		Protein:       scale(label.Protein),
		Fat:           scale(label.Fat),
		Carbohydrates: scale(label.Carbohydrates),
	}
}

// normalizePortions converts measured portions and infers density from the first volume measure
func normalizePortions(portions []domain.USDAPortion) ([]domain.NormalizedPortion, *float64) {
	out := make([]domain.NormalizedPortion, 0, len(portions))
	var density *float64
	for _, p := range portions {
		if p.GramWeight <= 0 {
			continue
		}
		grams := p.GramWeight
		np := domain.NormalizedPortion{
			Label:   portionLabel(p),
			Grams:   &grams,
			Source:  domain.SourceFDC,
			Quality: domain.QualityExact,
		}
		amount := p.Amount
		if amount <= 0 {
			amount = 1
		}
		if perUnit, ok := millilitersPerMeasure[strings.ToLower(measureName(p))]; ok {
			ml := amount * perUnit
			np.Milliliters = &ml
			if density == nil {
				d := grams / ml
				density = &d
			}
		}
		if np.Label == "" {
			continue
		}
		out = append(out, np)
	}
	return out, density
}

func appendServingPortion(portions []domain.NormalizedPortion, serving *domain.Serving) []domain.NormalizedPortion {
	key := domain.NormalizeLabel(serving.Text)
	for _, p := range portions {
		if domain.NormalizeLabel(p.Label) == key {
			return portions
		}
	}
	qty := serving.Quantity
	p := domain.NormalizedPortion{
		Label:   serving.Text,
		Source:  domain.SourceFDC,
		Quality: domain.QualityInferred,
	}
	if serving.Unit == domain.BaseMilliliters {
		p.Milliliters = &qty
	} else {
		p.Grams = &qty
	}
	return append(portions, p)
}

func portionLabel(p domain.USDAPortion) string {
	if d := strings.TrimSpace(p.PortionDescription); d != "" && !strings.EqualFold(d, "Quantity not specified") {
		return d
	}
	unit := measureName(p)
	if unit == "" {
		return ""
	}
	amount := p.Amount
	if amount <= 0 {
		amount = 1
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s", strconv.FormatFloat(amount, 'f', -1, 64), unit))
}

func measureName(p domain.USDAPortion) string {
	name := strings.TrimSpace(p.MeasureUnit.Name)
	if name == "" || strings.EqualFold(name, "undetermined") {
		return strings.TrimSpace(p.Modifier)
	}
	return name
}

func baseUnit(servingSizeUnit string) domain.BaseUnit {
	switch strings.ToLower(strings.TrimSpace(servingSizeUnit)) {
	case "ml", "mlt", "milliliter", "milliliters":
		return domain.BaseMilliliters
	default:
		return domain.BaseGrams
	}
}

func categoryID(description string) string {
	return "fdc:" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(description)), " ", "-")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
