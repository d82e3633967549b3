package usecase

import (
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/macrolens/foodrecon/internal/domain"
)

// Portions whose masses differ by at most this much are treated as the same portion
const portionMassTolerance = 1.0

// MergeFoods combines two normalized records describing the same product.
// primary (the authoritative catalog) owns identity; secondary fills gaps and
// wins for image and ingredients. Neither input is modified. When either side
// is nil the other is returned as is.
//
// Merging is idempotent: MergeFoods(MergeFoods(a, b), b) equals MergeFoods(a, b).
func MergeFoods(primary, secondary *domain.NormalizedFood) *domain.NormalizedFood {
	if primary == nil {
		return secondary
	}
	if secondary == nil {
		return primary
	}

	merged := domain.NormalizedFood{
		GID:           primary.GID,
		Source:        primary.Source,
		Kind:          primary.Kind,
		BaseUnit:      primary.BaseUnit,
		Barcodes:      slices.Clone(primary.Barcodes),
		CategoryIDs:   slices.Clone(primary.CategoryIDs),
		UserOverrides: maps.Clone(primary.UserOverrides),
	}
	prov := map[string]string{}

	merged.Name = pickString(domain.FieldName, primary.Name, secondary.Name, primary, secondary, prov)
	merged.Brand = pickString(domain.FieldBrand, primary.Brand, secondary.Brand, primary, secondary, prov)
	merged.Barcode = pickString(domain.FieldBarcode, primary.Barcode, secondary.Barcode, primary, secondary, prov)
	merged.ImageURL = pickString(domain.FieldImage, secondary.ImageURL, primary.ImageURL, secondary, primary, prov)
	merged.Ingredients = pickString(domain.FieldIngredients, secondary.Ingredients, primary.Ingredients, secondary, primary, prov)

	switch {
	case primary.Serving != nil:
		s := *primary.Serving
		merged.Serving = &s
		prov[domain.FieldServing] = contributor(primary, domain.FieldServing)
	case secondary.Serving != nil:
		s := *secondary.Serving
		merged.Serving = &s
		prov[domain.FieldServing] = contributor(secondary, domain.FieldServing)
	}

	switch {
	case primary.DensityGPerMl != nil:
		d := *primary.DensityGPerMl
		merged.DensityGPerMl = &d
	case secondary.DensityGPerMl != nil:
		d := *secondary.DensityGPerMl
		merged.DensityGPerMl = &d
	}

	merged.Per100Base = mergeNutrients(primary.Per100Base, rebase(secondary, primary.BaseUnit, merged.DensityGPerMl))
	merged.Portions = mergePortions(primary.Portions, secondary.Portions)

	if s := domain.NutrientSources(merged.Per100Base); s != "" {
		prov[domain.FieldNutrients] = s
	}
	if s := domain.PortionSources(merged.Portions); s != "" {
		prov[domain.FieldPortions] = s
	}
	merged.Provenance = prov
	merged.RecomputeCompleteness()
	return &merged
}

// pickString takes preferred when present, otherwise fallback, and records who supplied it
func pickString(field, preferred, fallback string, pf, ff *domain.NormalizedFood, prov map[string]string) string {
	switch {
	case preferred != "":
		prov[field] = contributor(pf, field)
		return preferred
	case fallback != "":
		prov[field] = contributor(ff, field)
		return fallback
	}
	return ""
}

// contributor is the attribution a record carries for a field, defaulting to its own source
func contributor(f *domain.NormalizedFood, field string) string {
	if tag := f.Provenance[field]; tag != "" {
		return tag
	}
	return string(f.Source)
}

// rebase returns secondary's per-100 list on the primary's basis. Lists on a
// different basis are converted through density, or dropped when none is known.
func rebase(secondary *domain.NormalizedFood, base domain.BaseUnit, density *float64) []domain.NormalizedNutrient {
	if secondary.BaseUnit == base || len(secondary.Per100Base) == 0 {
		return secondary.Per100Base
	}
	if !ValidDensity(density) {
		return nil
	}
	// per 100 ml = per 100 g * density
	factor := *density
	if base == domain.BaseGrams {
		factor = 1 / *density
	}
	out := make([]domain.NormalizedNutrient, 0, len(secondary.Per100Base))
	for _, n := range secondary.Per100Base {
		if n.Amount != nil {
			v := *n.Amount * factor
			n.Amount = &v
		}
		out = append(out, n)
	}
	return out
}

func mergeNutrients(primary, secondary []domain.NormalizedNutrient) []domain.NormalizedNutrient {
	out := make([]domain.NormalizedNutrient, 0, len(primary)+len(secondary))
	ids := make(map[int]bool, len(primary))
	keys := make(map[string]bool, len(primary))
	for _, n := range primary {
		out = append(out, n)
		if n.ID != nil {
			ids[*n.ID] = true
		}
		keys[nutrientKey(n)] = true
	}
	for _, n := range secondary {
		if n.ID != nil && ids[*n.ID] {
			continue
		}
		if keys[nutrientKey(n)] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// nutrientKey is the case-insensitive (name, unit) pair. An empty name is a name like any other.
func nutrientKey(n domain.NormalizedNutrient) string {
	return strings.ToLower(strings.TrimSpace(n.Name)) + "|" + strings.ToLower(strings.TrimSpace(n.Unit))
}

func mergePortions(primary, secondary []domain.NormalizedPortion) []domain.NormalizedPortion {
	out := make([]domain.NormalizedPortion, 0, len(primary)+len(secondary))
	out = append(out, primary...)
	for _, s := range secondary {
		if !conflictsWithAny(s, primary) {
			out = append(out, s)
		}
	}
	return out
}

func conflictsWithAny(candidate domain.NormalizedPortion, portions []domain.NormalizedPortion) bool {
	label := domain.NormalizeLabel(candidate.Label)
	for _, p := range portions {
		if domain.NormalizeLabel(p.Label) == label {
			return true
		}
		if p.Grams != nil && candidate.Grams != nil && math.Abs(*p.Grams-*candidate.Grams) <= portionMassTolerance {
			return true
		}
	}
	return false
}
