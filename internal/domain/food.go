package domain

import (
	"strings"
)

// SourceTag identifies the catalog a value came from
type SourceTag string

const (
	SourceFDC           SourceTag = "fdc" // USDA FoodData Central (authoritative)
	SourceOpenFoodFacts SourceTag = "off" // Open Food Facts (crowd-sourced)
	SourceUser          SourceTag = "user"
)

// FoodKind classifies a normalized record
type FoodKind string

const (
	KindBranded FoodKind = "branded"
	KindGeneric FoodKind = "generic"
	KindProduct FoodKind = "product"
)

// BaseUnit is the unit the per-100 nutrient basis is expressed in
type BaseUnit string

const (
	BaseGrams       BaseUnit = "g"
	BaseMilliliters BaseUnit = "ml"
)

// NutrientBasis says what quantity a nutrient amount refers to
type NutrientBasis string

const (
	BasisPer100Base NutrientBasis = "per100"
	BasisPerServing NutrientBasis = "perServing"
)

// EstimateQuality describes how a portion weight was obtained
type EstimateQuality string

const (
	QualityExact    EstimateQuality = "exact"
	QualityInferred EstimateQuality = "inferred"
	QualityGuessed  EstimateQuality = "guessed"
)

// NormalizedFood is the canonical shape both catalogs are normalized into.
// All entries of Per100Base are expressed per 100 units of BaseUnit.
type NormalizedFood struct {
	GID           string               `json:"gid"`
	Source        SourceTag            `json:"source"`
	Kind          FoodKind             `json:"kind"`
	Barcode       string               `json:"barcode,omitempty"`
	Barcodes      []string             `json:"barcodes,omitempty"`
	Name          string               `json:"name"`
	Brand         string               `json:"brand,omitempty"`
	BaseUnit      BaseUnit             `json:"baseUnit"`
	Per100Base    []NormalizedNutrient `json:"per100Base"`
	DensityGPerMl *float64             `json:"densityGPerMl,omitempty"`
	Serving       *Serving             `json:"serving,omitempty"`
	Portions      []NormalizedPortion  `json:"portions"`
	Ingredients   string               `json:"ingredients,omitempty"`
	ImageURL      string               `json:"imageUrl,omitempty"`
	CategoryIDs   []string             `json:"categoryIds,omitempty"`
	UserOverrides map[string]string    `json:"userOverrides,omitempty"`
	Completeness  Completeness         `json:"completeness"`
	Provenance    map[string]string    `json:"provenance,omitempty"`
}

// NormalizedNutrient is one entry of a sparse nutrient vector.
// A nil Amount means unknown, which is not the same as zero.
type NormalizedNutrient struct {
	ID     *int          `json:"id,omitempty"`
	Name   string        `json:"name"`
	Unit   string        `json:"unit"`
	Amount *float64      `json:"amount,omitempty"`
	Basis  NutrientBasis `json:"basis"`
	Source SourceTag     `json:"source"`
}

// NormalizedPortion is a named serving with an optional resolved mass or volume
type NormalizedPortion struct {
	Label       string          `json:"label"`
	Grams       *float64        `json:"grams,omitempty"`
	Milliliters *float64        `json:"milliliters,omitempty"`
	Source      SourceTag       `json:"source"`
	Quality     EstimateQuality `json:"quality"`
}

// Serving is the catalog-declared serving size
type Serving struct {
	Quantity float64  `json:"quantity"`
	Unit     BaseUnit `json:"unit"`
	Text     string   `json:"text,omitempty"`
}

// Completeness summarizes which data categories are present
type Completeness struct {
	Core        bool `json:"core"`
	Label       bool `json:"label"`
	Micros      bool `json:"micros"`
	Portions    bool `json:"portions"`
	Ingredients bool `json:"ingredients"`
	Image       bool `json:"image"`
}

// Provenance keys
const (
	FieldName        = "name"
	FieldBrand       = "brand"
	FieldServing     = "serving"
	FieldImage       = "image"
	FieldIngredients = "ingredients"
	FieldBarcode     = "barcode"
	FieldNutrients   = "nutrients"
	FieldPortions    = "portions"
)

// EmptyFood returns a structurally valid record carrying only identity.
// Normalizers return it when a payload cannot be decoded.
func EmptyFood(gid string, source SourceTag) NormalizedFood {
	return NormalizedFood{
		GID:        gid,
		Source:     source,
		BaseUnit:   BaseGrams,
		Per100Base: []NormalizedNutrient{},
		Portions:   []NormalizedPortion{},
		Provenance: map[string]string{},
	}
}

// IsEmpty reports whether the record carries no data beyond identity
func (f NormalizedFood) IsEmpty() bool {
	return f.Name == "" && len(f.Per100Base) == 0 && len(f.Portions) == 0 && f.Serving == nil
}

// HasNutrients reports whether any per-100 nutrient has a known amount
func (f NormalizedFood) HasNutrients() bool {
	for _, n := range f.Per100Base {
		if n.Amount != nil {
			return true
		}
	}
	return false
}

// GramsPerServing converts the declared serving into grams when possible
func (f NormalizedFood) GramsPerServing() (float64, bool) {
	if f.Serving == nil || f.Serving.Quantity <= 0 {
		return 0, false
	}
	switch f.Serving.Unit {
	case BaseGrams:
		return f.Serving.Quantity, true
	case BaseMilliliters:
		if f.DensityGPerMl != nil && *f.DensityGPerMl > 0 {
			return f.Serving.Quantity * *f.DensityGPerMl, true
		}
	}
	return 0, false
}

// RecomputeCompleteness derives the completeness flags from the record's contents
func (f *NormalizedFood) RecomputeCompleteness() {
	hasNutrients := f.HasNutrients()
	hasServing := f.Serving != nil && f.Serving.Quantity > 0
	f.Completeness = Completeness{
		Core:        hasNutrients && hasServing,
		Label:       hasNutrients && hasServing,
		Micros:      hasNutrients,
		Portions:    len(f.Portions) > 0,
		Ingredients: strings.TrimSpace(f.Ingredients) != "",
		Image:       f.ImageURL != "",
	}
}

// NormalizeLabel is the matching key for portion and household labels
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// StampProvenance attributes every present field to the record's own source.
// Normalizers call it; the merge engine computes provenance itself.
func (f *NormalizedFood) StampProvenance() {
	tag := string(f.Source)
	p := map[string]string{}
	if f.Name != "" {
		p[FieldName] = tag
	}
	if f.Brand != "" {
		p[FieldBrand] = tag
	}
	if f.Serving != nil {
		p[FieldServing] = tag
	}
	if f.ImageURL != "" {
		p[FieldImage] = tag
	}
	if f.Ingredients != "" {
		p[FieldIngredients] = tag
	}
	if f.Barcode != "" {
		p[FieldBarcode] = tag
	}
	if s := NutrientSources(f.Per100Base); s != "" {
		p[FieldNutrients] = s
	}
	if s := PortionSources(f.Portions); s != "" {
		p[FieldPortions] = s
	}
	f.Provenance = p
}

// NutrientSources lists the distinct sources of a nutrient list in order of appearance, joined by "+"
func NutrientSources(nutrients []NormalizedNutrient) string {
	tags := make([]SourceTag, 0, len(nutrients))
	for _, n := range nutrients {
		tags = append(tags, n.Source)
	}
	return joinSources(tags)
}

// PortionSources lists the distinct sources of a portion list in order of appearance, joined by "+"
func PortionSources(portions []NormalizedPortion) string {
	tags := make([]SourceTag, 0, len(portions))
	for _, p := range portions {
		tags = append(tags, p.Source)
	}
	return joinSources(tags)
}

func joinSources(tags []SourceTag) string {
	seen := make(map[SourceTag]bool, 2)
	var parts []string
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		parts = append(parts, string(t))
	}
	return strings.Join(parts, "+")
}
