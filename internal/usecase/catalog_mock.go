package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/macrolens/foodrecon/internal/domain"
)

// MockEntry is one fixture of the mock catalog
type MockEntry struct {
	FdcID int64
	Food  domain.NormalizedFood
}

// MockCatalog serves fixed fixtures, for local development and tests
type MockCatalog struct {
	mu      sync.RWMutex
	entries []MockEntry
}

// NewMockCatalog creates a mock catalog. With no entries it serves SampleFoods.
func NewMockCatalog(entries ...MockEntry) *MockCatalog {
	if len(entries) == 0 {
		entries = SampleFoods()
	}
	return &MockCatalog{entries: entries}
}

// Add registers another fixture
func (m *MockCatalog) Add(e MockEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

// Search returns fixtures whose name and brand contain every query token
func (m *MockCatalog) Search(ctx context.Context, query string) ([]domain.NormalizedFood, error) {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.NormalizedFood
	for _, e := range m.entries {
		haystack := strings.ToLower(e.Food.Name + " " + e.Food.Brand)
		if containsAll(haystack, tokens) {
			out = append(out, e.Food)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrProductNotFound
	}
	return out, nil
}

// Details returns the fixture registered under fdcID
func (m *MockCatalog) Details(ctx context.Context, fdcID int64) (*domain.NormalizedFood, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.FdcID == fdcID {
			food := e.Food
			return &food, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func containsAll(haystack string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

// SampleFoods is a small fixture set covering mass, volume and household logging
func SampleFoods() []MockEntry {
	f := func(v float64) *float64 { return &v }
	id := func(v int) *int { return &v }
	nutrient := func(nid int, name, unit string, amount float64) domain.NormalizedNutrient {
		return domain.NormalizedNutrient{ID: id(nid), Name: name, Unit: unit, Amount: f(amount), Basis: domain.BasisPer100Base, Source: domain.SourceFDC}
	}

	cola := domain.EmptyFood("fdc:1001", domain.SourceFDC)
	cola.Kind = domain.KindBranded
	cola.Name = "Cola, regular"
	cola.Brand = "Fizz"
	cola.BaseUnit = domain.BaseMilliliters
	cola.Barcode = "049000006346"
	cola.Barcodes = []string{"049000006346"}
	cola.DensityGPerMl = f(1.037)
	cola.Serving = &domain.Serving{Quantity: 355, Unit: domain.BaseMilliliters, Text: "1 can"}
	cola.Per100Base = []domain.NormalizedNutrient{
		nutrient(1008, "Energy", "kcal", 39),
		nutrient(1005, "Carbohydrate, by difference", "g", 10.6),
		nutrient(2000, "Total Sugars", "g", 10.6),
		nutrient(1093, "Sodium, Na", "mg", 4),
	}
	cola.Portions = []domain.NormalizedPortion{
		{Label: "1 can", Grams: f(368.1), Milliliters: f(355), Source: domain.SourceFDC, Quality: domain.QualityExact},
	}

	yogurt := domain.EmptyFood("fdc:1002", domain.SourceFDC)
	yogurt.Kind = domain.KindGeneric
	yogurt.Name = "Yogurt, Greek, plain, nonfat"
	yogurt.Serving = &domain.Serving{Quantity: 170, Unit: domain.BaseGrams, Text: "1 container"}
	yogurt.Per100Base = []domain.NormalizedNutrient{
		nutrient(1008, "Energy", "kcal", 59),
		nutrient(1003, "Protein", "g", 10.3),
		nutrient(1004, "Total lipid (fat)", "g", 0.4),
		nutrient(1005, "Carbohydrate, by difference", "g", 3.6),
		nutrient(1093, "Sodium, Na", "mg", 36),
	}
	yogurt.Portions = []domain.NormalizedPortion{
		{Label: "1 container", Grams: f(170), Source: domain.SourceFDC, Quality: domain.QualityExact},
	}

	oats := domain.EmptyFood("fdc:1003", domain.SourceFDC)
	oats.Kind = domain.KindGeneric
	oats.Name = "Oats, rolled, dry"
	oats.Per100Base = []domain.NormalizedNutrient{
		nutrient(1008, "Energy", "kcal", 379),
		nutrient(1003, "Protein", "g", 13.2),
		nutrient(1004, "Total lipid (fat)", "g", 6.5),
		nutrient(1005, "Carbohydrate, by difference", "g", 67.7),
		nutrient(1079, "Fiber, total dietary", "g", 10.1),
	}
	oats.Portions = []domain.NormalizedPortion{
		{Label: "1 cup", Grams: f(81), Source: domain.SourceFDC, Quality: domain.QualityExact},
	}

	out := []MockEntry{{1001, cola}, {1002, yogurt}, {1003, oats}}
	for i := range out {
		out[i].Food.StampProvenance()
		out[i].Food.RecomputeCompleteness()
	}
	return out
}
