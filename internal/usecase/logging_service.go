package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/macrolens/foodrecon/internal/domain"
)

// LogRequest describes an amount of a stored reference food that was eaten
type LogRequest struct {
	FoodGID  string             `json:"foodGid" binding:"required"`
	Quantity float64            `json:"quantity"`
	Unit     domain.ServingUnit `json:"unit"`
	LoggedAt *time.Time         `json:"loggedAt,omitempty"`
}

// LoggingService turns catalog records into stored references and logs amounts of them
type LoggingService struct {
	catalog FoodCatalog
	store   domain.ReferenceStore
	now     func() time.Time
	newID   func() string
	log     *zap.Logger
}

// NewLoggingService creates a logging service
func NewLoggingService(catalog FoodCatalog, store domain.ReferenceStore) *LoggingService {
	return &LoggingService{
		catalog: catalog,
		store:   store,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		log:     zap.L().Named("logging"),
	}
}

// AddReference fetches a catalog record and stores it as a reference food
func (s *LoggingService) AddReference(ctx context.Context, fdcID int64) (*domain.FoodReference, error) {
	food, err := s.catalog.Details(ctx, fdcID)
	if err != nil {
		return nil, err
	}
	ref := ReferenceFromFood(*food, s.now().UTC())
	if err := s.store.SaveReference(ctx, ref); err != nil {
		return nil, err
	}
	s.log.Info("reference saved", zap.String("gid", ref.GID), zap.Int("household_units", len(ref.HouseholdUnits)))
	return ref, nil
}

// LogFood snapshots the reference's nutrients for the requested amount and stores the entry.
// An amount that cannot be resolved to grams is still logged, with every nutrient unknown.
func (s *LoggingService) LogFood(ctx context.Context, req LogRequest) (*domain.LogEntry, error) {
	if strings.TrimSpace(req.FoodGID) == "" || !req.Unit.Valid() {
		return nil, domain.ErrInvalidRequest
	}
	ref, err := s.store.GetReference(ctx, req.FoodGID)
	if err != nil {
		return nil, err
	}

	entry := &domain.LogEntry{
		ID:       s.newID(),
		FoodGID:  ref.GID,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		LoggedAt: s.now().UTC(),
	}
	if req.LoggedAt != nil {
		entry.LoggedAt = req.LoggedAt.UTC()
	}
	if grams, ok := ResolveToGrams(req.Quantity, req.Unit, ref.GramsPerServing, ref.DensityGPerMl, ref.HouseholdUnits); ok {
		entry.Grams = &grams
	} else {
		s.log.Info("amount not resolvable, logging without nutrients",
			zap.String("gid", ref.GID), zap.Float64("quantity", req.Quantity), zap.String("unit", req.Unit.String()))
	}
	entry.Nutrients = CalculateSnapshot(ref.Per100, req.Quantity, req.Unit, ref.GramsPerServing, ref.DensityGPerMl, ref.HouseholdUnits)

	if err := s.store.SaveLogEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecentEntries lists the latest log entries, newest first
func (s *LoggingService) RecentEntries(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	return s.store.ListLogEntries(ctx, limit)
}

// ReferenceFromFood derives a stored reference from a normalized record.
// Per100 is always per 100 g; a milliliter-based record is converted through
// its density and left unknown when no usable density exists.
func ReferenceFromFood(food domain.NormalizedFood, createdAt time.Time) *domain.FoodReference {
	ref := &domain.FoodReference{
		GID:       food.GID,
		Name:      food.Name,
		Brand:     food.Brand,
		BaseUnit:  food.BaseUnit,
		CreatedAt: createdAt,
	}
	if ValidDensity(food.DensityGPerMl) {
		d := *food.DensityGPerMl
		ref.DensityGPerMl = &d
	}

	per100 := LoggingNutrientsFromFood(food)
	if food.BaseUnit == domain.BaseMilliliters {
		if ref.DensityGPerMl != nil {
			per100 = per100.Scaled(1 / *ref.DensityGPerMl)
		} else {
			per100 = domain.FoodLoggingNutrients{}
		}
	}
	ref.Per100 = per100

	food.DensityGPerMl = ref.DensityGPerMl
	if g, ok := food.GramsPerServing(); ok {
		ref.GramsPerServing = &g
	}
	ref.HouseholdUnits = householdUnitsFrom(food.Portions, ref.DensityGPerMl)
	return ref
}

// householdUnitsFrom keeps portions that resolve to a mass, first label wins
func householdUnitsFrom(portions []domain.NormalizedPortion, density *float64) []domain.HouseholdUnit {
	var units []domain.HouseholdUnit
	seen := make(map[string]bool, len(portions))
	for _, p := range portions {
		var grams float64
		switch {
		case p.Grams != nil:
			grams = *p.Grams
		case p.Milliliters != nil && density != nil:
			grams = *p.Milliliters * *density
		default:
			continue
		}
		hu, err := domain.NewHouseholdUnit(p.Label, grams)
		if err != nil || seen[hu.NormalizedLabel()] {
			continue
		}
		seen[hu.NormalizedLabel()] = true
		units = append(units, hu)
	}
	return units
}
