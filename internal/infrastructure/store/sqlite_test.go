package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolens/foodrecon/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr(v float64) *float64 { return &v }

func TestSQLite_Reference_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 8, 30, 0, 123, time.UTC)

	ref := &domain.FoodReference{
		GID:      "fdc:2345",
		Name:     "Cola",
		Brand:    "Fizz",
		BaseUnit: domain.BaseMilliliters,
		Per100: domain.FoodLoggingNutrients{
			EnergyKcal: ptr(42),
			SugarsG:    ptr(10.6),
		},
		GramsPerServing: ptr(368.1),
		HouseholdUnits:  []domain.HouseholdUnit{{Label: "1 can", Grams: 368}},
		CreatedAt:       created,
	}
	require.NoError(t, st.SaveReference(ctx, ref))

	got, err := st.GetReference(ctx, "fdc:2345")
	require.NoError(t, err)
	assert.Equal(t, "Cola", got.Name)
	assert.Equal(t, domain.BaseMilliliters, got.BaseUnit)
	assert.Equal(t, 42.0, *got.Per100.EnergyKcal)
	assert.Nil(t, got.Per100.ProteinG, "unknown stays unknown")
	assert.Nil(t, got.DensityGPerMl)
	assert.Equal(t, 368.1, *got.GramsPerServing)
	assert.Equal(t, ref.HouseholdUnits, got.HouseholdUnits)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestSQLite_Reference_Upsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveReference(ctx, &domain.FoodReference{GID: "off:1", Name: "old", BaseUnit: domain.BaseGrams}))
	require.NoError(t, st.SaveReference(ctx, &domain.FoodReference{GID: "off:1", Name: "new", BaseUnit: domain.BaseGrams}))

	got, err := st.GetReference(ctx, "off:1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
}

func TestSQLite_Reference_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetReference(context.Background(), "fdc:404")
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)
}

func TestSQLite_LogEntries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.SaveReference(ctx, &domain.FoodReference{GID: "fdc:1", Name: "Oats", BaseUnit: domain.BaseGrams}))

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []*domain.LogEntry{
		{ID: "a", FoodGID: "fdc:1", Quantity: 40, Unit: domain.Grams(), Grams: ptr(40),
			Nutrients: domain.FoodLoggingNutrients{EnergyKcal: ptr(150)}, LoggedAt: base},
		{ID: "b", FoodGID: "fdc:1", Quantity: 1, Unit: domain.Household("1 cup"),
			LoggedAt: base.Add(time.Hour)},
		{ID: "c", FoodGID: "fdc:1", Quantity: 2, Unit: domain.Servings(), Grams: ptr(80),
			LoggedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, st.SaveLogEntry(ctx, e))
	}

	got, err := st.ListLogEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, domain.Household("1 cup"), got[1].Unit)
	assert.Nil(t, got[1].Grams)
	assert.True(t, got[1].Nutrients.IsUnset())

	all, err := st.ListLogEntries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 150.0, *all[2].Nutrients.EnergyKcal)
	assert.True(t, base.Equal(all[2].LoggedAt))
}
