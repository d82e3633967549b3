package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/macrolens/foodrecon/internal/domain"
)

const defaultListLimit = 50

// SQLiteStore persists food references and log entries with modernc.org/sqlite.
// Snapshots and household units are stored as JSON blobs.
type SQLiteStore struct {
	db *sql.DB
}

var _ domain.ReferenceStore = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS food_references (
	gid               TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	brand             TEXT NOT NULL DEFAULT '',
	base_unit         TEXT NOT NULL DEFAULT 'g',
	per100            TEXT NOT NULL DEFAULT '{}',
	grams_per_serving REAL,
	density_g_per_ml  REAL,
	household_units   TEXT NOT NULL DEFAULT '[]',
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS log_entries (
	id         TEXT PRIMARY KEY,
	food_gid   TEXT NOT NULL REFERENCES food_references(gid),
	quantity   REAL NOT NULL,
	unit_kind  TEXT NOT NULL,
	unit_label TEXT NOT NULL DEFAULT '',
	grams      REAL,
	nutrients  TEXT NOT NULL DEFAULT '{}',
	logged_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_log_entries_logged_at ON log_entries(logged_at);
CREATE INDEX IF NOT EXISTS idx_log_entries_food_gid ON log_entries(food_gid);
`

// Migrate creates the schema if it does not exist
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReference inserts or replaces a reference by gid
func (s *SQLiteStore) SaveReference(ctx context.Context, ref *domain.FoodReference) error {
	per100, err := domain.EncodeLoggingNutrients(ref.Per100)
	if err != nil {
		return eris.Wrap(err, "sqlite: save reference")
	}
	units, err := domain.EncodeHouseholdUnits(ref.HouseholdUnits)
	if err != nil {
		return eris.Wrap(err, "sqlite: save reference")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO food_references (gid, name, brand, base_unit, per100, grams_per_serving, density_g_per_ml, household_units, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			base_unit = excluded.base_unit,
			per100 = excluded.per100,
			grams_per_serving = excluded.grams_per_serving,
			density_g_per_ml = excluded.density_g_per_ml,
			household_units = excluded.household_units`,
		ref.GID, ref.Name, ref.Brand, string(ref.BaseUnit), string(per100),
		nullFloat(ref.GramsPerServing), nullFloat(ref.DensityGPerMl), string(units),
		formatTime(ref.CreatedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert reference %s", ref.GID)
	}
	return nil
}

// GetReference loads a reference by gid
func (s *SQLiteStore) GetReference(ctx context.Context, gid string) (*domain.FoodReference, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT gid, name, brand, base_unit, per100, grams_per_serving, density_g_per_ml, household_units, created_at
		FROM food_references WHERE gid = ?`, gid)

	var (
		ref             domain.FoodReference
		baseUnit        string
		per100, units   string
		gramsPerServing sql.NullFloat64
		density         sql.NullFloat64
		createdAt       string
	)
	err := row.Scan(&ref.GID, &ref.Name, &ref.Brand, &baseUnit, &per100, &gramsPerServing, &density, &units, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get reference %s", gid)
	}

	ref.BaseUnit = domain.BaseUnit(baseUnit)
	ref.GramsPerServing = floatPtr(gramsPerServing)
	ref.DensityGPerMl = floatPtr(density)
	if ref.Per100, err = domain.DecodeLoggingNutrients([]byte(per100)); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get reference %s", gid)
	}
	if ref.HouseholdUnits, err = domain.DecodeHouseholdUnits([]byte(units)); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get reference %s", gid)
	}
	if ref.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get reference %s", gid)
	}
	return &ref, nil
}

// SaveLogEntry inserts a log entry
func (s *SQLiteStore) SaveLogEntry(ctx context.Context, entry *domain.LogEntry) error {
	nutrients, err := domain.EncodeLoggingNutrients(entry.Nutrients)
	if err != nil {
		return eris.Wrap(err, "sqlite: save log entry")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO log_entries (id, food_gid, quantity, unit_kind, unit_label, grams, nutrients, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.FoodGID, entry.Quantity, string(entry.Unit.Kind), entry.Unit.Label,
		nullFloat(entry.Grams), string(nutrients), formatTime(entry.LoggedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert log entry %s", entry.ID)
	}
	return nil
}

// ListLogEntries returns the most recent entries first
func (s *SQLiteStore) ListLogEntries(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, food_gid, quantity, unit_kind, unit_label, grams, nutrients, logged_at
		FROM log_entries ORDER BY logged_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list log entries")
	}
	defer rows.Close()

	var entries []*domain.LogEntry
	for rows.Next() {
		var (
			e         domain.LogEntry
			kind      string
			grams     sql.NullFloat64
			nutrients string
			loggedAt  string
		)
		if err := rows.Scan(&e.ID, &e.FoodGID, &e.Quantity, &kind, &e.Unit.Label, &grams, &nutrients, &loggedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log entry")
		}
		e.Unit.Kind = domain.UnitKind(kind)
		e.Grams = floatPtr(grams)
		if e.Nutrients, err = domain.DecodeLoggingNutrients([]byte(nutrients)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode log entry %s", e.ID)
		}
		if e.LoggedAt, err = parseTime(loggedAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode log entry %s", e.ID)
		}
		entries = append(entries, &e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate log entries")
}

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
