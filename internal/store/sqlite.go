package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/parishscope/internal/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by the Get methods for unknown IDs
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS parishes (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	street_address TEXT NOT NULL DEFAULT '',
	city           TEXT NOT NULL DEFAULT '',
	state          TEXT NOT NULL DEFAULT '',
	postal_code    TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	website_url    TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL,
	strategy       TEXT NOT NULL,
	confidence     INTEGER NOT NULL,
	latitude       REAL,
	longitude      REAL,
	extracted_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parishes_source ON parishes(source_url);

CREATE TABLE IF NOT EXISTS facts (
	id           TEXT PRIMARY KEY,
	site         TEXT NOT NULL,
	category     TEXT NOT NULL,
	value        TEXT NOT NULL,
	source_url   TEXT NOT NULL,
	confidence   INTEGER NOT NULL,
	method       TEXT NOT NULL,
	extracted_at TEXT NOT NULL,
	UNIQUE(site, category)
);
`

// SQLiteStore is a Sink backed by a single SQLite file
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating when needed) the database at path with WAL,
// a busy timeout and NORMAL synchronous mode, and applies the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PersistParish inserts or replaces a parish record by ID
func (s *SQLiteStore) PersistParish(ctx context.Context, r model.ParishRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO parishes (id, name, street_address, city, state, postal_code, phone, website_url,
	source_url, strategy, confidence, latitude, longitude, extracted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	street_address = excluded.street_address,
	city = excluded.city,
	state = excluded.state,
	postal_code = excluded.postal_code,
	phone = excluded.phone,
	website_url = excluded.website_url,
	source_url = excluded.source_url,
	strategy = excluded.strategy,
	confidence = excluded.confidence,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	extracted_at = excluded.extracted_at`,
		r.ID, r.Name, r.StreetAddress, r.City, r.State, r.PostalCode, r.Phone, r.WebsiteURL,
		r.SourceURL, string(r.Strategy), r.Confidence, nullFloat(r.Latitude), nullFloat(r.Longitude),
		formatTime(r.ExtractedAt),
	)
	if err != nil {
		return fmt.Errorf("store: persist parish %s: %w", r.ID, err)
	}
	return nil
}

// PersistFact inserts or replaces the fact for its (site, category)
func (s *SQLiteStore) PersistFact(ctx context.Context, f model.FactRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO facts (id, site, category, value, source_url, confidence, method, extracted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(site, category) DO UPDATE SET
	id = excluded.id,
	value = excluded.value,
	source_url = excluded.source_url,
	confidence = excluded.confidence,
	method = excluded.method,
	extracted_at = excluded.extracted_at`,
		f.ID, f.Site, string(f.Category), f.Value, f.SourceURL, f.Confidence, f.Method, formatTime(f.ExtractedAt),
	)
	if err != nil {
		return fmt.Errorf("store: persist fact %s: %w", f.ID, err)
	}
	return nil
}

const parishColumns = `id, name, street_address, city, state, postal_code, phone, website_url,
	source_url, strategy, confidence, latitude, longitude, extracted_at`

// GetParish reads one parish record by ID
func (s *SQLiteStore) GetParish(ctx context.Context, id string) (model.ParishRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+parishColumns+` FROM parishes WHERE id = ?`, id)
	r, err := scanParish(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ParishRecord{}, fmt.Errorf("parish %s: %w", id, ErrNotFound)
	}
	return r, err
}

// ListParishes returns the records extracted from one directory page
func (s *SQLiteStore) ListParishes(ctx context.Context, sourceURL string) ([]model.ParishRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+parishColumns+` FROM parishes WHERE source_url = ? ORDER BY name`, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("store: list parishes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ParishRecord
	for rows.Next() {
		r, err := scanParish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetFact reads one fact record by ID
func (s *SQLiteStore) GetFact(ctx context.Context, id string) (model.FactRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, site, category, value, source_url, confidence, method, extracted_at
FROM facts WHERE id = ?`, id)

	var f model.FactRecord
	var category, extracted string
	err := row.Scan(&f.ID, &f.Site, &category, &f.Value, &f.SourceURL, &f.Confidence, &f.Method, &extracted)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FactRecord{}, fmt.Errorf("fact %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.FactRecord{}, fmt.Errorf("store: read fact %s: %w", id, err)
	}
	f.Category = model.FactCategory(category)
	if f.ExtractedAt, err = parseTime(extracted); err != nil {
		return model.FactRecord{}, err
	}
	return f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParish(row scanner) (model.ParishRecord, error) {
	var r model.ParishRecord
	var strategy, extracted string
	var lat, lng sql.NullFloat64
	err := row.Scan(&r.ID, &r.Name, &r.StreetAddress, &r.City, &r.State, &r.PostalCode, &r.Phone, &r.WebsiteURL,
		&r.SourceURL, &strategy, &r.Confidence, &lat, &lng, &extracted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("store: read parish: %w", err)
	}

	r.Strategy = model.StrategyName(strategy)
	if lat.Valid {
		r.Latitude = &lat.Float64
	}
	if lng.Valid {
		r.Longitude = &lng.Float64
	}
	if r.ExtractedAt, err = parseTime(extracted); err != nil {
		return r, err
	}
	return r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: bad timestamp %q: %w", s, err)
	}
	return t, nil
}
