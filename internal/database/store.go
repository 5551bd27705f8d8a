package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"repolens/internal/config"
	apperrors "repolens/internal/errors"
	"repolens/internal/models"
)

// Schema creates the analyses table. Exported so the test harness can
// initialize containers with the same DDL the service applies at boot.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
	full_name TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	expires_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at DESC);
`

// Store is the postgres-backed result cache. It implements the same
// expiry and eviction contract as the in-memory store but survives
// process restarts.
type Store struct {
	db         *sql.DB
	ttl        time.Duration
	maxEntries int
	nowFunc    func() time.Time
}

// New opens a connection pool, applies the schema and returns a Store
func New(dsn string, cfg config.CacheConfig) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	return &Store{
		db:         db,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		nowFunc:    time.Now,
	}, nil
}

// NewFromDB creates a Store from an existing *sql.DB
func NewFromDB(db *sql.DB, cfg config.CacheConfig) *Store {
	return &Store{
		db:         db,
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		nowFunc:    time.Now,
	}
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves a cached analysis, treating expired rows as absent and
// deleting them on read
func (s *Store) Get(ctx context.Context, fullName string) (*models.CachedAnalysis, error) {
	query := `SELECT data, created_at, expires_at FROM analyses WHERE full_name = $1`

	var raw []byte
	entry := &models.CachedAnalysis{}
	err := s.db.QueryRowContext(ctx, query, fullName).Scan(&raw, &entry.CreatedAt, &entry.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("Get", fullName, err)
	}

	if entry.Expired(s.nowFunc()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE full_name = $1`, fullName); err != nil {
			return nil, apperrors.NewStoreError("Get", fullName, err)
		}
		return nil, nil
	}

	result := &models.AnalysisResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, apperrors.NewStoreError("Get", fullName, err)
	}
	entry.Result = result

	return entry, nil
}

// Set upserts a result and evicts the oldest rows beyond the entry cap
func (s *Store) Set(ctx context.Context, fullName string, result *models.AnalysisResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return apperrors.NewStoreError("Set", fullName, err)
	}

	now := s.nowFunc()
	query := `
		INSERT INTO analyses (full_name, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (full_name) DO UPDATE SET
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`

	if _, err := s.db.ExecContext(ctx, query, fullName, raw, now, now.Add(s.ttl)); err != nil {
		return apperrors.NewStoreError("Set", fullName, err)
	}

	evict := `
		DELETE FROM analyses WHERE full_name IN (
			SELECT full_name FROM analyses ORDER BY created_at DESC OFFSET $1
		)`
	if _, err := s.db.ExecContext(ctx, evict, s.maxEntries); err != nil {
		return apperrors.NewStoreError("Set", fullName, err)
	}

	return nil
}

// Remove deletes one entry
func (s *Store) Remove(ctx context.Context, fullName string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE full_name = $1`, fullName); err != nil {
		return apperrors.NewStoreError("Remove", fullName, err)
	}
	return nil
}

// GetRecent returns up to limit unexpired entries, newest first
func (s *Store) GetRecent(ctx context.Context, limit int) ([]*models.CachedAnalysis, error) {
	query := `
		SELECT data, created_at, expires_at FROM analyses
		WHERE expires_at > $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, s.nowFunc(), limit)
	if err != nil {
		return nil, apperrors.NewStoreError("GetRecent", "", err)
	}
	defer rows.Close()

	var entries []*models.CachedAnalysis
	for rows.Next() {
		var raw []byte
		entry := &models.CachedAnalysis{}
		if err := rows.Scan(&raw, &entry.CreatedAt, &entry.ExpiresAt); err != nil {
			return nil, apperrors.NewStoreError("GetRecent", "", err)
		}

		result := &models.AnalysisResult{}
		if err := json.Unmarshal(raw, result); err != nil {
			return nil, apperrors.NewStoreError("GetRecent", "", err)
		}
		entry.Result = result
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("GetRecent", "", err)
	}
	return entries, nil
}

// ClearAll discards every entry
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM analyses`); err != nil {
		return apperrors.NewStoreError("ClearAll", "", err)
	}
	return nil
}
