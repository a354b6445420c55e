package refdata

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tarifflens/backend/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current reference schema version. Bump it when
// schema.sql changes; existing databases must then be re-imported.
const schemaVersion = 1

// ErrSchemaMismatch indicates the reference database was created with a
// different schema version than this build expects.
var ErrSchemaMismatch = errors.New("reference schema version mismatch")

// Store provides commodity code reference lookups backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the reference database at path, creating the file
// and schema when they do not exist yet.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem location of the database.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to inspect reference database: %w", err)
	}

	if count == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s and re-import)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create reference schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reference schema: %w", err)
	}
	return nil
}

// FindByHSCode returns the candidate codes recorded for a normalized
// 6-digit HS code, in insertion order. An unknown code yields an empty
// slice, not an error.
func (s *Store) FindByHSCode(ctx context.Context, hsCode string) ([]domain.CandidateCode, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT code, description FROM commodity_code WHERE hs_code = ? ORDER BY id", hsCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query commodity codes: %w", err)
	}
	defer rows.Close()

	var matches []domain.CandidateCode
	for rows.Next() {
		var candidate domain.CandidateCode
		if err := rows.Scan(&candidate.Code, &candidate.Description); err != nil {
			return nil, fmt.Errorf("failed to scan commodity code: %w", err)
		}
		matches = append(matches, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commodity codes: %w", err)
	}

	return matches, nil
}

// Stats summarizes the contents of the reference tables.
type Stats struct {
	CommodityCodes  int
	DistinctHSCodes int
	URLs            int
}

// Stats reports row counts for the reference tables.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(1) FROM commodity_code", &stats.CommodityCodes},
		{"SELECT COUNT(DISTINCT hs_code) FROM commodity_code", &stats.DistinctHSCodes},
		{"SELECT COUNT(1) FROM urls", &stats.URLs},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to count reference rows: %w", err)
		}
	}
	return stats, nil
}
