package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/tarifflens/backend/internal/domain"
)

// ImportResult summarizes one import run.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// ImportCommodityCodesCSV loads commodity codes from a CSV file whose
// first row is a header and whose columns are hs_code, description and
// code. Rows with fewer than three values or an HS code that cannot be
// normalized are skipped with a diagnostic. The whole import runs in a
// single transaction.
func (s *Store) ImportCommodityCodesCSV(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open commodity code file: %w", err)
	}
	defer f.Close()

	return s.importCommodityCodes(ctx, f)
}

func (s *Store) importCommodityCodes(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows are validated individually

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return &ImportResult{}, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO commodity_code (hs_code, description, code) VALUES (?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if len(row) < 3 {
			log.Printf("[REFDATA] Skipping row with insufficient values: %v", row)
			result.Skipped++
			continue
		}

		hsCode := stripQuoteGuard(row[0])
		description := stripQuoteGuard(row[1])
		code := stripQuoteGuard(row[2])

		normalized, err := domain.NormalizeHSCode(hsCode)
		if err != nil {
			log.Printf("[REFDATA] Skipping row with invalid HS code %q: %v", hsCode, err)
			result.Skipped++
			continue
		}

		if _, err := stmt.ExecContext(ctx, normalized, description, code); err != nil {
			return nil, fmt.Errorf("failed to insert commodity code: %w", err)
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return result, nil
}

// ImportURLsCSV loads source URLs from a CSV file whose first row is a
// header and whose first column holds the URL. Duplicate URLs are
// ignored and counted as skipped.
func (s *Store) ImportURLsCSV(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()

	return s.importURLs(ctx, f)
}

func (s *Store) importURLs(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return &ImportResult{}, nil
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO urls (url) VALUES (?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			result.Skipped++
			continue
		}

		res, err := stmt.ExecContext(ctx, strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("failed to insert URL: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read insert result: %w", err)
		}
		if affected == 0 {
			result.Skipped++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return result, nil
}

// stripQuoteGuard removes the leading single quote that spreadsheet
// exports prepend to force text interpretation of numeric fields.
func stripQuoteGuard(field string) string {
	return strings.TrimPrefix(strings.TrimSpace(field), "'")
}
