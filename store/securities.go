package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	importer "github.com/etnz/pcs-import"
)

// Security is a persisted security.
type Security struct {
	ID       int64
	Name     string
	ISIN     string
	WKN      string
	Currency string
}

// FindSecurity returns the security with isin, or with wkn when isin is
// empty or unknown.
func (s *Store) FindSecurity(ctx context.Context, isin, wkn string) (Security, error) {
	if isin = importer.NormalizeISIN(isin); isin != "" {
		sec, err := s.findSecurity(ctx, "isin", isin)
		if !errors.Is(err, ErrNotFound) {
			return sec, err
		}
	}
	if wkn != "" {
		return s.findSecurity(ctx, "wkn", wkn)
	}
	return Security{}, fmt.Errorf("security %s: %w", isin, ErrNotFound)
}

func (s *Store) findSecurity(ctx context.Context, column, value string) (Security, error) {
	var sec Security
	var isin, wkn, currency sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, isin, wkn, currency FROM securities WHERE "+column+" = ? ORDER BY id LIMIT 1", value,
	).Scan(&sec.ID, &sec.Name, &isin, &wkn, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return sec, fmt.Errorf("security %s %s: %w", column, value, ErrNotFound)
	}
	if err != nil {
		return sec, err
	}
	sec.ISIN, sec.WKN, sec.Currency = isin.String, wkn.String, currency.String
	return sec, nil
}

// AddSecurity creates a security. Its ISIN, when set, must be valid and unique.
func (s *Store) AddSecurity(ctx context.Context, sec Security) (Security, error) {
	if sec.Name == "" {
		sec.Name = sec.ISIN
	}
	if sec.Name == "" {
		return sec, errors.New("security needs a name or an ISIN")
	}
	if sec.ISIN != "" {
		sec.ISIN = importer.NormalizeISIN(sec.ISIN)
		if err := importer.ValidateISIN(sec.ISIN); err != nil {
			return sec, fmt.Errorf("security %q: %w", sec.Name, err)
		}
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO securities (name, isin, wkn, currency) VALUES (?, ?, ?, ?)",
		sec.Name, null(sec.ISIN), null(sec.WKN), null(sec.Currency),
	)
	if err != nil {
		return sec, fmt.Errorf("cannot add security %q: %w", sec.Name, err)
	}
	sec.ID, err = res.LastInsertId()
	return sec, err
}

// null maps "" to NULL, so that UNIQUE columns accept several missing values.
func null(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
