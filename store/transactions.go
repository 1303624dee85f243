package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fingerprint identifies a transaction across imports.
// Format: SHA256("{date}|{kind}|{isin}|{net}|{currency}"), net with 2 decimal places.
func Fingerprint(tx importer.ParsedTransaction) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s",
		tx.Date,
		tx.Kind,
		importer.NormalizeISIN(tx.ISIN),
		tx.Net.StringFixed(2),
		strings.ToUpper(tx.Currency),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// FindDuplicate returns the id of a transaction of any portfolio with
// fingerprint fp.
func (s *Store) FindDuplicate(ctx context.Context, fp string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM transactions WHERE fingerprint = ? ORDER BY imported_at LIMIT 1", fp).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// HasDuplicate reports whether portfolio already holds a transaction with
// fingerprint fp.
func (s *Store) HasDuplicate(ctx context.Context, portfolio int64, fp string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE portfolio_id = ? AND fingerprint = ?", portfolio, fp).Scan(&n)
	return n > 0, err
}

// Record is a transaction to insert.
type Record struct {
	PortfolioID int64
	AccountID   int64
	SecurityID  int64 // 0 for cash movements
	Transaction importer.ParsedTransaction
}

// StoredTransaction is a persisted transaction.
type StoredTransaction struct {
	ID          string
	PortfolioID int64
	AccountID   int64
	SecurityID  int64
	Date        date.Date
	Kind        importer.Kind
	Gross       decimal.Decimal
	Fee         decimal.Decimal
	Tax         decimal.Decimal
	Net         decimal.Decimal
	Currency    string
	Source      string
	Fingerprint string
}

// InsertTransactions inserts records in a single SQL transaction and returns
// their ids. Nothing is inserted on error.
func (s *Store) InsertTransactions(ctx context.Context, records []Record) (ids []string, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, portfolio_id, account_id, security_id, date, kind, shares, gross, fee, tax, net, currency, note, source, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, r := range records {
		t := r.Transaction
		id := uuid.NewString()
		var security sql.NullInt64
		if r.SecurityID != 0 {
			security = sql.NullInt64{Int64: r.SecurityID, Valid: true}
		}
		var shares sql.NullString
		if t.Shares != nil {
			shares = null(t.Shares.String())
		}
		_, err = stmt.ExecContext(ctx,
			id, r.PortfolioID, r.AccountID, security,
			t.Date.String(), t.Kind.String(), shares,
			t.Gross.String(), t.Fee.String(), t.Tax.String(), t.Net.String(),
			t.Currency, null(t.Note), null(t.Source.Name), Fingerprint(t),
		)
		if err != nil {
			return nil, fmt.Errorf("cannot insert transaction of %s: %w", t.Date, err)
		}
		ids = append(ids, id)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Transactions lists the transactions of portfolio, oldest first.
func (s *Store) Transactions(ctx context.Context, portfolio int64) ([]StoredTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, portfolio_id, account_id, security_id, date, kind, gross, fee, tax, net, currency, source, fingerprint
		FROM transactions WHERE portfolio_id = ? ORDER BY date, rowid`, portfolio)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []StoredTransaction
	for rows.Next() {
		var t StoredTransaction
		var security sql.NullInt64
		var day, kind, gross, fee, tax, net string
		var source sql.NullString
		if err := rows.Scan(&t.ID, &t.PortfolioID, &t.AccountID, &security, &day, &kind, &gross, &fee, &tax, &net, &t.Currency, &source, &t.Fingerprint); err != nil {
			return nil, err
		}
		t.SecurityID = security.Int64
		t.Source = source.String
		if t.Date, err = date.Parse(day); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if t.Kind, err = importer.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		for _, f := range []struct {
			s   string
			dst *decimal.Decimal
		}{{gross, &t.Gross}, {fee, &t.Fee}, {tax, &t.Tax}, {net, &t.Net}} {
			if *f.dst, err = decimal.NewFromString(f.s); err != nil {
				return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
			}
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
