// Package store persists portfolios, accounts, securities and imported
// transactions in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	importer "github.com/etnz/pcs-import"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store is a sqlite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	retired BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	currency TEXT NOT NULL,
	retired BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS securities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	isin TEXT UNIQUE,
	wkn TEXT,
	currency TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	portfolio_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	security_id INTEGER,
	date TEXT NOT NULL,
	kind TEXT NOT NULL,
	shares TEXT,
	gross TEXT NOT NULL,
	fee TEXT NOT NULL,
	tax TEXT NOT NULL,
	net TEXT NOT NULL,
	currency TEXT NOT NULL,
	note TEXT,
	source TEXT,
	fingerprint TEXT NOT NULL,
	imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
	FOREIGN KEY(account_id) REFERENCES accounts(id),
	FOREIGN KEY(security_id) REFERENCES securities(id)
);

CREATE INDEX IF NOT EXISTS transactions_fingerprint ON transactions(fingerprint);
`

// Open opens, and creates if needed, the database at path. Use ":memory:"
// for a throw-away database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// sqlite serializes writers, and an in-memory database lives in one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// AddPortfolio creates a portfolio.
func (s *Store) AddPortfolio(ctx context.Context, name string) (importer.Portfolio, error) {
	if name == "" {
		return importer.Portfolio{}, errors.New("portfolio name cannot be empty")
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO portfolios (name) VALUES (?)", name)
	if err != nil {
		return importer.Portfolio{}, fmt.Errorf("cannot add portfolio %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return importer.Portfolio{}, err
	}
	return importer.Portfolio{ID: id, Name: name}, nil
}

// AddAccount creates an account in currency.
func (s *Store) AddAccount(ctx context.Context, name, currency string) (importer.Account, error) {
	if name == "" {
		return importer.Account{}, errors.New("account name cannot be empty")
	}
	if err := importer.ValidateCurrency(currency); err != nil {
		return importer.Account{}, err
	}
	res, err := s.db.ExecContext(ctx, "INSERT INTO accounts (name, currency) VALUES (?, ?)", name, currency)
	if err != nil {
		return importer.Account{}, fmt.Errorf("cannot add account %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return importer.Account{}, err
	}
	return importer.Account{ID: id, Name: name, Currency: currency}, nil
}

// RetirePortfolio marks a portfolio as retired. It is kept for the history
// but is no longer an import target.
func (s *Store) RetirePortfolio(ctx context.Context, id int64) error {
	return s.retire(ctx, "portfolios", id)
}

// RetireAccount marks an account as retired.
func (s *Store) RetireAccount(ctx context.Context, id int64) error {
	return s.retire(ctx, "accounts", id)
}

func (s *Store) retire(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE "+table+" SET retired = TRUE WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table[:len(table)-1], id, ErrNotFound)
	}
	return nil
}

// Portfolios lists every portfolio, retired ones included.
func (s *Store) Portfolios(ctx context.Context) ([]importer.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, retired FROM portfolios ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []importer.Portfolio
	for rows.Next() {
		var p importer.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.Retired); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Accounts lists every account, retired ones included.
func (s *Store) Accounts(ctx context.Context) ([]importer.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, currency, retired FROM accounts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []importer.Account
	for rows.Next() {
		var a importer.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Currency, &a.Retired); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Portfolio returns the portfolio id.
func (s *Store) Portfolio(ctx context.Context, id int64) (importer.Portfolio, error) {
	p := importer.Portfolio{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name, retired FROM portfolios WHERE id = ?", id).Scan(&p.Name, &p.Retired)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
	}
	return p, err
}

// Account returns the account id.
func (s *Store) Account(ctx context.Context, id int64) (importer.Account, error) {
	a := importer.Account{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name, currency, retired FROM accounts WHERE id = ?", id).Scan(&a.Name, &a.Currency, &a.Retired)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return a, err
}
