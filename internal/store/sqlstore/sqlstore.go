// Package sqlstore is the production UserStore backend, grounded in
// storage/sql's package shape: a single database/sql connection
// whose driver-specific errors are translated into the store package's
// sentinel errors, matching the original system's single SQLite/D1
// backing store (no postgres/mysql flavor abstraction is needed here).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/exampleauth/authd/internal/store"
	"github.com/exampleauth/authd/pkg/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_account (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	email_verified INTEGER NOT NULL DEFAULT 0,
	user_token TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// Store is a UserStore backed by SQLite via mattn/go-sqlite3.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens (creating if necessary) the SQLite database at file and
// runs the schema migration, grounded in storage/sql/sqlite.go's SQLite3.open
// (storage/sql/sqlite.go): a single-connection pool, since sqlite3
// serializes writes regardless of how many Go connections request them.
func Open(file string, logger log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LoadByID(ctx context.Context, uid string) (store.UserAccount, error) {
	return s.scanRow(s.db.QueryRowContext(ctx,
		`SELECT id, email, password, email_verified, user_token, created_at FROM user_account WHERE id = ?`, uid))
}

func (s *Store) LoadByEmail(ctx context.Context, email string) (store.UserAccount, error) {
	return s.scanRow(s.db.QueryRowContext(ctx,
		`SELECT id, email, password, email_verified, user_token, created_at FROM user_account WHERE email = ?`,
		store.CanonicalEmail(email)))
}

func (s *Store) scanRow(row *sql.Row) (store.UserAccount, error) {
	var u store.UserAccount
	var verified int
	err := row.Scan(&u.ID, &u.Email, &u.Password, &verified, &u.UserToken, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return store.UserAccount{}, store.ErrNotFound
	}
	if err != nil {
		return store.UserAccount{}, fmt.Errorf("scanning user_account row: %w", err)
	}
	u.EmailVerified = verified != 0
	return u, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM user_account WHERE email = ?`, store.CanonicalEmail(email)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return true, nil
}

func (s *Store) Insert(ctx context.Context, uid, hashedPassword, email, userToken string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_account (id, email, password, email_verified, user_token, created_at) VALUES (?, ?, ?, 0, ?, ?)`,
		uid, store.CanonicalEmail(email), hashedPassword, userToken, time.Now().UTC())
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("inserting user_account: %w", err)
	}
	return nil
}

func (s *Store) UpdateEmailVerified(ctx context.Context, uid string, verified bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_account SET email_verified = ? WHERE id = ?`, boolToInt(verified), uid)
	if err != nil {
		return fmt.Errorf("updating email_verified: %w", err)
	}
	return requireOneRowAffected(res)
}

func (s *Store) ResetPassword(ctx context.Context, uid, hashedPassword, newUserToken string) error {
	// A single statement updates both columns atomically for free
	// under sqlite3's serialized writes.
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_account SET password = ?, user_token = ? WHERE id = ?`, hashedPassword, newUserToken, uid)
	if err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}
	return requireOneRowAffected(res)
}

func requireOneRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	sqlErr, ok := err.(sqlite3.Error)
	return ok && sqlErr.Code == sqlite3.ErrConstraint
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
