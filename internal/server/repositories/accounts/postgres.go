// Package accounts provides a PostgreSQL-backed repository for user accounts.
package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/dbx"
	"github.com/Ursa1337/account-service/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// mapUniqueViolation translates username/email constraint failures into the
// typed errors the service layer returns verbatim to callers. The database is
// the authority here; application-level existence checks only shortcut the
// common case.
func mapUniqueViolation(err error) error {
	switch dbx.UniqueConstraint(err) {
	case "accounts_username_key":
		return common.ErrUsernameExists
	case "accounts_email_key":
		return common.ErrEmailExists
	}
	return nil
}

// Create inserts a new account and returns it with the generated id.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (username, email, password_hash, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	roles, err := marshalRoles(account.Roles)
	if err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.PasswordHash, roles).Scan(&account.ID); err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// GetByID returns the account with the given id or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT id, username, email, password_hash, roles FROM accounts
		WHERE id = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail returns the account with the given email or common.ErrorNotFound.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, username, email, password_hash, roles FROM accounts
		WHERE email = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// ExistsUsername reports whether any account already holds the username.
func (r *PostgresRepository) ExistsUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username)
}

// ExistsEmail reports whether any account already holds the email.
func (r *PostgresRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email)
}

// UpdatePasswordHash replaces the stored password hash for the account.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query := `
		UPDATE accounts SET password_hash = $1
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, hash, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateUsername renames the account; a concurrent duplicate surfaces as
// common.ErrUsernameExists.
func (r *PostgresRepository) UpdateUsername(ctx context.Context, id int64, username string) error {
	query := `
		UPDATE accounts SET username = $1
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, username, id); err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateEmail changes the account email; a concurrent duplicate surfaces as
// common.ErrEmailExists.
func (r *PostgresRepository) UpdateEmail(ctx context.Context, id int64, email string) error {
	query := `
		UPDATE accounts SET email = $1
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, email, id); err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var roles []byte
	if err := row.Scan(&account.ID, &account.Username, &account.Email, &account.PasswordHash, &roles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(roles) > 0 {
		if err := json.Unmarshal(roles, &account.Roles); err != nil {
			return nil, fmt.Errorf("decoding roles: %w", err)
		}
	}
	return account, nil
}

func marshalRoles(roles []string) (any, error) {
	if roles == nil {
		return nil, nil
	}
	b, err := json.Marshal(roles)
	if err != nil {
		return nil, fmt.Errorf("encoding roles: %w", err)
	}
	return b, nil
}
