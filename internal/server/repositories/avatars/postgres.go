// Package avatars provides a PostgreSQL-backed repository for the one-to-one
// account avatar records.
package avatars

import (
	"context"
	"database/sql"
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

// Create inserts the avatar record for an account. The unique user_id
// constraint keeps the relation one-to-one; a storage key collision surfaces
// as common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, avatar *models.Avatar) (*models.Avatar, error) {
	query := `
		INSERT INTO avatars (user_id, name, url)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, avatar.UserID, avatar.Name, avatar.URL).Scan(&avatar.ID); err != nil {
		if dbx.UniqueConstraint(err) != "" {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return avatar, nil
}

// GetByUserID returns the account's avatar record or common.ErrorNotFound.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID int64) (*models.Avatar, error) {
	query := `
		SELECT id, user_id, name, url FROM avatars
		WHERE user_id = $1
	`
	avatar := &models.Avatar{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&avatar.ID, &avatar.UserID, &avatar.Name, &avatar.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return avatar, nil
}

// Update swaps the stored blob key and public path in place.
func (r *PostgresRepository) Update(ctx context.Context, id int64, name, url string) error {
	query := `
		UPDATE avatars SET name = $1, url = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, name, url, id); err != nil {
		if dbx.UniqueConstraint(err) != "" {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes an avatar record by id.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM avatars WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
