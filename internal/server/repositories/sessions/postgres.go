// Package sessions provides a PostgreSQL-backed repository for session records
// and their token lifecycle.
package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/dbx"
	"github.com/Ursa1337/account-service/internal/server/models"
)

const sessionColumns = `id, user_id, access_token, refresh_token, ip_address, last_usage, device, created_at, expire_access_token, expire_refresh_token`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session row. A token collision with an existing session
// surfaces as common.ErrorConflict so the caller can regenerate and retry.
func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, access_token, refresh_token, created_at, expire_access_token, expire_refresh_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		session.UserID, session.AccessToken, session.RefreshToken,
		session.CreatedAt, session.ExpireAccessToken, session.ExpireRefreshToken).Scan(&session.ID)
	if err != nil {
		if dbx.UniqueConstraint(err) != "" {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

// GetByAccessToken returns the session holding the access token, or
// common.ErrorNotFound.
func (r *PostgresRepository) GetByAccessToken(ctx context.Context, accessToken string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE access_token = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, accessToken))
}

// GetByRefreshToken returns the session holding the refresh token, or
// common.ErrorNotFound.
func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token = $1`
	return scanSession(r.db.QueryRowContext(ctx, query, refreshToken))
}

// Rotate swaps the token pair keyed on the old refresh token value. It returns
// common.ErrorNotFound when the old token no longer matches any row (already
// rotated or revoked) and common.ErrorConflict when a new token collides.
func (r *PostgresRepository) Rotate(ctx context.Context, oldRefreshToken string, rotation Rotation) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET access_token = $1, refresh_token = $2, expire_access_token = $3, expire_refresh_token = $4
		WHERE refresh_token = $5
		RETURNING ` + sessionColumns
	row := r.db.QueryRowContext(ctx, query,
		rotation.AccessToken, rotation.RefreshToken,
		rotation.ExpireAccessToken, rotation.ExpireRefreshToken, oldRefreshToken)

	session, err := scanSession(row)
	if err != nil {
		if dbx.UniqueConstraint(err) != "" {
			return nil, common.ErrorConflict
		}
		return nil, err
	}
	return session, nil
}

// Touch updates last-usage metadata after a successful access-token validation.
func (r *PostgresRepository) Touch(ctx context.Context, id int64, ip *string, device *models.Device, at time.Time) error {
	query := `
		UPDATE sessions SET ip_address = $1, device = $2, last_usage = $3
		WHERE id = $4
	`
	deviceJSON, err := marshalDevice(device)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, ip, deviceJSON, at, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteByAccessToken removes the session holding the access token. Deleting a
// token that no longer exists is not an error.
func (r *PostgresRepository) DeleteByAccessToken(ctx context.Context, accessToken string) error {
	query := `DELETE FROM sessions WHERE access_token = $1`
	if _, err := r.db.ExecContext(ctx, query, accessToken); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteOthers removes every session of the account except keepID.
func (r *PostgresRepository) DeleteOthers(ctx context.Context, userID, keepID int64) error {
	query := `DELETE FROM sessions WHERE user_id = $1 AND id <> $2`
	if _, err := r.db.ExecContext(ctx, query, userID, keepID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListCurrent returns the account's sessions that have been used at least once
// and still have a live access or refresh window.
func (r *PostgresRepository) ListCurrent(ctx context.Context, userID int64, now time.Time) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE user_id = $1
		  AND last_usage IS NOT NULL
		  AND (expire_refresh_token >= $2 OR expire_access_token >= $2)
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Session
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*models.Session, error) {
	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return session, nil
}

func scanSessionRow(row rowScanner) (*models.Session, error) {
	session := &models.Session{}
	var (
		ip        sql.NullString
		lastUsage sql.NullTime
		device    []byte
	)
	err := row.Scan(&session.ID, &session.UserID, &session.AccessToken, &session.RefreshToken,
		&ip, &lastUsage, &device, &session.CreatedAt, &session.ExpireAccessToken, &session.ExpireRefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if ip.Valid {
		session.IPAddress = &ip.String
	}
	if lastUsage.Valid {
		session.LastUsage = &lastUsage.Time
	}
	if len(device) > 0 {
		session.Device = &models.Device{}
		if err := json.Unmarshal(device, session.Device); err != nil {
			return nil, fmt.Errorf("decoding device: %w", err)
		}
	}
	return session, nil
}

func marshalDevice(device *models.Device) (any, error) {
	if device == nil {
		return nil, nil
	}
	b, err := json.Marshal(device)
	if err != nil {
		return nil, fmt.Errorf("encoding device: %w", err)
	}
	return b, nil
}
