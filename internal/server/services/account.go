// Package services contains server-side business logic. This file implements
// AccountService, the session/token lifecycle engine: registration, credential
// authentication, access-token validation, token rotation, and selective
// revocation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Ursa1337/account-service/internal/clock"
	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/dbx"
	"github.com/Ursa1337/account-service/internal/server/config"
	"github.com/Ursa1337/account-service/internal/server/hash"
	"github.com/Ursa1337/account-service/internal/server/models"
	"github.com/Ursa1337/account-service/internal/server/repositories/repomanager"
	"github.com/Ursa1337/account-service/internal/server/repositories/sessions"
	"github.com/Ursa1337/account-service/internal/server/token"
)

// maxTokenAttempts bounds regeneration retries when a freshly generated token
// collides with an existing session.
const maxTokenAttempts = 3

// TokenGenerator produces opaque random tokens of a requested length.
type TokenGenerator interface {
	Generate(length int) (string, error)
}

// RequestMeta carries per-request client metadata recorded on the session
// during access-token validation.
type RequestMeta struct {
	IPAddress string
	Device    *models.Device
}

// SessionSummary is the caller-facing description of one live session.
type SessionSummary struct {
	LastUsage      *time.Time     `json:"lastUsage"`
	IPAddress      *string        `json:"ipAddress"`
	Device         *models.Device `json:"device"`
	Expired        bool           `json:"expired"`
	Renewable      bool           `json:"renewable"`
	CurrentSession bool           `json:"currentSession"`
}

// AccountService orchestrates accounts and their sessions. All session rows
// are mutated exclusively through this type; uniqueness races are closed by
// the store's constraints, not by the application-level existence checks.
type AccountService struct {
	db              *sql.DB
	repos           repomanager.RepositoryManager
	tokens          TokenGenerator
	hasher          hash.Hasher
	clock           clock.Clock
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewAccountService constructs an AccountService using repositories and server
// config.
func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, tokens TokenGenerator,
	hasher hash.Hasher, clk clock.Clock, cfg *config.Config) *AccountService {
	return &AccountService{
		db:              db,
		repos:           repos,
		tokens:          tokens,
		hasher:          hasher,
		clock:           clk,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

// Register creates a new account and its first session. Username and email
// must be free and password must match its confirmation.
func (s *AccountService) Register(ctx context.Context, username, email, password, confirmPassword string) (*models.Session, *models.Account, error) {
	accountRepo := s.repos.Accounts(s.db)

	if exists, err := accountRepo.ExistsEmail(ctx, email); err != nil {
		return nil, nil, fmt.Errorf("checking email: %w", err)
	} else if exists {
		return nil, nil, common.ErrEmailExists
	}
	if exists, err := accountRepo.ExistsUsername(ctx, username); err != nil {
		return nil, nil, fmt.Errorf("checking username: %w", err)
	} else if exists {
		return nil, nil, common.ErrUsernameExists
	}
	if password != confirmPassword {
		return nil, nil, common.ErrPasswordMismatch
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &models.Account{Username: username, Email: email, PasswordHash: passwordHash}
	var session *models.Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var txErr error
		account, txErr = s.repos.Accounts(tx).Create(ctx, account)
		if txErr != nil {
			return txErr
		}
		session, txErr = s.createSession(ctx, tx, account.ID)
		return txErr
	})
	if err != nil {
		// The existence checks above only shortcut the common case; the unique
		// constraints close the race under concurrent registration.
		var domainErr *common.Error
		if errors.As(err, &domainErr) {
			return nil, nil, domainErr
		}
		return nil, nil, fmt.Errorf("creating account: %w", err)
	}

	return session, account, nil
}

// Authenticate verifies credentials and creates a fresh session. Every login
// creates a new session row, allowing concurrent multi-device sessions.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.Session, *models.Account, error) {
	account, err := s.repos.Accounts(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrEmailNotFound
		}
		return nil, nil, fmt.Errorf("fetching account: %w", err)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, nil, common.ErrInvalidPassword
	}

	session, err := s.createSession(ctx, s.db, account.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, account, nil
}

// ValidateAccessToken resolves an access token into its owning account and
// records the request metadata on the session. Unknown tokens and orphaned
// sessions both surface as Unauthorized so callers cannot probe for existence.
func (s *AccountService) ValidateAccessToken(ctx context.Context, accessToken string, meta *RequestMeta) (*models.Account, error) {
	session, err := s.repos.Sessions(s.db).GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("fetching session: %w", err)
	}

	account, err := s.repos.Accounts(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("fetching account: %w", err)
	}

	now := s.clock.Now()
	if session.AccessExpired(now) {
		return nil, common.ErrExpired
	}

	var ip *string
	var device *models.Device
	if meta != nil {
		if meta.IPAddress != "" {
			ip = &meta.IPAddress
		}
		device = meta.Device
	}
	if err := s.repos.Sessions(s.db).Touch(ctx, session.ID, ip, device, now); err != nil {
		return nil, fmt.Errorf("updating session usage: %w", err)
	}

	return account, nil
}

// Renew rotates the session's token pair. Rotation is single-use: the store
// swap is keyed on the old refresh token value, so of two concurrent renewals
// at most one succeeds and the loser observes Unauthorized.
func (s *AccountService) Renew(ctx context.Context, refreshToken string) (*models.Session, *models.Account, error) {
	sessionRepo := s.repos.Sessions(s.db)

	session, err := sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("fetching session: %w", err)
	}
	if !session.Renewable(s.clock.Now()) {
		return nil, nil, common.ErrExpired
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		rotation, err := s.newRotation()
		if err != nil {
			return nil, nil, err
		}
		rotated, err := sessionRepo.Rotate(ctx, refreshToken, rotation)
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				continue
			}
			if errors.Is(err, common.ErrorNotFound) {
				// Lost the race against a concurrent rotation or revocation.
				return nil, nil, common.ErrUnauthorized
			}
			return nil, nil, fmt.Errorf("rotating session: %w", err)
		}

		account, err := s.repos.Accounts(s.db).GetByID(ctx, rotated.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, nil, common.ErrUnauthorized
			}
			return nil, nil, fmt.Errorf("fetching account: %w", err)
		}
		return rotated, account, nil
	}

	return nil, nil, fmt.Errorf("rotating session: %w", common.ErrorConflict)
}

// Revoke deletes exactly the session owning the access token (logout of the
// current device). Revoking an already-gone token is not an error.
func (s *AccountService) Revoke(ctx context.Context, accessToken string) error {
	if err := s.repos.Sessions(s.db).DeleteByAccessToken(ctx, accessToken); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// RevokeOthers deletes every session of the account except the caller's own.
func (s *AccountService) RevokeOthers(ctx context.Context, accessToken string) error {
	session, err := s.sessionByAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := s.repos.Sessions(s.db).DeleteOthers(ctx, session.UserID, session.ID); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}

// ListSessions describes the account's sessions that were used at least once
// and are not past both expiry windows, marking the caller's own session.
func (s *AccountService) ListSessions(ctx context.Context, accessToken string) ([]*SessionSummary, error) {
	session, err := s.sessionByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rows, err := s.repos.Sessions(s.db).ListCurrent(ctx, session.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	summaries := make([]*SessionSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, &SessionSummary{
			LastUsage:      row.LastUsage,
			IPAddress:      row.IPAddress,
			Device:         row.Device,
			Expired:        row.AccessExpired(now),
			Renewable:      row.Renewable(now),
			CurrentSession: row.ID == session.ID,
		})
	}
	return summaries, nil
}

// UpdatePassword verifies the old password, checks the confirmation, revokes
// every other session of the account, and persists the new hash. The caller's
// session stays valid.
func (s *AccountService) UpdatePassword(ctx context.Context, accessToken, password, newPassword, confirmPassword string) error {
	session, account, err := s.sessionWithAccount(ctx, accessToken)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return common.ErrInvalidPassword
	}
	if newPassword != confirmPassword {
		return common.ErrPasswordMismatch
	}

	if err := s.repos.Sessions(s.db).DeleteOthers(ctx, session.UserID, session.ID); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.repos.Accounts(s.db).UpdatePasswordHash(ctx, account.ID, passwordHash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// UpdateUsername renames the account after a uniqueness check. Existing
// sessions stay valid.
func (s *AccountService) UpdateUsername(ctx context.Context, accessToken, username string) error {
	_, account, err := s.sessionWithAccount(ctx, accessToken)
	if err != nil {
		return err
	}
	if exists, err := s.repos.Accounts(s.db).ExistsUsername(ctx, username); err != nil {
		return fmt.Errorf("checking username: %w", err)
	} else if exists {
		return common.ErrUsernameExists
	}
	if err := s.repos.Accounts(s.db).UpdateUsername(ctx, account.ID, username); err != nil {
		var domainErr *common.Error
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return fmt.Errorf("updating username: %w", err)
	}
	return nil
}

// UpdateEmail changes the account email after a uniqueness check. Existing
// sessions stay valid.
func (s *AccountService) UpdateEmail(ctx context.Context, accessToken, email string) error {
	_, account, err := s.sessionWithAccount(ctx, accessToken)
	if err != nil {
		return err
	}
	if exists, err := s.repos.Accounts(s.db).ExistsEmail(ctx, email); err != nil {
		return fmt.Errorf("checking email: %w", err)
	} else if exists {
		return common.ErrEmailExists
	}
	if err := s.repos.Accounts(s.db).UpdateEmail(ctx, account.ID, email); err != nil {
		var domainErr *common.Error
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return fmt.Errorf("updating email: %w", err)
	}
	return nil
}

// CheckUsernameAvailable returns ErrUsernameExists when the username is taken.
func (s *AccountService) CheckUsernameAvailable(ctx context.Context, username string) error {
	exists, err := s.repos.Accounts(s.db).ExistsUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("checking username: %w", err)
	}
	if exists {
		return common.ErrUsernameExists
	}
	return nil
}

// CheckEmailAvailable returns ErrEmailExists when the email is taken.
func (s *AccountService) CheckEmailAvailable(ctx context.Context, email string) error {
	exists, err := s.repos.Accounts(s.db).ExistsEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if exists {
		return common.ErrEmailExists
	}
	return nil
}

// --- helpers below ---

// createSession generates a token pair and inserts the session, regenerating
// on the rare token collision. The refresh expiry always lies strictly after
// the access expiry because the refresh window is longer.
func (s *AccountService) createSession(ctx context.Context, db dbx.DBTX, userID int64) (*models.Session, error) {
	sessionRepo := s.repos.Sessions(db)

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		accessToken, err := s.tokens.Generate(token.SessionTokenLength)
		if err != nil {
			return nil, fmt.Errorf("generating access token: %w", err)
		}
		refreshToken, err := s.tokens.Generate(token.SessionTokenLength)
		if err != nil {
			return nil, fmt.Errorf("generating refresh token: %w", err)
		}

		now := s.clock.Now()
		session, err := sessionRepo.Create(ctx, &models.Session{
			UserID:             userID,
			AccessToken:        accessToken,
			RefreshToken:       refreshToken,
			CreatedAt:          now,
			ExpireAccessToken:  now.Add(s.accessTokenTTL),
			ExpireRefreshToken: now.Add(s.refreshTokenTTL),
		})
		if err != nil {
			if errors.Is(err, common.ErrorConflict) {
				continue
			}
			return nil, fmt.Errorf("creating session: %w", err)
		}
		return session, nil
	}

	return nil, fmt.Errorf("creating session: %w", common.ErrorConflict)
}

func (s *AccountService) newRotation() (sessions.Rotation, error) {
	accessToken, err := s.tokens.Generate(token.SessionTokenLength)
	if err != nil {
		return sessions.Rotation{}, fmt.Errorf("generating access token: %w", err)
	}
	refreshToken, err := s.tokens.Generate(token.SessionTokenLength)
	if err != nil {
		return sessions.Rotation{}, fmt.Errorf("generating refresh token: %w", err)
	}
	now := s.clock.Now()
	return sessions.Rotation{
		AccessToken:        accessToken,
		RefreshToken:       refreshToken,
		ExpireAccessToken:  now.Add(s.accessTokenTTL),
		ExpireRefreshToken: now.Add(s.refreshTokenTTL),
	}, nil
}

func (s *AccountService) sessionByAccessToken(ctx context.Context, accessToken string) (*models.Session, error) {
	session, err := s.repos.Sessions(s.db).GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	return session, nil
}

func (s *AccountService) sessionWithAccount(ctx context.Context, accessToken string) (*models.Session, *models.Account, error) {
	session, err := s.sessionByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.repos.Accounts(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("fetching account: %w", err)
	}
	return session, account, nil
}
