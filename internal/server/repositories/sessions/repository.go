package sessions

import (
	"context"
	"time"

	"github.com/Ursa1337/account-service/internal/server/models"
)

// Rotation carries the replacement token pair and expiry windows applied
// atomically during a refresh.
type Rotation struct {
	AccessToken        string
	RefreshToken       string
	ExpireAccessToken  time.Time
	ExpireRefreshToken time.Time
}

// Repository defines the persistence operations for sessions.
type Repository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*models.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)

	// Rotate replaces the token pair of the session currently holding
	// oldRefreshToken. The WHERE clause on the old token value makes the swap a
	// compare-and-swap: of two concurrent rotations at most one finds the row,
	// the loser gets common.ErrorNotFound.
	Rotate(ctx context.Context, oldRefreshToken string, rotation Rotation) (*models.Session, error)

	// Touch records a successful authenticated use of the session.
	Touch(ctx context.Context, id int64, ip *string, device *models.Device, at time.Time) error

	DeleteByAccessToken(ctx context.Context, accessToken string) error
	DeleteOthers(ctx context.Context, userID, keepID int64) error

	// ListCurrent returns the account's sessions that were used at least once
	// and are not past both expiry windows.
	ListCurrent(ctx context.Context, userID int64, now time.Time) ([]*models.Session, error)
}
