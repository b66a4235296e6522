package avatars

import (
	"context"

	"github.com/Ursa1337/account-service/internal/server/models"
)

// Repository defines the persistence operations for avatar records.
type Repository interface {
	Create(ctx context.Context, avatar *models.Avatar) (*models.Avatar, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Avatar, error)
	Update(ctx context.Context, id int64, name, url string) error
	Delete(ctx context.Context, id int64) error
}
