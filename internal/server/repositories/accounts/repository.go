package accounts

import (
	"context"

	"github.com/Ursa1337/account-service/internal/server/models"
)

// Repository defines the persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsUsername(ctx context.Context, username string) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	UpdateUsername(ctx context.Context, id int64, username string) error
	UpdateEmail(ctx context.Context, id int64, email string) error
}
