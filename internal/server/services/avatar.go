package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Ursa1337/account-service/internal/common"
	"github.com/Ursa1337/account-service/internal/server/config"
	"github.com/Ursa1337/account-service/internal/server/models"
	"github.com/Ursa1337/account-service/internal/server/repositories/repomanager"
	"github.com/Ursa1337/account-service/internal/server/storage"
	"github.com/Ursa1337/account-service/internal/server/token"
)

// maxKeyAttempts bounds the probe loop for a free blob key.
const maxKeyAttempts = 5

// contentTypes maps the accepted avatar file extensions to the content type
// stored alongside the blob.
var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// AvatarService manages the single avatar of an account: the blob in object
// storage and the row pointing at it.
type AvatarService struct {
	db            *sql.DB
	repos         repomanager.RepositoryManager
	blobs         storage.BlobStore
	tokens        TokenGenerator
	publicBaseURL string
}

// NewAvatarService constructs an AvatarService.
func NewAvatarService(db *sql.DB, repos repomanager.RepositoryManager, blobs storage.BlobStore,
	tokens TokenGenerator, cfg *config.Config) *AvatarService {
	return &AvatarService{
		db:            db,
		repos:         repos,
		blobs:         blobs,
		tokens:        tokens,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Upload stores a new avatar for the account, replacing any previous one. The
// old blob is deleted only after the new blob is written and the row points at
// it, so a crash never leaves the account without a readable avatar.
func (s *AvatarService) Upload(ctx context.Context, userID int64, filename string, data []byte) (*models.Avatar, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return nil, common.NewValidationError("avatar", "unsupported file type")
	}
	if len(data) == 0 {
		return nil, common.NewValidationError("avatar", "file must not be empty")
	}

	name, err := s.freeKey(ctx, ext)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, name, data, contentType); err != nil {
		return nil, fmt.Errorf("writing avatar blob: %w", err)
	}

	url := s.publicBaseURL + "/avatars/" + name
	avatarRepo := s.repos.Avatars(s.db)

	existing, err := avatarRepo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if err := avatarRepo.Update(ctx, existing.ID, name, url); err != nil {
			return nil, fmt.Errorf("updating avatar: %w", err)
		}
		// Best effort: the row no longer references the old blob.
		_ = s.blobs.Delete(ctx, existing.Name)
		return &models.Avatar{ID: existing.ID, UserID: userID, Name: name, URL: url}, nil
	case errors.Is(err, common.ErrorNotFound):
		avatar, err := avatarRepo.Create(ctx, &models.Avatar{UserID: userID, Name: name, URL: url})
		if err != nil {
			return nil, fmt.Errorf("creating avatar: %w", err)
		}
		return avatar, nil
	default:
		return nil, fmt.Errorf("fetching avatar: %w", err)
	}
}

// Remove deletes the account's avatar. Returns ErrAvatarNotFound when the
// account has none.
func (s *AvatarService) Remove(ctx context.Context, userID int64) error {
	avatarRepo := s.repos.Avatars(s.db)

	existing, err := avatarRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrAvatarNotFound
		}
		return fmt.Errorf("fetching avatar: %w", err)
	}
	if err := avatarRepo.Delete(ctx, existing.ID); err != nil {
		return fmt.Errorf("deleting avatar: %w", err)
	}
	_ = s.blobs.Delete(ctx, existing.Name)
	return nil
}

// URL returns the public avatar URL of the account, or nil when it has none.
func (s *AvatarService) URL(ctx context.Context, userID int64) (*string, error) {
	avatar, err := s.repos.Avatars(s.db).GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching avatar: %w", err)
	}
	return &avatar.URL, nil
}

// freeKey generates blob keys until one is not taken in storage.
func (s *AvatarService) freeKey(ctx context.Context, ext string) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := s.tokens.Generate(token.StorageKeyLength)
		if err != nil {
			return "", fmt.Errorf("generating blob key: %w", err)
		}
		name := key + ext
		exists, err := s.blobs.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("probing blob key: %w", err)
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("allocating blob key: %w", common.ErrorConflict)
}
