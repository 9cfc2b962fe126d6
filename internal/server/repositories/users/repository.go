package users

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when nothing matches; writes hitting a unique index return
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error)
	FindByIdentifier(ctx context.Context, lookup models.UserLookup) (*models.User, error)

	SetRefreshToken(ctx context.Context, id, token string) error
	ClearRefreshToken(ctx context.Context, id string) error
	// RotateRefreshToken replaces current with next only if current is still
	// the stored value. It reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullname, email string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCoverImage(ctx context.Context, id, url string) error
}
