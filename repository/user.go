package repository

import (
	"context"
	"time"

	"github.com/fastygo/catalog/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByLogin resolves a username or an email address.
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// PurgeDeleted hard-deletes clients soft-deleted before the cutoff.
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}
