package repository

import (
	"context"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
)

// SessionRepository is one namespace (guest or auth) of the session store.
//
// Get returns domain.ErrSessionNotFound on a miss or expiry. Update never
// recreates a missing key and reports domain.ErrStaleSession instead. Store
// timeouts and connectivity failures wrap domain.ErrStoreUnavailable.
type SessionRepository interface {
	Kind() domain.SessionKind
	Create(ctx context.Context, session *domain.Session) (sessionid.ID, error)
	Get(ctx context.Context, id sessionid.ID) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id sessionid.ID) error
}
