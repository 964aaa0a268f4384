package repository

import "context"

// LoginAttemptRepository keeps the per-login failure counter and lockout marker.
type LoginAttemptRepository interface {
	// IsLocked reports whether a lockout marker exists for login.
	IsLocked(ctx context.Context, login string) (bool, error)
	// RegisterFailure atomically increments the failure counter, refreshes its
	// window and returns the post-increment count.
	RegisterFailure(ctx context.Context, login string) (int64, error)
	// Lock places the lockout marker. Repeated calls are harmless.
	Lock(ctx context.Context, login string) error
	// Reset clears the failure counter.
	Reset(ctx context.Context, login string) error
}
