package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/fastygo/catalog/domain"
)

// DefaultOpTimeout bounds every single round-trip to Redis.
const DefaultOpTimeout = 250 * time.Millisecond

// opContext derives the bounded context used for one store call.
func opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// unavailable classifies a transport-level failure. No retry is attempted here.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
