package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/catalog/repository"
)

const (
	DefaultFailureWindow   = 10 * time.Minute
	DefaultLockoutDuration = 15 * time.Minute
)

// AttemptOptions tunes the failure counter and lockout marker lifetimes.
type AttemptOptions struct {
	FailureWindow   time.Duration
	LockoutDuration time.Duration
	OpTimeout       time.Duration
}

type attemptRepository struct {
	client  redislib.UniversalClient
	window  time.Duration
	lockout time.Duration
	timeout time.Duration
}

// NewAttemptRepository creates a Redis-backed failure counter and lockout store.
func NewAttemptRepository(client redislib.UniversalClient, opts AttemptOptions) repository.LoginAttemptRepository {
	if opts.FailureWindow <= 0 {
		opts.FailureWindow = DefaultFailureWindow
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = DefaultLockoutDuration
	}
	return &attemptRepository{
		client:  client,
		window:  opts.FailureWindow,
		lockout: opts.LockoutDuration,
		timeout: opts.OpTimeout,
	}
}

func (r *attemptRepository) IsLocked(ctx context.Context, login string) (bool, error) {
	opCtx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	err := r.client.Get(opCtx, lockKey(login)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redislib.Nil):
		return false, nil
	default:
		return false, unavailable(err)
	}
}

func (r *attemptRepository) RegisterFailure(ctx context.Context, login string) (int64, error) {
	opCtx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	var incr *redislib.IntCmd
	_, err := r.client.TxPipelined(opCtx, func(pipe redislib.Pipeliner) error {
		incr = pipe.Incr(opCtx, counterKey(login))
		pipe.Expire(opCtx, counterKey(login), r.window)
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return incr.Val(), nil
}

// Lock sets the marker and drops the counter so history restarts once the lockout lapses.
func (r *attemptRepository) Lock(ctx context.Context, login string) error {
	opCtx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	_, err := r.client.TxPipelined(opCtx, func(pipe redislib.Pipeliner) error {
		pipe.Set(opCtx, lockKey(login), "1", r.lockout)
		pipe.Del(opCtx, counterKey(login))
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *attemptRepository) Reset(ctx context.Context, login string) error {
	opCtx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	if err := r.client.Del(opCtx, counterKey(login)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Both keys share a hash tag so the MULTI blocks stay on one cluster slot.
func counterKey(login string) string {
	return "login:{" + normalizeLogin(login) + "}:attempts"
}

func lockKey(login string) string {
	return "login:{" + normalizeLogin(login) + "}:locked"
}

// normalizeLogin folds case so "Alice" and "alice" share one counter.
func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
