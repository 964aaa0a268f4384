package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository"
	"github.com/fastygo/catalog/usecase"
)

// DefaultFailureThreshold is the number of consecutive failures that locks a login.
const DefaultFailureThreshold = 3

type Options struct {
	FailureThreshold int64
}

// UseCase verifies credentials and drives the per-login lockout.
type UseCase struct {
	users     repository.UserRepository
	attempts  repository.LoginAttemptRepository
	hasher    usecase.PasswordHasher
	threshold int64
	logger    *zap.Logger
}

func New(
	users repository.UserRepository,
	attempts repository.LoginAttemptRepository,
	hasher usecase.PasswordHasher,
	opts Options,
	logger *zap.Logger,
) *UseCase {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:     users,
		attempts:  attempts,
		hasher:    hasher,
		threshold: opts.FailureThreshold,
		logger:    logger,
	}
}

// Authenticate checks login/secret and returns the account on success.
//
// A locked login is rejected before any credential check. Unknown logins are
// not counted.
func (uc *UseCase) Authenticate(ctx context.Context, login, secret string) (*domain.User, error) {
	if err := uc.checkLock(ctx, login); err != nil {
		return nil, err
	}

	user, err := uc.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsDeleted() {
		return nil, domain.ErrInvalidCredentials
	}

	if err := uc.verify(ctx, login, user, secret); err != nil {
		return nil, err
	}

	if user.IsSuspended() {
		return nil, domain.ErrAccountSuspended
	}

	uc.reset(ctx, login)
	return user, nil
}

// VerifySecret checks secret against an account already looked up by the
// caller, under the same lockout and failure counting as Authenticate. The
// account status is not inspected.
func (uc *UseCase) VerifySecret(ctx context.Context, login string, user *domain.User, secret string) error {
	if err := uc.checkLock(ctx, login); err != nil {
		return err
	}
	if err := uc.verify(ctx, login, user, secret); err != nil {
		return err
	}
	uc.reset(ctx, login)
	return nil
}

func (uc *UseCase) checkLock(ctx context.Context, login string) error {
	locked, err := uc.attempts.IsLocked(ctx, login)
	if err != nil {
		return err
	}
	if locked {
		return domain.ErrLocked
	}
	return nil
}

func (uc *UseCase) verify(ctx context.Context, login string, user *domain.User, secret string) error {
	ok, err := uc.hasher.Verify(secret, user.PasswordHash)
	if err != nil {
		uc.logger.Error("stored password hash unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		return uc.registerFailure(ctx, login)
	}
	return nil
}

func (uc *UseCase) reset(ctx context.Context, login string) {
	if err := uc.attempts.Reset(ctx, login); err != nil {
		uc.logger.Warn("failed to reset login failures", zap.String("login", login), zap.Error(err))
	}
}

func (uc *UseCase) registerFailure(ctx context.Context, login string) error {
	count, err := uc.attempts.RegisterFailure(ctx, login)
	if err != nil {
		return err
	}
	if count < uc.threshold {
		return domain.ErrInvalidCredentials
	}
	if err := uc.attempts.Lock(ctx, login); err != nil {
		return err
	}
	uc.logger.Warn("login locked", zap.String("login", login), zap.Int64("failures", count))
	return domain.ErrLocked
}

// Register creates a pending client account.
func (uc *UseCase) Register(ctx context.Context, username, email, secret string) (*domain.User, error) {
	hash, err := uc.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           sessionid.New().UUID().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleClient,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	uc.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}
