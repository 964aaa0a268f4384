package account

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/repository"
	"github.com/fastygo/catalog/usecase"
)

// ErrTransitionNotAllowed is returned when an account is not in the status an
// operation starts from.
var ErrTransitionNotAllowed = domain.NewError(domain.ErrCodeForbidden, "account status does not allow this operation")

// SecretVerifier checks a secret for a known account under the per-login
// lockout. *auth.UseCase satisfies it.
type SecretVerifier interface {
	VerifySecret(ctx context.Context, login string, user *domain.User, secret string) error
}

// UseCase manages account state. Every secret it accepts goes through the
// same lockout as login.
type UseCase struct {
	users   repository.UserRepository
	hasher  usecase.PasswordHasher
	secrets SecretVerifier
	logger  *zap.Logger
	now     func() time.Time
}

func New(users repository.UserRepository, hasher usecase.PasswordHasher, secrets SecretVerifier, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:   users,
		hasher:  hasher,
		secrets: secrets,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// Activate moves a pending account to active.
func (uc *UseCase) Activate(ctx context.Context, userID string) (*domain.User, error) {
	user, err := uc.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != domain.StatusPending {
		return nil, ErrTransitionNotAllowed
	}
	user.Status = domain.StatusActive
	return uc.save(ctx, user)
}

// Delete soft-deletes clients and removes staff accounts outright.
func (uc *UseCase) Delete(ctx context.Context, userID string) error {
	user, err := uc.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role.IsStaff() {
		return uc.users.Delete(ctx, user.ID)
	}

	deletedAt := uc.now().UTC()
	user.Status = domain.StatusDeleted
	user.DeletedAt = &deletedAt
	_, err = uc.save(ctx, user)
	return err
}

// Restore brings back a soft-deleted client after checking its credentials.
func (uc *UseCase) Restore(ctx context.Context, login, secret string) (*domain.User, error) {
	user, err := uc.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := uc.secrets.VerifySecret(ctx, login, user, secret); err != nil {
		return nil, err
	}
	if user.Role != domain.RoleClient || !user.IsDeleted() {
		return nil, ErrTransitionNotAllowed
	}

	user.Status = domain.StatusActive
	user.DeletedAt = nil
	return uc.save(ctx, user)
}

// ChangePassword replaces the secret after checking the current one. Failures
// count against the account's username.
func (uc *UseCase) ChangePassword(ctx context.Context, userID, current, next string) (*domain.User, error) {
	user, err := uc.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.secrets.VerifySecret(ctx, user.Username, user, current); err != nil {
		return nil, err
	}
	hash, err := uc.hasher.Hash(next)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	return uc.save(ctx, user)
}

func (uc *UseCase) ChangeUsername(ctx context.Context, userID, username string) (*domain.User, error) {
	user, err := uc.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Username = username
	return uc.save(ctx, user)
}

func (uc *UseCase) ChangeEmail(ctx context.Context, userID, email string) (*domain.User, error) {
	user, err := uc.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Email = email
	return uc.save(ctx, user)
}

// Suspend blocks an active account. Only admins may call it.
func (uc *UseCase) Suspend(ctx context.Context, requesterID, username string) (*domain.User, error) {
	return uc.setStatus(ctx, requesterID, username, domain.StatusActive, domain.StatusSuspended)
}

// Unsuspend reverses Suspend.
func (uc *UseCase) Unsuspend(ctx context.Context, requesterID, username string) (*domain.User, error) {
	return uc.setStatus(ctx, requesterID, username, domain.StatusSuspended, domain.StatusActive)
}

func (uc *UseCase) setStatus(ctx context.Context, requesterID, username string, from, to domain.Status) (*domain.User, error) {
	requester, err := uc.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	target, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.Status != from {
		return nil, ErrTransitionNotAllowed
	}
	target.Status = to
	updated, err := uc.save(ctx, target)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("account status changed",
		zap.String("requester_id", requester.ID),
		zap.String("user_id", target.ID),
		zap.String("status", string(to)))
	return updated, nil
}

// ChangeRole assigns a role to the named account. Clients may not change roles.
func (uc *UseCase) ChangeRole(ctx context.Context, requesterID, username string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidPayload
	}
	requester, err := uc.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.Role == domain.RoleClient {
		return nil, domain.ErrForbidden
	}

	target, err := uc.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.IsDeleted() {
		return nil, domain.ErrUserNotFound
	}
	target.Role = role
	return uc.save(ctx, target)
}

// PurgeDeleted hard-deletes clients soft-deleted more than retention ago.
func (uc *UseCase) PurgeDeleted(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := uc.now().UTC().Add(-retention)
	purged, err := uc.users.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		uc.logger.Info("purged deleted accounts", zap.Int64("count", purged), zap.Time("cutoff", cutoff))
	}
	return purged, nil
}

func (uc *UseCase) save(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
