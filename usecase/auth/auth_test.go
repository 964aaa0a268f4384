package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/mocks"
	redisrepo "github.com/fastygo/catalog/repository/redis"
	"github.com/fastygo/catalog/usecase/auth"
)

const (
	login   = "alice"
	goodPwd = "correct horse"
	badPwd  = "wrong"
	hashed  = "$argon2id$stub"
)

type fixture struct {
	mr     *miniredis.Miniredis
	users  *mocks.MockUserRepository
	hasher *mocks.MockPasswordHasher
	uc     *auth.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		mr:     mr,
		users:  mocks.NewMockUserRepository(ctrl),
		hasher: mocks.NewMockPasswordHasher(ctrl),
	}
	f.uc = auth.New(f.users, redisrepo.NewAttemptRepository(client, redisrepo.AttemptOptions{}), f.hasher, auth.Options{}, nil)

	f.hasher.EXPECT().Verify(goodPwd, hashed).Return(true, nil).AnyTimes()
	f.hasher.EXPECT().Verify(badPwd, hashed).Return(false, nil).AnyTimes()
	return f
}

func (f *fixture) withUser(status domain.Status) *domain.User {
	user := &domain.User{ID: "u-1", Username: login, PasswordHash: hashed, Role: domain.RoleClient, Status: status}
	f.users.EXPECT().GetByLogin(gomock.Any(), login).Return(user, nil).AnyTimes()
	return user
}

func TestAuthenticate_Success(t *testing.T) {
	f := newFixture(t)
	want := f.withUser(domain.StatusActive)

	got, err := f.uc.Authenticate(context.Background(), login, goodPwd)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAuthenticate_PendingUserMayLogIn(t *testing.T) {
	f := newFixture(t)
	f.withUser(domain.StatusPending)

	_, err := f.uc.Authenticate(context.Background(), login, goodPwd)
	assert.NoError(t, err)
}

func TestAuthenticate_LocksAfterThreeFailures(t *testing.T) {
	f := newFixture(t)
	f.withUser(domain.StatusActive)
	ctx := context.Background()

	_, err := f.uc.Authenticate(ctx, login, badPwd)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.uc.Authenticate(ctx, login, badPwd)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.uc.Authenticate(ctx, login, badPwd)
	assert.ErrorIs(t, err, domain.ErrLocked)

	// the correct secret is not even checked while locked
	_, err = f.uc.Authenticate(ctx, login, goodPwd)
	assert.ErrorIs(t, err, domain.ErrLocked)
}

func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.withUser(domain.StatusActive)
	ctx := context.Background()

	for _, step := range []struct {
		secret string
		want   error
	}{
		{badPwd, domain.ErrInvalidCredentials},
		{goodPwd, nil},
		{badPwd, domain.ErrInvalidCredentials},
		{badPwd, domain.ErrInvalidCredentials},
	} {
		_, err := f.uc.Authenticate(ctx, login, step.secret)
		if step.want == nil {
			require.NoError(t, err)
			continue
		}
		require.ErrorIs(t, err, step.want)
	}
}

func TestAuthenticate_LockoutExpires(t *testing.T) {
	f := newFixture(t)
	f.withUser(domain.StatusActive)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = f.uc.Authenticate(ctx, login, badPwd)
	}
	_, err := f.uc.Authenticate(ctx, login, goodPwd)
	require.ErrorIs(t, err, domain.ErrLocked)

	f.mr.FastForward(redisrepo.DefaultLockoutDuration)

	_, err = f.uc.Authenticate(ctx, login, goodPwd)
	assert.NoError(t, err)
}

func TestAuthenticate_LockedSkipsLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	hasher := mocks.NewMockPasswordHasher(ctrl)
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	attempts := redisrepo.NewAttemptRepository(client, redisrepo.AttemptOptions{})
	require.NoError(t, attempts.Lock(context.Background(), login))

	uc := auth.New(users, attempts, hasher, auth.Options{}, nil)
	_, err := uc.Authenticate(context.Background(), login, goodPwd)
	assert.ErrorIs(t, err, domain.ErrLocked)
}

func TestAuthenticate_Suspended(t *testing.T) {
	f := newFixture(t)
	f.withUser(domain.StatusSuspended)

	_, err := f.uc.Authenticate(context.Background(), login, goodPwd)
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)
	assert.False(t, errors.Is(err, domain.ErrLocked))
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeLocked))
}

func TestAuthenticate_UnknownLoginIsNotCounted(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByLogin(gomock.Any(), "ghost").Return(nil, domain.ErrUserNotFound).Times(4)

	for i := 0; i < 4; i++ {
		_, err := f.uc.Authenticate(context.Background(), "ghost", badPwd)
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	assert.False(t, f.mr.Exists("login:{ghost}:attempts"))
	assert.False(t, f.mr.Exists("login:{ghost}:locked"))
}

func TestAuthenticate_DeletedUserIsUnknown(t *testing.T) {
	f := newFixture(t)
	f.withUser(domain.StatusDeleted)

	_, err := f.uc.Authenticate(context.Background(), login, goodPwd)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticate_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	_, err := f.uc.Authenticate(context.Background(), login, goodPwd)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestAuthenticate_CorruptHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	hasher := mocks.NewMockPasswordHasher(ctrl)
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users.EXPECT().GetByLogin(gomock.Any(), login).
		Return(&domain.User{ID: "u-1", PasswordHash: "garbage", Status: domain.StatusActive}, nil)
	hasher.EXPECT().Verify(goodPwd, "garbage").Return(false, errors.New("bad hash"))

	uc := auth.New(users, redisrepo.NewAttemptRepository(client, redisrepo.AttemptOptions{}), hasher, auth.Options{}, nil)
	_, err := uc.Authenticate(context.Background(), login, goodPwd)
	require.Error(t, err)
	assert.False(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
}

func TestVerifySecret_SharesLoginLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := &domain.User{ID: "u-1", Username: login, PasswordHash: hashed, Role: domain.RoleClient, Status: domain.StatusDeleted}

	assert.ErrorIs(t, f.uc.VerifySecret(ctx, login, user, badPwd), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, f.uc.VerifySecret(ctx, login, user, badPwd), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, f.uc.VerifySecret(ctx, login, user, badPwd), domain.ErrLocked)

	assert.ErrorIs(t, f.uc.VerifySecret(ctx, login, user, goodPwd), domain.ErrLocked)
	_, err := f.uc.Authenticate(ctx, login, goodPwd)
	assert.ErrorIs(t, err, domain.ErrLocked)
}

func TestVerifySecret_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := &domain.User{ID: "u-1", Username: login, PasswordHash: hashed, Status: domain.StatusDeleted}

	assert.ErrorIs(t, f.uc.VerifySecret(ctx, login, user, badPwd), domain.ErrInvalidCredentials)
	require.True(t, f.mr.Exists("login:{alice}:attempts"))

	require.NoError(t, f.uc.VerifySecret(ctx, login, user, goodPwd))
	assert.False(t, f.mr.Exists("login:{alice}:attempts"))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	f.hasher.EXPECT().Hash(goodPwd).Return(hashed, nil)
	f.users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *domain.User) error {
		assert.Equal(t, hashed, u.PasswordHash)
		return nil
	})

	user, err := f.uc.Register(context.Background(), "bob", "bob@example.com", goodPwd)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, user.Role)
	assert.Equal(t, domain.StatusPending, user.Status)
	assert.NotEmpty(t, user.ID)
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	f.hasher.EXPECT().Hash(goodPwd).Return(hashed, nil)
	f.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domain.ErrConflict)

	_, err := f.uc.Register(context.Background(), "bob", "bob@example.com", goodPwd)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
