package impl_test

import (
	"context"
	"log/slog"
	"testing"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/auth"
	"passport/internal/infra/persistence/memory"
	"passport/internal/usecase"
	"passport/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if user := args.Get(0); user != nil {
		return user.(*entity.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*entity.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserStore) FindBySessionToken(ctx context.Context, token string) (*entity.User, error) {
	args := m.Called(ctx, token)
	if user := args.Get(0); user != nil {
		return user.(*entity.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserStore) FindByResetToken(ctx context.Context, token string) (*entity.User, error) {
	args := m.Called(ctx, token)
	if user := args.Get(0); user != nil {
		return user.(*entity.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserStore) Add(ctx context.Context, email, hashedPassword string) (*entity.User, error) {
	args := m.Called(ctx, email, hashedPassword)
	if user := args.Get(0); user != nil {
		return user.(*entity.User), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockUserStore) Update(ctx context.Context, id uuid.UUID, patch repository.UserPatch) error {
	args := m.Called(ctx, id, patch)

	return args.Error(0)
}

type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) Hash(password string) (string, error) {
	args := m.Called(password)

	return args.String(0), args.Error(1)
}

func (m *mockHasher) Verify(password, hash string) bool {
	args := m.Called(password, hash)

	return args.Bool(0)
}

type mockTokenSource struct {
	mock.Mock
}

func (m *mockTokenSource) NewToken() string {
	args := m.Called()

	return args.String(0)
}

func newServiceWithMocks(t *testing.T) (usecase.AuthUsecase, *mockUserStore, *mockHasher, *mockTokenSource) {
	t.Helper()

	store := &mockUserStore{}
	hasher := &mockHasher{}
	tokens := &mockTokenSource{}

	svc := impl.NewAuthService(impl.AuthServiceParams{
		Store:  store,
		Hasher: hasher,
		Tokens: tokens,
		Logger: slog.New(slog.DiscardHandler),
	})

	return svc, store, hasher, tokens
}

func TestRegisterUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("happy path hashes then adds", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		want := &entity.User{ID: uuid.New(), Email: "alice@example.com", HashedPassword: "hashed"}

		store.On("FindByEmail", ctx, "alice@example.com").Return(nil, repository.ErrUserNotFound).Once()
		hasher.On("Hash", "secret").Return("hashed", nil).Once()
		store.On("Add", ctx, "alice@example.com", "hashed").Return(want, nil).Once()

		user, err := svc.RegisterUser(ctx, usecase.RegisterInput{Email: "alice@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, want, user)
		store.AssertExpectations(t)
		hasher.AssertExpectations(t)
	})

	t.Run("taken email fails before hashing", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		existing := &entity.User{ID: uuid.New(), Email: "alice@example.com"}
		store.On("FindByEmail", ctx, "alice@example.com").Return(existing, nil).Once()

		_, err := svc.RegisterUser(ctx, usecase.RegisterInput{Email: "alice@example.com", Password: "secret"})
		assert.ErrorIs(t, err, domainerrors.ErrEmailTaken)
		hasher.AssertNotCalled(t, "Hash", mock.Anything)
	})

	t.Run("insert race still reads as taken email", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		store.On("FindByEmail", ctx, "alice@example.com").Return(nil, repository.ErrUserNotFound).Once()
		hasher.On("Hash", "secret").Return("hashed", nil).Once()
		store.On("Add", ctx, "alice@example.com", "hashed").Return(nil, repository.ErrEmailExists).Once()

		_, err := svc.RegisterUser(ctx, usecase.RegisterInput{Email: "alice@example.com", Password: "secret"})
		assert.ErrorIs(t, err, domainerrors.ErrEmailTaken)
	})

	t.Run("hash failure surfaces as hash error", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		store.On("FindByEmail", ctx, "alice@example.com").Return(nil, repository.ErrUserNotFound).Once()
		hasher.On("Hash", "secret").Return("", errors.New("boom")).Once()

		_, err := svc.RegisterUser(ctx, usecase.RegisterInput{Email: "alice@example.com", Password: "secret"})
		assert.ErrorIs(t, err, domainerrors.ErrPasswordHashFailed)
	})
}

func TestValidLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("matching credentials", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		user := &entity.User{ID: uuid.New(), Email: "a@b.c", HashedPassword: "hashed"}
		store.On("FindByEmail", ctx, "a@b.c").Return(user, nil).Once()
		hasher.On("Verify", "secret", "hashed").Return(true).Once()

		assert.True(t, svc.ValidLogin(ctx, "a@b.c", "secret"))
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		user := &entity.User{ID: uuid.New(), Email: "a@b.c", HashedPassword: "hashed"}
		store.On("FindByEmail", ctx, "a@b.c").Return(user, nil).Once()
		hasher.On("Verify", "wrong", "hashed").Return(false).Once()

		assert.False(t, svc.ValidLogin(ctx, "a@b.c", "wrong"))
	})

	t.Run("unknown email reads as false", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		store.On("FindByEmail", ctx, "a@b.c").Return(nil, repository.ErrUserNotFound).Once()

		assert.False(t, svc.ValidLogin(ctx, "a@b.c", "secret"))
	})

	t.Run("store failure reads as false", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		store.On("FindByEmail", ctx, "a@b.c").Return(nil, errors.New("db down")).Once()

		assert.False(t, svc.ValidLogin(ctx, "a@b.c", "secret"))
	})
}

func TestCreateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown email yields nil without error", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		store.On("FindByEmail", ctx, "ghost@b.c").Return(nil, repository.ErrUserNotFound).Once()

		token, err := svc.CreateSession(ctx, "ghost@b.c")
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("known email persists the new token", func(t *testing.T) {
		t.Parallel()

		svc, store, _, tokens := newServiceWithMocks(t)
		user := &entity.User{ID: uuid.New(), Email: "a@b.c"}
		newToken := "fresh-token"

		store.On("FindByEmail", ctx, "a@b.c").Return(user, nil).Once()
		tokens.On("NewToken").Return(newToken).Once()
		store.On("Update", ctx, user.ID, repository.UserPatch{
			SetSessionToken: true,
			SessionToken:    &newToken,
		}).Return(nil).Once()

		token, err := svc.CreateSession(ctx, "a@b.c")
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, newToken, *token)
		store.AssertExpectations(t)
	})
}

func TestGetUserBySession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("nil token short-circuits without a lookup", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)

		user, err := svc.GetUserBySession(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, user)
		store.AssertNotCalled(t, "FindBySessionToken", mock.Anything, mock.Anything)
	})

	t.Run("unmatched token yields nil without error", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		token := "stale"
		store.On("FindBySessionToken", ctx, token).Return(nil, repository.ErrUserNotFound).Once()

		user, err := svc.GetUserBySession(ctx, &token)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("live token resolves the user", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		token := "live"
		want := &entity.User{ID: uuid.New(), Email: "a@b.c"}
		store.On("FindBySessionToken", ctx, token).Return(want, nil).Once()

		user, err := svc.GetUserBySession(ctx, &token)
		require.NoError(t, err)
		assert.Equal(t, want, user)
	})
}

func TestDestroySession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("clears the session token", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		id := uuid.New()
		store.On("Update", ctx, id, repository.UserPatch{SetSessionToken: true}).Return(nil).Once()

		require.NoError(t, svc.DestroySession(ctx, id))
		store.AssertExpectations(t)
	})

	t.Run("unknown id is not an error", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		id := uuid.New()
		store.On("Update", ctx, id, mock.Anything).Return(repository.ErrUserNotFound).Once()

		assert.NoError(t, svc.DestroySession(ctx, id))
	})
}

func TestRequestPasswordReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown email is a user-facing error", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		store.On("FindByEmail", ctx, "ghost@b.c").Return(nil, repository.ErrUserNotFound).Once()

		_, err := svc.RequestPasswordReset(ctx, "ghost@b.c")
		assert.ErrorIs(t, err, domainerrors.ErrUnknownEmail)
	})

	t.Run("known email persists a fresh token", func(t *testing.T) {
		t.Parallel()

		svc, store, _, tokens := newServiceWithMocks(t)
		user := &entity.User{ID: uuid.New(), Email: "a@b.c"}
		resetToken := "reset-token"

		store.On("FindByEmail", ctx, "a@b.c").Return(user, nil).Once()
		tokens.On("NewToken").Return(resetToken).Once()
		store.On("Update", ctx, user.ID, repository.UserPatch{
			SetResetToken: true,
			ResetToken:    &resetToken,
		}).Return(nil).Once()

		token, err := svc.RequestPasswordReset(ctx, "a@b.c")
		require.NoError(t, err)
		assert.Equal(t, resetToken, token)
		store.AssertExpectations(t)
	})
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unmatched token is a user-facing error", func(t *testing.T) {
		t.Parallel()

		svc, store, _, _ := newServiceWithMocks(t)
		store.On("FindByResetToken", ctx, "bogus").Return(nil, repository.ErrUserNotFound).Once()

		err := svc.UpdatePassword(ctx, "bogus", "newpass")
		assert.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)
	})

	t.Run("new hash and token clear go through one patch", func(t *testing.T) {
		t.Parallel()

		svc, store, hasher, _ := newServiceWithMocks(t)
		user := &entity.User{ID: uuid.New(), Email: "a@b.c"}

		store.On("FindByResetToken", ctx, "valid").Return(user, nil).Once()
		hasher.On("Hash", "newpass").Return("newhash", nil).Once()
		store.On("Update", ctx, user.ID, repository.UserPatch{
			SetHashedPassword: true,
			HashedPassword:    "newhash",
			SetResetToken:     true,
		}).Return(nil).Once()

		require.NoError(t, svc.UpdatePassword(ctx, "valid", "newpass"))
		store.AssertExpectations(t)
	})
}

// TestAuthFlow drives the service end to end against the in-memory store and
// real bcrypt/uuid implementations.
func TestAuthFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := impl.NewAuthService(impl.AuthServiceParams{
		Store:  memory.NewUserStore(),
		Hasher: auth.NewBcryptHasher(bcrypt.MinCost),
		Tokens: auth.NewUUIDTokenSource(),
		Logger: slog.New(slog.DiscardHandler),
	})

	const email = "flow@example.com"

	user, err := svc.RegisterUser(ctx, usecase.RegisterInput{Email: email, Password: "first-pass"})
	require.NoError(t, err)
	require.NotNil(t, user)

	_, err = svc.RegisterUser(ctx, usecase.RegisterInput{Email: email, Password: "first-pass"})
	require.ErrorIs(t, err, domainerrors.ErrEmailTaken)

	assert.True(t, svc.ValidLogin(ctx, email, "first-pass"))
	assert.False(t, svc.ValidLogin(ctx, email, "wrong"))
	assert.False(t, svc.ValidLogin(ctx, "nobody@example.com", "first-pass"))

	first, err := svc.CreateSession(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, first)

	resolved, err := svc.GetUserBySession(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, user.ID, resolved.ID)

	// A second session replaces the first: single active session per user.
	second, err := svc.CreateSession(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, *first, *second)

	stale, err := svc.GetUserBySession(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, svc.DestroySession(ctx, user.ID))

	gone, err := svc.GetUserBySession(ctx, second)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Destroying an already-destroyed session is fine.
	require.NoError(t, svc.DestroySession(ctx, user.ID))

	_, err = svc.RequestPasswordReset(ctx, "nobody@example.com")
	require.ErrorIs(t, err, domainerrors.ErrUnknownEmail)

	reset, err := svc.RequestPasswordReset(ctx, email)
	require.NoError(t, err)
	require.NotEmpty(t, reset)

	require.NoError(t, svc.UpdatePassword(ctx, reset, "second-pass"))

	// Consumed tokens are gone.
	err = svc.UpdatePassword(ctx, reset, "third-pass")
	require.ErrorIs(t, err, domainerrors.ErrResetTokenInvalid)

	assert.True(t, svc.ValidLogin(ctx, email, "second-pass"))
	assert.False(t, svc.ValidLogin(ctx, email, "first-pass"))
}
