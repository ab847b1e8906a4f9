// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"

	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface. It holds no state of its
// own across calls; the injected store is the single source of truth.
type authService struct {
	store  repository.UserStore
	hasher service.PasswordHasher
	tokens service.TokenSource
	logger *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Store  repository.UserStore
	Hasher service.PasswordHasher
	Tokens service.TokenSource
	Logger *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		store:  params.Store,
		hasher: params.Hasher,
		tokens: params.Tokens,
		logger: params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// RegisterUser creates a new account after checking the email is free.
// The existence check runs before hashing so duplicate requests don't burn
// bcrypt work.
func (srv *authService) RegisterUser(ctx context.Context, input usecase.RegisterInput) (*entity.User, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	_, err := srv.store.FindByEmail(ctx, input.Email)
	if err == nil {
		srv.log(ctx).Warn("Registration rejected, email taken", slog.String("email", input.Email))

		return nil, domainerrors.ErrEmailTaken.WrapMessage("registration failed")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to check email existence")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage("registration failed")
	}

	user, err := srv.store.Add(ctx, input.Email, hashedPassword)
	if err != nil {
		// The store's unique constraint closes the race between the existence
		// check and the insert.
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, domainerrors.ErrEmailTaken.WrapMessage("registration failed")
		}

		return nil, errors.Wrap(err, "failed to add user during registration")
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", user.ID))

	return user, nil
}

// ValidLogin reports whether the credentials match a registered user.
// Every failure mode reads as false so callers can't distinguish a wrong
// password from an unknown email.
func (srv *authService) ValidLogin(ctx context.Context, email, password string) bool {
	user, err := srv.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Error("Login lookup failed", slog.String("email", email), slog.Any("error", err))
		}

		return false
	}

	return srv.hasher.Verify(password, user.HashedPassword)
}

// CreateSession issues a new session token and persists it on the user,
// overwriting any previous token. A user has a single active session.
func (srv *authService) CreateSession(ctx context.Context, email string) (*string, error) {
	user, err := srv.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to find user for session")
	}

	token := srv.tokens.NewToken()
	if err := srv.store.Update(ctx, user.ID, repository.UserPatch{
		SetSessionToken: true,
		SessionToken:    &token,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to persist session token")
	}

	srv.log(ctx).Debug("Session created", slog.Any("userID", user.ID))

	return &token, nil
}

// GetUserBySession resolves a session token to its user. Nil tokens and
// unmatched tokens resolve to nil without error.
func (srv *authService) GetUserBySession(ctx context.Context, sessionToken *string) (*entity.User, error) {
	if sessionToken == nil {
		return nil, nil
	}

	user, err := srv.store.FindBySessionToken(ctx, *sessionToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to find user by session token")
	}

	return user, nil
}

// DestroySession clears the user's session token. Idempotent: clearing a
// session for an id the store doesn't know is swallowed.
func (srv *authService) DestroySession(ctx context.Context, userID uuid.UUID) error {
	err := srv.store.Update(ctx, userID, repository.UserPatch{SetSessionToken: true})
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return errors.Wrap(err, "failed to clear session token")
	}

	srv.log(ctx).Debug("Session destroyed", slog.Any("userID", userID))

	return nil
}

// RequestPasswordReset issues a reset token, overwriting any outstanding one.
func (srv *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := srv.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Password reset requested for unknown email", slog.String("email", email))

			return "", domainerrors.ErrUnknownEmail.WrapMessage("password reset request failed")
		}

		return "", errors.Wrap(err, "failed to find user for password reset")
	}

	token := srv.tokens.NewToken()
	if err := srv.store.Update(ctx, user.ID, repository.UserPatch{
		SetResetToken: true,
		ResetToken:    &token,
	}); err != nil {
		return "", errors.Wrap(err, "failed to persist reset token")
	}

	srv.log(ctx).Info("Password reset token issued", slog.Any("userID", user.ID))

	return token, nil
}

// UpdatePassword consumes a reset token. The new hash and the token clear go
// through a single patch, so the token is strictly single-use: a second
// attempt no longer finds it.
func (srv *authService) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	user, err := srv.store.FindByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Password update with unmatched reset token")

			return domainerrors.ErrResetTokenInvalid.WrapMessage("password update failed")
		}

		return errors.Wrap(err, "failed to find user by reset token")
	}

	hashedPassword, err := srv.hasher.Hash(newPassword)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during reset", slog.Any("error", err))

		return domainerrors.ErrPasswordHashFailed.WrapMessage("password update failed")
	}

	if err := srv.store.Update(ctx, user.ID, repository.UserPatch{
		SetHashedPassword: true,
		HashedPassword:    hashedPassword,
		SetResetToken:     true,
	}); err != nil {
		return errors.Wrap(err, "failed to persist new password")
	}

	srv.log(ctx).Info("Password updated", slog.Any("userID", user.ID))

	return nil
}
