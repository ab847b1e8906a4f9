// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new user.
type RegisterInput struct {
	Email    string
	Password string
}

// AuthUsecase defines the interface for the credential and session core.
// This is the contract that the delivery layer (e.g., API handlers) depends on.
//
// Lookup misses during login and session validation are absorbed into
// false/nil results rather than errors, so an authentication failure is
// indistinguishable from "no such user" at this boundary. Reset-flow misses
// are deliberately surfaced as typed errors instead (the reset endpoint
// reveals email existence through its response anyway).
type AuthUsecase interface {
	// RegisterUser creates a new account. Registering an email that already
	// exists fails with domainerrors.ErrEmailTaken.
	RegisterUser(ctx context.Context, input RegisterInput) (*entity.User, error)

	// ValidLogin reports whether the email/password pair is correct. Unknown
	// emails, wrong passwords and store failures all read as false; it never
	// returns an error.
	ValidLogin(ctx context.Context, email, password string) bool

	// CreateSession issues a fresh session token for the user with the given
	// email, replacing any previous session. Unknown email yields (nil, nil).
	CreateSession(ctx context.Context, email string) (*string, error)

	// GetUserBySession resolves a session token to its user. A nil token
	// resolves to nil without touching the store; an unmatched token resolves
	// to nil as well. This is the sole session-validation entry point.
	GetUserBySession(ctx context.Context, sessionToken *string) (*entity.User, error)

	// DestroySession clears the user's session token. Destroying a session
	// for an unknown user id is not an error.
	DestroySession(ctx context.Context, userID uuid.UUID) error

	// RequestPasswordReset issues a reset token for the given email,
	// replacing any outstanding one. Unknown email fails with
	// domainerrors.ErrUnknownEmail.
	RequestPasswordReset(ctx context.Context, email string) (string, error)

	// UpdatePassword consumes a reset token: it re-hashes the password and
	// clears the token in one atomic update, making the token single-use.
	// An unmatched (or already consumed) token fails with
	// domainerrors.ErrResetTokenInvalid.
	UpdatePassword(ctx context.Context, resetToken, newPassword string) error
}
