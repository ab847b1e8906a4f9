// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by every finder when no record matches.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned by Add when the email is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrEmptyPatch is returned by Update when the patch sets nothing.
// Unknown attributes are unrepresentable: UserPatch enumerates every
// updatable field, so the only invalid patch left is the empty one.
var ErrEmptyPatch = errors.New("patch updates no fields")

// UserPatch is the closed set of fields Update may change.
// Each Set* flag marks its field as part of the patch; a flagged nil pointer
// clears the column to NULL, which is distinct from leaving it untouched.
type UserPatch struct {
	SetSessionToken bool
	SessionToken    *string

	SetResetToken bool
	ResetToken    *string

	SetHashedPassword bool
	HashedPassword    string
}

// Empty reports whether the patch would change nothing.
func (p UserPatch) Empty() bool {
	return !p.SetSessionToken && !p.SetResetToken && !p.SetHashedPassword
}

// UserStore defines the standard operations for user persistence.
// The application layer depends on this interface, never on a concrete store.
//
// Lookups are per-field rather than a single find-by(field, value) call so
// the set of queryable columns is closed at compile time.
type UserStore interface {
	// FindByID retrieves a single user by their store-assigned ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindBySessionToken retrieves the user holding the given session token.
	FindBySessionToken(ctx context.Context, token string) (*entity.User, error)

	// FindByResetToken retrieves the user holding the given reset token.
	FindByResetToken(ctx context.Context, token string) (*entity.User, error)

	// Add persists a new user with the given email and password hash and
	// returns the stored record with its assigned ID.
	Add(ctx context.Context, email, hashedPassword string) (*entity.User, error)

	// Update applies the patch to the user with the given ID. The whole patch
	// is applied atomically with respect to concurrent updates of the same
	// record. Returns ErrUserNotFound when the ID is absent and ErrEmptyPatch
	// when the patch sets nothing.
	Update(ctx context.Context, id uuid.UUID, patch UserPatch) error
}
