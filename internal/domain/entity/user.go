// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the single aggregate of the credential store.
// SessionToken and ResetToken are opaque bearer credentials: nil until issued,
// at most one active value of each per user, and never interpreted beyond
// equality lookups.
type User struct {
	ID             uuid.UUID // Store-assigned unique identifier.
	Email          string    // Login identifier, unique across the store.
	HashedPassword string    // Salted bcrypt hash, opaque to everything but the hasher.
	SessionToken   *string   // Active session credential, nil when logged out.
	ResetToken     *string   // Pending password-reset credential, nil when none is outstanding.
	CreatedAt      time.Time // Timestamp of registration.
	UpdatedAt      time.Time // Timestamp of the last credential change.
}

// HasSession reports whether the user currently holds an active session.
func (u *User) HasSession() bool {
	return u != nil && u.SessionToken != nil
}
