package auth

import (
	"github.com/google/uuid"

	"passport/internal/domain/service"
)

// uuidTokenSource issues opaque tokens backed by version 4 UUIDs, which come
// from crypto/rand and carry 122 bits of entropy.
type uuidTokenSource struct{}

// NewUUIDTokenSource is the constructor for uuidTokenSource.
func NewUUIDTokenSource() service.TokenSource {
	return &uuidTokenSource{}
}

// NewToken returns a fresh random identifier in canonical UUID form.
func (s *uuidTokenSource) NewToken() string {
	return uuid.NewString()
}
