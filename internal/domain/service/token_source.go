package service

// TokenSource issues opaque bearer credentials for sessions and password
// resets. Tokens must come from a cryptographically strong random source with
// 128-bit-class entropy; no two tokens may collide with non-negligible
// probability over the process lifetime.
type TokenSource interface {
	// NewToken returns a fresh unguessable identifier.
	NewToken() string
}
