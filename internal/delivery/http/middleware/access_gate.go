package middleware

import (
	"context"
	"encoding/base64"
	"strings"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SessionCookieName is the cookie the login handler sets and the gate reads.
const SessionCookieName = "session_id"

// basicScheme is the only Authorization scheme the gate resolves users from.
const basicScheme = "Basic"

// RequiresAuth reports whether a request path needs a validated session.
// A path is exempt when it exactly matches an excluded pattern, when either
// the path or the pattern is a prefix of the other, or when a pattern ending
// in "*" matches the path as a prefix up to the star. The prefix test runs in
// both directions on purpose: it tolerates trailing-slash and path-parameter
// variants without full route-pattern matching.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return false
	}

	for _, pattern := range excluded {
		if strings.HasPrefix(pattern, path) || strings.HasPrefix(path, pattern) {
			return false
		}
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(path, pattern[:len(pattern)-1]) {
			return false
		}
	}

	return true
}

// ExtractBearerCredentials splits an Authorization header into its scheme and
// payload tokens. Headers that are empty or not exactly two tokens are not ok.
func ExtractBearerCredentials(header string) (scheme, payload string, ok bool) {
	if header == "" {
		return "", "", false
	}

	scheme, payload, found := strings.Cut(header, " ")
	if !found || scheme == "" || payload == "" || strings.Contains(payload, " ") {
		return "", "", false
	}

	return scheme, payload, true
}

// AccessGate decides per request whether authentication is required and
// resolves the current user from a session cookie or Basic credentials.
type AccessGate struct {
	auth        usecase.AuthUsecase
	store       repository.UserStore
	hasher      service.PasswordHasher
	publicPaths []string
}

// AccessGateParams holds dependencies for the AccessGate, injected by Fx.
type AccessGateParams struct {
	fx.In

	Config *config.Config
	Auth   usecase.AuthUsecase
	Store  repository.UserStore
	Hasher service.PasswordHasher
}

// NewAccessGate is the constructor for AccessGate.
func NewAccessGate(params AccessGateParams) *AccessGate {
	var publicPaths []string
	if params.Config.AccessControl != nil {
		publicPaths = params.Config.AccessControl.PublicPaths
	}

	return &AccessGate{
		auth:        params.Auth,
		store:       params.Store,
		hasher:      params.Hasher,
		publicPaths: publicPaths,
	}
}

// ResolveCurrentUser resolves a user from a Basic Authorization header:
// scheme check, base64 decode, split on the first colon, email lookup,
// password verification. Any failure along the way resolves to nil.
func (g *AccessGate) ResolveCurrentUser(ctx context.Context, authorizationHeader string) *entity.User {
	scheme, payload, ok := ExtractBearerCredentials(authorizationHeader)
	if !ok || scheme != basicScheme {
		return nil
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}

	email, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil
	}

	user, err := g.store.FindByEmail(ctx, email)
	if err != nil {
		return nil
	}

	if !g.hasher.Verify(password, user.HashedPassword) {
		return nil
	}

	return user
}

// Gate is the echo middleware enforcing the path rules. Requests without any
// credentials on a gated path get 401; requests whose credentials resolve to
// no user get 403. The resolved user is stored on the echo context for
// handlers.
func (g *AccessGate) Gate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !RequiresAuth(c.Request().URL.Path, g.publicPaths) {
			return next(c)
		}

		ctx := c.Request().Context()
		hasCredentials := false

		if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
			hasCredentials = true

			user, err := g.auth.GetUserBySession(ctx, &cookie.Value)
			if err != nil {
				return err
			}
			if user != nil {
				deliverycontext.SetCurrentUser(c, user)

				return next(c)
			}
		}

		if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
			hasCredentials = true

			if user := g.ResolveCurrentUser(ctx, header); user != nil {
				deliverycontext.SetCurrentUser(c, user)

				return next(c)
			}
		}

		if !hasCredentials {
			return domainerrors.ErrAuthRequired
		}

		return domainerrors.ErrSessionInvalid
	}
}
