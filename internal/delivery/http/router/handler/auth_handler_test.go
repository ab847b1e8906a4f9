package handler_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"passport/config"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/router"
	"passport/internal/delivery/http/router/handler"
	"passport/internal/delivery/http/validator"
	"passport/internal/infra/auth"
	"passport/internal/infra/persistence/memory"
	"passport/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newTestServer wires the HTTP surface against the in-memory store, the same
// shape the fx graph produces minus the real listener.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := memory.NewUserStore()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	authUsecase := impl.NewAuthService(impl.AuthServiceParams{
		Store:  store,
		Hasher: hasher,
		Tokens: auth.NewUUIDTokenSource(),
		Logger: logger,
	})

	cfg := &config.Config{
		AccessControl: &config.AccessControlConfig{
			PublicPaths: []string{"/health", "/users", "/sessions", "/reset_password"},
		},
	}

	gate := middleware.NewAccessGate(middleware.AccessGateParams{
		Config: cfg,
		Auth:   authUsecase,
		Store:  store,
		Hasher: hasher,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(logger).HandleHTTPError

	r := router.NewRouter(router.RouterParams{
		AuthHandler: handler.NewAuthHandler(authUsecase, logger),
		AccessGate:  gate,
	})
	r.RegisterRoutes(e)

	return e
}

func postJSON(e *echo.Echo, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return doJSON(e, http.MethodPost, path, body, cookies...)
}

func doJSON(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var envelope struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	return envelope.Data
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie in response")

	return nil
}

func TestWelcome(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bienvenue", decodeData(t, rec)["message"])
}

func TestRegister(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)

	rec := postJSON(e, "/users", `{"email":"alice@example.com","password":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice@example.com", decodeData(t, rec)["email"])

	t.Run("duplicate email is rejected", func(t *testing.T) {
		rec := postJSON(e, "/users", `{"email":"alice@example.com","password":"secret"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "EMAIL_TAKEN")
	})

	t.Run("malformed email is rejected", func(t *testing.T) {
		rec := postJSON(e, "/users", `{"email":"not-an-email","password":"secret"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginAndProfile(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := postJSON(e, "/users", `{"email":"alice@example.com","password":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		rec := postJSON(e, "/sessions", `{"email":"alice@example.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown email is unauthorized", func(t *testing.T) {
		rec := postJSON(e, "/sessions", `{"email":"ghost@example.com","password":"secret"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	rec = postJSON(e, "/sessions", `{"email":"alice@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	require.NotEmpty(t, cookie.Value)

	t.Run("profile with the session cookie returns the email", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/profile", "", cookie)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice@example.com", decodeData(t, rec)["email"])
	})

	t.Run("profile without a cookie is unauthorized", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/profile", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("profile with a bogus cookie is forbidden", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/profile", "", &http.Cookie{
			Name:  middleware.SessionCookieName,
			Value: "bogus",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := postJSON(e, "/users", `{"email":"bob@example.com","password":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = postJSON(e, "/sessions", `{"email":"bob@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	t.Run("logout without a session is forbidden", func(t *testing.T) {
		rec := doJSON(e, http.MethodDelete, "/sessions", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec = doJSON(e, http.MethodDelete, "/sessions", "", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	t.Run("the destroyed session no longer opens the profile", func(t *testing.T) {
		rec := doJSON(e, http.MethodGet, "/profile", "", cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("a second logout with the stale cookie is forbidden", func(t *testing.T) {
		rec := doJSON(e, http.MethodDelete, "/sessions", "", cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestResetPasswordFlow(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := postJSON(e, "/users", `{"email":"carol@example.com","password":"oldpass"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("reset for an unknown email is forbidden", func(t *testing.T) {
		rec := postJSON(e, "/reset_password", `{"email":"ghost@example.com"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec = postJSON(e, "/reset_password", `{"email":"carol@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeData(t, rec)["reset_token"]
	require.NotEmpty(t, token)

	t.Run("update with a wrong token is forbidden", func(t *testing.T) {
		rec := doJSON(e, http.MethodPut, "/reset_password",
			`{"email":"carol@example.com","reset_token":"bogus","new_password":"newpass"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	body := `{"email":"carol@example.com","reset_token":"` + token + `","new_password":"newpass"}`
	rec = doJSON(e, http.MethodPut, "/reset_password", body)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("the token is single use", func(t *testing.T) {
		rec := doJSON(e, http.MethodPut, "/reset_password", body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("the new password logs in, the old one does not", func(t *testing.T) {
		rec := postJSON(e, "/sessions", `{"email":"carol@example.com","password":"newpass"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = postJSON(e, "/sessions", `{"email":"carol@example.com","password":"oldpass"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	e := newTestServer(t)
	rec := doJSON(e, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeData(t, rec)["status"])
}
