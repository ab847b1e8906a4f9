// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	deliverycontext "passport/internal/delivery/context"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// RegisterRequest is the payload for POST /users.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// LoginRequest is the payload for POST /sessions.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ResetRequest is the payload for POST /reset_password.
type ResetRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// UpdatePasswordRequest is the payload for PUT /reset_password.
type UpdatePasswordRequest struct {
	Email       string `json:"email" form:"email" validate:"required,email"`
	ResetToken  string `json:"reset_token" form:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" form:"new_password" validate:"required"`
}

// AuthHandler holds dependencies for the authentication handlers.
type AuthHandler struct {
	auth   usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(auth usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

// Welcome handles GET /.
func (h *AuthHandler) Welcome(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"message": "Bienvenue"}, "Welcome")
}

// Register handles the user registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}
	if err := c.Validate(&req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	user, err := h.auth.RegisterUser(c.Request().Context(), usecase.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, map[string]string{
		"email":   user.Email,
		"message": "user created",
	}, "User registered successfully")
}

// Login handles the session creation request. On success a session cookie is
// set and the email echoed back.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}
	if err := c.Validate(&req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	ctx := c.Request().Context()
	if !h.auth.ValidLogin(ctx, req.Email, req.Password) {
		return domainerrors.ErrInvalidCredentials
	}

	token, err := h.auth.CreateSession(ctx, req.Email)
	if err != nil {
		return errors.WithStack(err)
	}
	if token == nil {
		// The user vanished between the credential check and the session
		// write. Indistinguishable from bad credentials on purpose.
		return domainerrors.ErrInvalidCredentials
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    *token,
		Path:     "/",
		HttpOnly: true,
	})

	return response.Success(c, http.StatusOK, map[string]string{
		"email":   req.Email,
		"message": "logged in",
	}, "Login successful")
}

// Logout handles the session destruction request. A request without a live
// session is rejected; success clears the cookie and redirects home.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.auth.GetUserBySession(ctx, sessionTokenFromCookie(c))
	if err != nil {
		return errors.WithStack(err)
	}
	if user == nil {
		return domainerrors.ErrSessionInvalid
	}

	if err := h.auth.DestroySession(ctx, user.ID); err != nil {
		return errors.WithStack(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})

	return c.Redirect(http.StatusFound, "/")
}

// Profile returns the authenticated user's email. The access gate resolves
// the user; a cookie-only fallback covers direct calls outside the gate.
func (h *AuthHandler) Profile(c echo.Context) error {
	user := deliverycontext.GetCurrentUser(c)
	if user == nil {
		resolved, err := h.auth.GetUserBySession(c.Request().Context(), sessionTokenFromCookie(c))
		if err != nil {
			return errors.WithStack(err)
		}
		user = resolved
	}
	if user == nil {
		return domainerrors.ErrSessionInvalid
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"email": user.Email,
	}, "Profile retrieved successfully")
}

// RequestReset handles the reset-token issuance request.
func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset request input")
	}
	if err := c.Validate(&req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	token, err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"email":       req.Email,
		"reset_token": token,
	}, "Reset token issued")
}

// UpdatePassword handles the password update request consuming a reset token.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password update input")
	}
	if err := c.Validate(&req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails(err.Error())
	}

	if err := h.auth.UpdatePassword(c.Request().Context(), req.ResetToken, req.NewPassword); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{
		"email":   req.Email,
		"message": "Password updated",
	}, "Password updated successfully")
}

// HealthCheck is a simple handler to check if the service is up.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
}

// sessionTokenFromCookie returns the session cookie value, or nil when the
// cookie is absent or empty.
func sessionTokenFromCookie(c echo.Context) *string {
	cookie, err := c.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	return &cookie.Value
}
