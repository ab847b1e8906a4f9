// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler *handler.AuthHandler
	AccessGate  *middleware.AccessGate
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler *handler.AuthHandler
	accessGate  *middleware.AccessGate
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler: params.AuthHandler,
		accessGate:  params.AccessGate,
	}
}

// RegisterRoutes sets up all the API routes for the application.
// The access gate runs on every route; its excluded-path patterns decide
// which of them actually require a session.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.Use(r.accessGate.Gate)

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	e.GET("/", r.authHandler.Welcome)
	e.POST("/users", r.authHandler.Register)

	e.POST("/sessions", r.authHandler.Login)
	e.DELETE("/sessions", r.authHandler.Logout)

	e.GET("/profile", r.authHandler.Profile)

	e.POST("/reset_password", r.authHandler.RequestReset)
	e.PUT("/reset_password", r.authHandler.UpdatePassword)
}
