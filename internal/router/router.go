package router

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// check backs the health probe and may be nil.
func RegisterRoutes(e *echo.Echo, check func(ctx context.Context) error) {
	e.GET("/healthz", handler.Health(check))
}

// RegisterAuth registers the session endpoints.  Register, login, refresh
// and logout live under /v1/auth without a JWT; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout authenticates itself from either the bearer or the posted
	// refresh token.
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the catalog and pricing endpoints guests can
// use before signing in.  cache wraps the catalog reads only; availability
// and quotes are always computed fresh.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/rooms", h.ListRooms, cache)
	e.GET("/v1/rooms/:id", h.GetRoom, cache)
	e.GET("/v1/services", h.ListServices, cache)

	e.GET("/v1/rooms/:id/availability", h.Availability)
	e.POST("/v1/quotes", b.Quote)
}
