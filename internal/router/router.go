package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/mastercook/workshop-booking/internal/handler"
	"github.com/mastercook/workshop-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body or a bearer access token;
	// it does not require the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "CUSTOMER"))
	auth.GET("/me", a.Me)

	// Same handler reachable without the /auth prefix.
	e.POST("/v1/logout", a.Logout)
}

// RegisterCatalog registers the workshop catalog.  Reads are public and
// may carry the response-cache middleware; writes require the ADMIN role.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string, cache ...echo.MiddlewareFunc) {
	e.GET("/v1/workshops", h.ListWorkshops, cache...)
	e.GET("/v1/workshops/:id", h.GetWorkshop, cache...)
	e.GET("/v1/categories", h.ListCategories, cache...)
	e.GET("/v1/categories/:id", h.GetCategory, cache...)
	e.GET("/v1/instructors", h.ListInstructors, cache...)
	e.GET("/v1/instructors/:id", h.GetInstructor, cache...)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.POST("/workshops", h.CreateWorkshop)
	admin.PUT("/workshops/:id", h.UpdateWorkshop)
	admin.DELETE("/workshops/:id", h.DeleteWorkshop)
}

// RegisterReservations registers the booking endpoints.  All routes
// require a valid JWT; the per-workshop listing additionally requires
// the ADMIN role.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "ADMIN"),
	)
	g.POST("/reservations", h.Create)
	g.GET("/reservations", h.ListMine)
	g.GET("/reservations/:id", h.Get)
	g.PUT("/reservations/:id", h.SetStatus)
	g.PUT("/reservations/:id/cancel", h.Cancel)

	admin := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	admin.GET("/workshops/:id/reservations", h.ListByWorkshop)
}

// RegisterPayments registers the payment endpoints under /v1.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, jwtSecret string) {
	g := e.Group(
		"/v1/payments",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "ADMIN"),
	)
	g.GET("/reservation/:id", h.GetByReservation)
	g.GET("/user", h.ListForUser)
	g.POST("", h.Pay)
	g.POST("/simulate", h.Simulate)
	g.POST("/verify-card", h.VerifyCard)
}
