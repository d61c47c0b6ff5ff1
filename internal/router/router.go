package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/pratyushn/auction-house/internal/handler"    // import the handlers that implement business logic
	"github.com/pratyushn/auction-house/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/pratyushn/auction-house/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems poll this to verify the
	// service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register,
	// login, and the two refresh variants.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: the handler accepts a
	// refresh_token in the body or a bearer token in the header.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleBidder))
	auth.GET("/me", a.Me)

	// Also reachable outside the protected group so clients with only a
	// refresh token can end their session.
	e.POST("/v1/logout", a.Logout)
}

// RegisterAuction registers the catalog, bidding and settlement routes.
// Browsing is public (the catalog list goes through the response cache
// when one is configured); everything that moves money requires a
// valid access token, and item creation plus refund processing are
// admin only.
func RegisterAuction(e *echo.Echo, items *handler.ItemHandler, bids *handler.BidHandler,
	settle *handler.SettlementHandler, jwtSecret string, cache echo.MiddlewareFunc) {

	// Public catalog browsing.
	if cache != nil {
		e.GET("/v1/items", items.List, cache)
	} else {
		e.GET("/v1/items", items.List)
	}
	e.GET("/v1/items/:id", items.Get)

	// Everything below needs an authenticated user.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleBidder))

	// Participation: deposit-backed bidding tokens.
	auth.POST("/items/:id/token", bids.RequestToken)
	auth.POST("/tokens/confirm", bids.ConfirmDeposit)
	auth.POST("/items/:id/token/validate", bids.ValidateToken)

	// Bidding.
	auth.POST("/items/:id/bids", bids.PlaceBid)

	// Winner checkout: staged settlement and the receipt slip.
	auth.GET("/items/:id/checkout", settle.Checkout)
	auth.POST("/items/:id/settlement", settle.Initiate)
	auth.POST("/items/:id/settlement/confirm", settle.ConfirmStep)
	auth.POST("/items/:id/slip", settle.GenerateSlip)

	// Admin surface: catalog management and the refund fan-out.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/items", items.Create)
	admin.POST("/refunds", settle.Refund)
}
