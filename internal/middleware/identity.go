package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a userID extraction function that reads the
// identity JWTAuth stored in the Echo context. When no user is
// authenticated, "guest" is returned so anonymous traffic shares one
// rate limit and cache bucket.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the context. It returns
// "guest" when no user is authenticated.
func userID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "guest"
	}
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		// JWT numeric claims decode as float64.
		return fmt.Sprintf("%.0f", id)
	}
	return "guest"
}
