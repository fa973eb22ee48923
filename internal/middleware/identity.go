package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the JWT stored in context for
// cache and rate-limit key building. Unauthenticated catalog browsing
// shares a single "guest" bucket.
func userID(c echo.Context) string {
	u := c.Get("user")
	if u == nil {
		return "guest"
	}
	if tok, ok := u.(*jwt.Token); ok {
		if cl, ok := tok.Claims.(jwt.MapClaims); ok {
			if v, ok := cl["sub"].(string); ok && v != "" {
				return v
			}
			if v, ok := cl["user_id"].(string); ok && v != "" {
				return v
			}
		}
	}
	return "guest"
}
