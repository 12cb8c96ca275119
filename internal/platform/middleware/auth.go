package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentx-marketplace/service-rental/internal/platform/auth"
	"github.com/rentx-marketplace/service-rental/internal/platform/response"
)

const principalKey = "principal"

// AccessTokenCookie is the cookie the web client sends the access token in.
const AccessTokenCookie = "accessToken"

// AuthMiddleware authenticates the request from a Bearer header or the
// accessToken cookie and stores the principal on the gin context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "authentication token is required")
			return
		}

		principal, err := jwtManager.ValidateToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(principalKey, *principal)
		c.Next()
	}
}

// RequireRole rejects principals whose role is not in the allowed set.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
	}
}

// GetPrincipal returns the authenticated principal for the request.
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// GetUserID returns the authenticated user's ID.
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	p, ok := GetPrincipal(c)
	if !ok {
		return uuid.Nil, false
	}
	return p.UserID, true
}

// SetPrincipal stores a principal on the context. Used by tests and internal callers.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}
