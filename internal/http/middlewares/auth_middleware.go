package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smais007/eventora/internal/domain/user"
)

// Small interfaces so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserGetter
}

func NewAuthMiddleware(jwt TokenVerifier, users UserGetter) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

const ctxProfileKey = "auth.profile"

// RequireAuth extracts the bearer token, verifies it, and resolves the
// acting user from the store. A token whose user has since been deleted is
// rejected the same way as an invalid one.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		userID, err := m.jwt.Verify(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		u, err := m.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			// covers deleted accounts and store failures alike
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		SetCurrentUser(c, u.Profile())
		c.Next()
	}
}

// SetCurrentUser stashes the acting profile on the context. Exposed so test
// routers can stage an identity without minting tokens.
func SetCurrentUser(c *gin.Context, p user.Profile) {
	c.Set(ctxProfileKey, p)
}

// CurrentUser returns the authenticated profile stashed by RequireAuth,
// so handlers never touch the raw context key.
func CurrentUser(c *gin.Context) (user.Profile, bool) {
	v, ok := c.Get(ctxProfileKey)
	if !ok {
		return user.Profile{}, false
	}

	p, ok := v.(user.Profile)
	return p, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}
