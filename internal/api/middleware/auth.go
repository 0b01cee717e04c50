package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kythia/questapi/internal/core/auth"
)

const (
	ContextAdminSubject = "admin_subject"
	ContextAuthMethod   = "auth_method"
)

const (
	AuthMethodBearer = "bearer"
	AuthMethodAPIKey = "apikey"
)

type AuthMiddleware struct {
	authService *auth.Service
}

func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAdmin accepts "Bearer <admin jwt>" or "ApiKey <key>".
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		switch strings.ToLower(parts[0]) {
		case AuthMethodBearer:
			m.handleJWT(c, strings.TrimSpace(parts[1]))
		case AuthMethodAPIKey:
			m.handleAPIKey(c, parts[1])
		default:
			abortUnauthorized(c, "unsupported authorization type")
			return
		}
	}
}

func (m *AuthMiddleware) handleJWT(c *gin.Context, token string) {
	claims, err := m.authService.ValidateToken(token)
	if err != nil {
		abortUnauthorized(c, "invalid token")
		return
	}

	c.Set(ContextAdminSubject, claims.Subject)
	c.Set(ContextAuthMethod, AuthMethodBearer)
	c.Next()
}

func (m *AuthMiddleware) handleAPIKey(c *gin.Context, key string) {
	if err := m.authService.ValidateAPIKey(key); err != nil {
		abortUnauthorized(c, "invalid api key")
		return
	}

	c.Set(ContextAdminSubject, "api-key")
	c.Set(ContextAuthMethod, AuthMethodAPIKey)
	c.Next()
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "status": http.StatusUnauthorized})
}

// GetAdminSubject returns the subject set by RequireAdmin.
func GetAdminSubject(c *gin.Context) (string, bool) {
	val, exists := c.Get(ContextAdminSubject)
	if !exists {
		return "", false
	}
	subject, ok := val.(string)
	return subject, ok
}

func GetAuthMethod(c *gin.Context) string {
	val, exists := c.Get(ContextAuthMethod)
	if !exists {
		return ""
	}
	if method, ok := val.(string); ok {
		return method
	}
	return ""
}
