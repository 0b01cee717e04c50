package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kythia/questapi/config"
	"github.com/kythia/questapi/internal/core/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Helper to create test context
func createTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.Service) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := auth.NewService(
		&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1},
		&config.AdminConfig{APIKeyHash: string(hash)},
	)

	r := gin.New()
	r.POST("/admin", NewAuthMiddleware(svc).RequireAdmin(), func(c *gin.Context) {
		subject, _ := GetAdminSubject(c)
		c.JSON(http.StatusOK, gin.H{"subject": subject, "method": GetAuthMethod(c)})
	})
	return r, svc
}

func TestRequireAdmin(t *testing.T) {
	r, svc := newAuthRouter(t)
	token, err := svc.IssueToken("ops")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"bearer token", "Bearer " + token.Token, http.StatusOK, `{"subject":"ops","method":"bearer"}`},
		{"lowercase scheme", "bearer " + token.Token, http.StatusOK, `{"subject":"ops","method":"bearer"}`},
		{"api key", "ApiKey admin-key", http.StatusOK, `{"subject":"api-key","method":"apikey"}`},
		{"missing header", "", http.StatusUnauthorized, `{"error":"missing authorization header","status":401}`},
		{"no credential", "Bearer", http.StatusUnauthorized, `{"error":"invalid authorization header","status":401}`},
		{"bad token", "Bearer nope", http.StatusUnauthorized, `{"error":"invalid token","status":401}`},
		{"bad api key", "ApiKey wrong", http.StatusUnauthorized, `{"error":"invalid api key","status":401}`},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, `{"error":"unsupported authorization type","status":401}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestGetAdminSubject_NotSet(t *testing.T) {
	c, _ := createTestContext()

	_, ok := GetAdminSubject(c)
	assert.False(t, ok)
	assert.Equal(t, "", GetAuthMethod(c))
}

func TestGetAdminSubject_InvalidType(t *testing.T) {
	c, _ := createTestContext()
	c.Set(ContextAdminSubject, 42)

	_, ok := GetAdminSubject(c)
	assert.False(t, ok)
}
