package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kythia/questapi/config"
	"github.com/kythia/questapi/internal/api/middleware"
	"github.com/kythia/questapi/internal/core/auth"
)

func createAdminTestContext(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/admin/token", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextAdminSubject, "api-key")
	c.Set(middleware.ContextAuthMethod, middleware.AuthMethodAPIKey)
	return c, w
}

func TestAuthHandler_IssueToken(t *testing.T) {
	svc := auth.NewService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 2}, nil)
	h := NewAuthHandler(svc)

	c, w := createAdminTestContext(`{"subject":"deploy-bot"}`)
	h.IssueToken(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token":`)

	c, w = createAdminTestContext(`{}`)
	h.IssueToken(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_IssueTokenWithoutSecret(t *testing.T) {
	h := NewAuthHandler(auth.NewService(&config.JWTConfig{}, nil))

	c, w := createAdminTestContext(`{"subject":"deploy-bot"}`)
	h.IssueToken(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(auth.NewService(&config.JWTConfig{Secret: "s"}, nil))

	c, w := createAdminTestContext("")
	h.Me(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"api-key","auth_method":"apikey"}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/admin/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
