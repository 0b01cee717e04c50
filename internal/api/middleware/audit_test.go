package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kythia/questapi/internal/errors"
)

func TestRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(RequestContext())
	r.GET("/ctx", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": GetRequestID(c),
			"ip":         GetIPAddress(c),
			"ua":         GetUserAgent(c),
		})
	})

	t.Run("generates id and takes first forwarded ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		req.Header.Set("User-Agent", "probe/1.0")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ip":"203.0.113.7"`)
		assert.Contains(t, w.Body.String(), `"ua":"probe/1.0"`)
		assert.Len(t, w.Header().Get(HeaderRequestID), 36)
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
		assert.Contains(t, w.Body.String(), `"request_id":"abc-123"`)
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestContext(), RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	out := buf.String()
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"path":"/ok"`)
	assert.Contains(t, out, `"status":204`)
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(ErrorHandler(logger))
	r.GET("/provider", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrProviderFetch("unexpected provider status", errors.New("discord api returned 401: nope")))
	})
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrQuestNotFound("42"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusTeapot, gin.H{"ok": true})
		_ = c.Error(errors.New("ignored"))
	})
	r.NoRoute(NotFound())

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/provider", http.StatusBadGateway, `{"error":"unexpected provider status: discord api returned 401: nope","status":502}`},
		{"/missing", http.StatusNotFound, `{"error":"quest not found: 42","status":404}`},
		{"/plain", http.StatusInternalServerError, `{"error":"boom","status":500}`},
		{"/written", http.StatusTeapot, `{"ok":true}`},
		{"/nowhere", http.StatusNotFound, `{"error":"Not Found","message":"The requested endpoint does not exist","status":404}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}

	assert.Contains(t, buf.String(), `"code":"PROVIDER_FETCH_FAILED"`)
}
