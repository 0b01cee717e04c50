package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kythia/questapi/config"
	"github.com/kythia/questapi/internal/api/handlers"
	"github.com/kythia/questapi/internal/core/auth"
	"github.com/kythia/questapi/internal/core/catalog"
	"github.com/kythia/questapi/internal/core/quest"
	"github.com/kythia/questapi/internal/core/quest/questtest"
	"github.com/kythia/questapi/internal/core/validation"
)

type staticProvider struct {
	body  string
	calls int
}

func (p *staticProvider) FetchQuests(context.Context) ([]byte, error) {
	p.calls++
	return []byte(p.body), nil
}

func providerCatalog(id string) string {
	now := time.Now().UTC()
	return fmt.Sprintf(`{"quests": [{
		"id": %q,
		"config": {
			"id": %q,
			"config_version": 2,
			"starts_at": %q,
			"expires_at": %q,
			"application": {"id": "1", "name": "Game", "link": "https://example.com"},
			"messages": {"quest_name": "Quest", "game_title": "Game", "game_publisher": "Pub"},
			"rewards_config": {"assignment_method": 1, "rewards": [], "platforms": []},
			"share_policy": "shareable_everywhere"
		},
		"preview": false
	}]}`, id, id, quest.FormatTimestamp(now.Add(-time.Hour)), quest.FormatTimestamp(now.Add(24*time.Hour)))
}

func newTestEngine(t *testing.T) (*gin.Engine, *staticProvider) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := questtest.NewStore()
	provider := &staticProvider{body: providerCatalog("1001")}
	validator, err := validation.NewValidator()
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)
	authService := auth.NewService(
		&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1},
		&config.AdminConfig{APIKeyHash: string(hash)},
	)

	syncer := catalog.NewSyncer(store, provider, validator, logger, 30)
	gate := catalog.NewGate(store, syncer, 30*60*1000, logger)

	router := NewRouter(
		authService,
		handlers.NewAuthHandler(authService),
		handlers.NewQuestHandler(gate, quest.NewService(store)),
		logger,
	)
	return router.Setup(gin.TestMode), provider
}

func do(engine http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{"subject":"ops"}`)
	}
	req := httptest.NewRequest(method, path, body)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter_QuestFlow(t *testing.T) {
	engine, provider := newTestEngine(t)

	w := do(engine, http.MethodGet, "/v1/quests", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"1001"`)
	assert.Equal(t, 1, provider.calls)

	// Second read is served from the fresh cache row.
	w = do(engine, http.MethodGet, "/v1/quests", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, provider.calls)

	w = do(engine, http.MethodGet, "/v1/quests/1001", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"join_operator":"or"`)

	w = do(engine, http.MethodGet, "/v1/quests/404404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminSync(t *testing.T) {
	engine, provider := newTestEngine(t)

	w := do(engine, http.MethodPost, "/v1/quests/sync", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, provider.calls)

	w = do(engine, http.MethodPost, "/v1/quests/sync", "ApiKey admin-key")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"new_count":1`)

	w = do(engine, http.MethodPost, "/v1/admin/token", "ApiKey admin-key")
	require.Equal(t, http.StatusCreated, w.Code)
	token := strings.Split(strings.Split(w.Body.String(), `"token":"`)[1], `"`)[0]

	w = do(engine, http.MethodPost, "/v1/quests/sync", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"new_count":0`)
	assert.Equal(t, 2, provider.calls)
}

func TestRouter_HealthAndFallback(t *testing.T) {
	engine, _ := newTestEngine(t)

	w := do(engine, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(engine, http.MethodGet, "/api/quests", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Not Found","message":"The requested endpoint does not exist","status":404}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
