package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/kythia/questapi/internal/api/handlers"
	"github.com/kythia/questapi/internal/api/middleware"
	"github.com/kythia/questapi/internal/core/auth"
)

type Router struct {
	engine         *gin.Engine
	logger         *slog.Logger
	authMiddleware *middleware.AuthMiddleware
	authHandler    *handlers.AuthHandler
	questHandler   *handlers.QuestHandler
}

func NewRouter(
	authService *auth.Service,
	authHandler *handlers.AuthHandler,
	questHandler *handlers.QuestHandler,
	logger *slog.Logger,
) *Router {
	return &Router{
		logger:         logger,
		authMiddleware: middleware.NewAuthMiddleware(authService),
		authHandler:    authHandler,
		questHandler:   questHandler,
	}
}

func (r *Router) Setup(mode string) *gin.Engine {
	gin.SetMode(mode)
	r.engine = gin.New()
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestContext())
	r.engine.Use(middleware.RequestLogger(r.logger))
	r.engine.Use(middleware.ErrorHandler(r.logger))

	r.setupRoutes()
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", handlers.Health)

	v1 := r.engine.Group("/v1")
	{
		v1.GET("/quests", r.questHandler.List)
		v1.GET("/quests/:id", r.questHandler.Get)
	}

	// Admin routes
	admin := v1.Group("")
	admin.Use(r.authMiddleware.RequireAdmin())
	{
		admin.POST("/quests/sync", r.questHandler.Sync)
		admin.POST("/admin/token", r.authHandler.IssueToken)
		admin.GET("/admin/me", r.authHandler.Me)
	}

	r.engine.NoRoute(middleware.NotFound())
}
