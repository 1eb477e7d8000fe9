package router

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"launchpad/internal/handler/api"
	"launchpad/internal/lease"
	"launchpad/internal/middleware"
	"launchpad/internal/tasks"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB             *gorm.DB
	Repos          *tasks.Repos
	Service        *tasks.Service
	Locker         lease.Locker
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, d Deps) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger(d.Logger))

	// Handlers
	postHandler := api.NewPostHandler(d.Repos, d.Service, d.Logger)
	interactionHandler := api.NewInteractionHandler(d.Repos, d.Service, d.Logger)
	campaignHandler := api.NewCampaignHandler(d.Repos, d.Service, d.Logger)
	agentHandler := api.NewAgentHandler(d.Repos, d.Logger)

	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.Idempotency(d.Locker, d.IdempotencyTTL, d.Logger))

	apiGroup.POST("/posts", postHandler.Create)
	apiGroup.GET("/posts", postHandler.List)
	apiGroup.POST("/posts/bulk", postHandler.Bulk)
	apiGroup.GET("/posts/:id", postHandler.Get)
	apiGroup.POST("/posts/:id/publish", postHandler.Publish)

	apiGroup.POST("/interactions", interactionHandler.Create)
	apiGroup.POST("/interactions/batch", interactionHandler.Batch)
	apiGroup.GET("/interactions/:id", interactionHandler.Get)

	apiGroup.POST("/campaigns", campaignHandler.Create)
	apiGroup.POST("/campaigns/:id/generate", campaignHandler.Generate)

	apiGroup.GET("/agents", agentHandler.List)
	apiGroup.POST("/agents/guidance", interactionHandler.Guidance)
	apiGroup.POST("/agents/moderation", interactionHandler.Moderate)
	apiGroup.POST("/agents/questions", interactionHandler.Answer)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := d.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
