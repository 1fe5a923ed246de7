package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/resalebot/internal/bot"
	"github.com/polkiloo/resalebot/internal/config"
	"github.com/polkiloo/resalebot/internal/server/http/handlers"
	"github.com/polkiloo/resalebot/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.ResaleFacade, actions *bot.Router, cfg *config.Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade)
	sellerHandler := handlers.NewSellerHandler(facade)
	webhookHandler := handlers.NewWebhookHandler(actions, logger)

	engine.POST("/telegram-webhook", webhookHandler.Receive)

	api := engine.Group("/api")
	api.POST("/orders", orderHandler.Submit)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)
	api.POST("/orders/:id/resubmit", orderHandler.Resubmit)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(cfg.AdminToken))
	admin.GET("/sellers", sellerHandler.List)
	admin.POST("/sellers", sellerHandler.Add)
	admin.PATCH("/sellers/:id", sellerHandler.SetActive)

	return engine
}
