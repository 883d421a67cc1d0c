package router

import (
	"github.com/gin-gonic/gin"

	"github.com/grindery-io/wallet-api/internal/http/handler"
	"github.com/grindery-io/wallet-api/internal/http/middleware"
)

type RouterConfig struct {
	APIKey      string
	TraceHeader string
}

func SetupRoutes(router *gin.Engine, webhook *handler.WebhookHandler, events *handler.EventHandler, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1", middleware.Auth(cfg.APIKey))
	{
		v1.POST("/webhook", webhook.Receive)
		v1.GET("/events/:id", events.Get)
	}
}
