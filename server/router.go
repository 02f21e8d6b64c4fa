package server

import (
	"time"

	"vocab-bot/infrastructure/observability"
	httpHandler "vocab-bot/interfaces/http"
	"vocab-bot/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	linkHandler httpHandler.ILinkHandler,
	poolHandler httpHandler.IPoolHandler,
	healthHandler httpHandler.IHealthHandler,
	secretKey string,
	allowOrigins []string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if len(allowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	api := router.Group("api")
	api.Use(middleware.Auth(secretKey))

	links := api.Group("/links")
	{
		links.GET("", linkHandler.GetLink)
		links.POST("/resolve", linkHandler.ResolveLink)
		links.POST("/enqueue", linkHandler.EnqueueLink)
	}

	api.GET("/pools", poolHandler.Status)

	return router
}
