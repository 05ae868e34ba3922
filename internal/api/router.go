package api

import (
	"github.com/gin-gonic/gin"

	"github.com/responsiv/subscribe-plugin/internal/api/cron"
	"github.com/responsiv/subscribe-plugin/internal/logger"
	"github.com/responsiv/subscribe-plugin/internal/rest/middleware"
)

// NewRouter assembles the cron trigger surface.
func NewRouter(workerHandler *cron.WorkerCronHandler, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(log))

	jobs := router.Group("/cron")
	jobs.POST("/subscriptions/process", workerHandler.ProcessSubscriptions)

	return router
}
