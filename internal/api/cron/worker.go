package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/responsiv/subscribe-plugin/internal/api/dto"
	"github.com/responsiv/subscribe-plugin/internal/logger"
	"github.com/responsiv/subscribe-plugin/internal/service"
)

// WorkerCronHandler handles subscription worker cron jobs
type WorkerCronHandler struct {
	worker service.Worker
	logger *logger.Logger
}

// NewWorkerCronHandler creates a new worker cron handler
func NewWorkerCronHandler(
	worker service.Worker,
	logger *logger.Logger,
) *WorkerCronHandler {
	return &WorkerCronHandler{
		worker: worker,
		logger: logger,
	}
}

// ProcessSubscriptions runs a worker sweep over the requested phases
func (h *WorkerCronHandler) ProcessSubscriptions(c *gin.Context) {
	h.logger.Infow("starting subscription worker cron job", "time", time.Now().UTC().Format(time.RFC3339))

	// Parse request body, tolerating an empty one
	var req dto.ProcessWorkerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Errorw("failed to parse request body", "error", err)
			c.Error(err)
			return
		}
	}

	message := h.worker.Process(c.Request.Context(), req.Phases...)

	h.logger.Infow("completed subscription worker cron job", "message", message)
	c.JSON(http.StatusOK, dto.ProcessWorkerResponse{Message: message})
}
