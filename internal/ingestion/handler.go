package ingestion

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Triggerer queues an ingestion run.
type Triggerer interface {
	Trigger() bool
}

// StatusProvider reports the state of the ingester.
type StatusProvider interface {
	Status() Status
}

// Handler exposes the run trigger and run status over HTTP.
type Handler struct {
	trigger Triggerer
	status  StatusProvider
}

func NewHandler(trigger Triggerer, status StatusProvider) *Handler {
	if trigger == nil {
		panic("ingestion: trigger must not be nil")
	}
	if status == nil {
		panic("ingestion: status provider must not be nil")
	}
	return &Handler{trigger: trigger, status: status}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/ingest/run", h.RunHandler)
	r.GET("/v1/ingest/status", h.StatusHandler)
}

// RunHandler queues a run and returns immediately.
func (h *Handler) RunHandler(c *gin.Context) {
	if !h.trigger.Trigger() {
		c.JSON(http.StatusAccepted, gin.H{"status": "already_queued"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Status())
}
