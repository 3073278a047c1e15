package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muxfetch/muxfetch/internal/apiroutes"
	"github.com/muxfetch/muxfetch/internal/jobs"
	"github.com/muxfetch/muxfetch/internal/system"
)

// StatusHandler serves the service status payload on the root route.
type StatusHandler struct {
	version string
	manager *jobs.Manager
	monitor *system.Monitor
	started time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(version string, manager *jobs.Manager, monitor *system.Monitor) *StatusHandler {
	return &StatusHandler{
		version: version,
		manager: manager,
		monitor: monitor,
		started: time.Now(),
	}
}

// Status reports service identity, uptime, job counts, host metrics, and the
// registered endpoints.
func (h *StatusHandler) Status(c *gin.Context) {
	active, total := h.manager.Counts()
	uptime := time.Since(h.started)

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"service":        "muxfetch",
		"version":        h.version,
		"uptime":         uptime.Truncate(time.Second).String(),
		"uptime_seconds": int64(uptime.Seconds()),
		"jobs": gin.H{
			"active": active,
			"total":  total,
		},
		"system":    h.monitor.Stats(),
		"endpoints": apiroutes.Get(),
	})
}
