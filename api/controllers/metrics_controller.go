package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blume-tech/jetson-app/types"
)

// MetricsProvider exposes telemetry collected by the monitor.
type MetricsProvider interface {
	Latest() (types.MetricsSnapshot, bool)
	History() []map[string]string
	DataPoints() int
}

type MetricsController struct {
	metrics MetricsProvider
}

func NewMetricsController(metrics MetricsProvider) *MetricsController {
	return &MetricsController{metrics: metrics}
}

// HandleMetrics returns the latest metrics snapshot.
func (ctrl *MetricsController) HandleMetrics(c *gin.Context) {
	snapshot, ok := ctrl.metrics.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no metrics available"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
