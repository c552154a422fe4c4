package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blume-tech/jetson-app/api/models"
)

// SessionCounter reports how many viewer sessions are currently active.
type SessionCounter interface {
	ActiveSessions() int
}

type StatusController struct {
	cameras  CameraLister
	metrics  MetricsProvider
	sessions SessionCounter
	apiPort  int
}

func NewStatusController(cameras CameraLister, metrics MetricsProvider, sessions SessionCounter, apiPort int) *StatusController {
	return &StatusController{cameras: cameras, metrics: metrics, sessions: sessions, apiPort: apiPort}
}

// HandleStatus returns the overall service status.
func (ctrl *StatusController) HandleStatus(c *gin.Context) {
	cameras := ctrl.cameras.Snapshot()
	urls := make([]string, 0, len(cameras))
	for _, camera := range cameras {
		urls = append(urls, camera.URL)
	}

	lastUpdate := "N/A"
	if snapshot, ok := ctrl.metrics.Latest(); ok {
		lastUpdate = snapshot.Timestamp.Format(time.RFC3339)
	}

	active := 0
	if ctrl.sessions != nil {
		active = ctrl.sessions.ActiveSessions()
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		ServiceStatus:       "running",
		DataPointsCollected: ctrl.metrics.DataPoints(),
		LastUpdate:          lastUpdate,
		APIPort:             ctrl.apiPort,
		CamerasDiscovered:   len(cameras),
		CameraURLs:          urls,
		ActiveSessions:      active,
		Features: map[string]bool{
			"system_monitoring":   true,
			"webrtc_streaming":    true,
			"csv_export":          true,
			"ip_camera_discovery": true,
		},
	})
}
