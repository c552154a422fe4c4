package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blume-tech/jetson-app/api/models"
	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// CameraLister exposes the current registry snapshot.
type CameraLister interface {
	Snapshot() []types.ValidatedCamera
}

// ScanTrigger starts an asynchronous discovery cycle.
type ScanTrigger interface {
	ScanNow()
}

type CameraController struct {
	cameras CameraLister
	scanner ScanTrigger
}

func NewCameraController(cameras CameraLister, scanner ScanTrigger) *CameraController {
	return &CameraController{cameras: cameras, scanner: scanner}
}

// HandleList returns the discovered cameras.
func (ctrl *CameraController) HandleList(c *gin.Context) {
	cameras := ctrl.cameras.Snapshot()
	c.JSON(http.StatusOK, models.CameraListResponse{
		CamerasFound: len(cameras),
		Cameras:      cameras,
	})
}

// HandleRescan triggers a background rescan and returns immediately.
func (ctrl *CameraController) HandleRescan(c *gin.Context) {
	tool.DefaultLogger.Info("Rescan requested via API")
	ctrl.scanner.ScanNow()
	c.JSON(http.StatusAccepted, models.RescanResponse{Message: "scan started in background"})
}
