package models

import "github.com/blume-tech/jetson-app/types"

// CameraListResponse is the body of GET /cameras.
type CameraListResponse struct {
	CamerasFound int                     `json:"cameras_found"`
	Cameras      []types.ValidatedCamera `json:"cameras"`
}

// RescanResponse is the body of POST /cameras/rescan.
type RescanResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	ServiceStatus       string          `json:"service_status"`
	DataPointsCollected int             `json:"data_points_collected"`
	LastUpdate          string          `json:"last_update"`
	APIPort             int             `json:"api_port"`
	CamerasDiscovered   int             `json:"cameras_discovered"`
	CameraURLs          []string        `json:"camera_urls"`
	ActiveSessions      int             `json:"active_sessions"`
	Features            map[string]bool `json:"features"`
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}
