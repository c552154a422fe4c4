// Package api exposes the HTTP surface of the camera node: discovery and
// telemetry endpoints plus the websocket signaling endpoint viewers use to
// open streaming sessions.
package api

import (
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blume-tech/jetson-app/api/controllers"
	"github.com/blume-tech/jetson-app/api/models"
	"github.com/blume-tech/jetson-app/registry"
	"github.com/blume-tech/jetson-app/session"
	"github.com/blume-tech/jetson-app/tool"
)

// Server is the HTTP API server.
type Server struct {
	port     int
	protocol string
	engine   *gin.Engine
	sessions *sessionHub
}

// Deps wires the server to the rest of the node.
type Deps struct {
	Registry   *registry.Registry
	Scanner    controllers.ScanTrigger
	Metrics    controllers.MetricsProvider
	SessionCfg session.Config
}

// NewServer builds the server and registers all routes.
func NewServer(port int, protocol string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	hub := newSessionHub(deps.SessionCfg, deps.Registry)

	cameraCtrl := controllers.NewCameraController(deps.Registry, deps.Scanner)
	metricsCtrl := controllers.NewMetricsController(deps.Metrics)
	logsCtrl := controllers.NewLogsController(deps.Metrics)
	statusCtrl := controllers.NewStatusController(deps.Registry, deps.Metrics, hub, port)

	engine.GET("/", handleInfo(port))
	engine.GET("/cameras", cameraCtrl.HandleList)
	engine.POST("/cameras/rescan", cameraCtrl.HandleRescan)
	engine.GET("/metrics", metricsCtrl.HandleMetrics)
	engine.GET("/status", statusCtrl.HandleStatus)
	engine.GET("/download_logs", logsCtrl.HandleDownload)
	engine.GET("/ws", hub.HandleSignaling)

	return &Server{
		port:     port,
		protocol: protocol,
		engine:   engine,
		sessions: hub,
	}
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails. In https mode a self-signed
// certificate is generated on the fly, the way small LAN devices do.
func (s *Server) Start() error {
	address := fmt.Sprintf(":%d", s.port)
	tool.DefaultLogger.Infof("Starting API server on %s://0.0.0.0%s", s.protocol, address)

	if s.protocol == "https" {
		certBytes, keyBytes, err := tool.GenerateTLSCert()
		if err != nil {
			return fmt.Errorf("failed to generate TLS certificate: %v", err)
		}
		certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certBytes})
		keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificate: %v", err)
		}
		server := &http.Server{
			Addr:      address,
			Handler:   s.engine,
			TLSConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
		}
		return server.ListenAndServeTLS("", "")
	}
	return http.ListenAndServe(address, s.engine)
}

func handleInfo(port int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.InfoResponse{
			Name:        "Jetson IP Camera Server",
			Version:     "1.0.0",
			Description: "LAN camera discovery and WebRTC streaming node",
			Endpoints: map[string]string{
				"cameras":       "/cameras - GET - discovered cameras",
				"rescan":        "/cameras/rescan - POST - trigger a rescan",
				"metrics":       "/metrics - GET - latest system metrics",
				"status":        "/status - GET - service status",
				"download_logs": "/download_logs - GET - telemetry history CSV",
				"signaling":     fmt.Sprintf("ws://<host>:%d/ws - WebRTC signaling", port),
			},
		})
	}
}
