package api

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/blume-tech/jetson-app/registry"
	"github.com/blume-tech/jetson-app/session"
	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Viewers connect from arbitrary LAN origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sessionHub runs one negotiator per websocket viewer and tracks how many
// are active.
type sessionHub struct {
	cfg      session.Config
	registry *registry.Registry
	active   atomic.Int64
}

func newSessionHub(cfg session.Config, reg *registry.Registry) *sessionHub {
	return &sessionHub{cfg: cfg, registry: reg}
}

// ActiveSessions implements controllers.SessionCounter.
func (h *sessionHub) ActiveSessions() int {
	return int(h.active.Load())
}

// HandleSignaling upgrades the connection and drives a full session on it.
func (h *sessionHub) HandleSignaling(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		tool.DefaultLogger.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	negotiator := session.NewNegotiator(h.cfg, h.registry)
	tool.DefaultLogger.Infof("Viewer connected, session %s", negotiator.ID())

	h.active.Add(1)
	defer h.active.Add(-1)

	if err := negotiator.Run(c.Request.Context(), newWSChannel(conn)); err != nil {
		tool.DefaultLogger.Warnf("Session %s ended: %v", negotiator.ID(), err)
		return
	}
	tool.DefaultLogger.Infof("Session %s closed (%s)", negotiator.ID(), negotiator.State())
}

// wsChannel adapts a websocket connection to the session signaling channel.
type wsChannel struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{conn: conn}
}

func (ch *wsChannel) Read() (*types.SignalMessage, error) {
	_, data, err := ch.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return session.DecodeMessage(data)
}

func (ch *wsChannel) Write(msg *types.SignalMessage) error {
	data, err := session.EncodeMessage(msg)
	if err != nil {
		return err
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

func (ch *wsChannel) Close() error {
	ch.closeOnce.Do(func() {
		ch.conn.Close()
	})
	return nil
}
