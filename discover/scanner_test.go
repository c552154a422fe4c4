package discover

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blume-tech/jetson-app/registry"
	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

func scanTestConfig(port int) tool.AppConfig {
	cfg := tool.DefaultConfig()
	cfg.CameraPorts = []int{port}
	cfg.RTSPPorts = nil
	cfg.CameraPaths = []string{"/video"}
	cfg.Credentials = nil
	cfg.HostWorkers = 4
	cfg.PortTimeout = 500 * time.Millisecond
	cfg.ProbeTimeout = 2 * time.Second
	return cfg
}

// One host serves a multipart stream, the other has nothing listening. The
// sweep and revalidation passes must agree on exactly one camera.
func TestSweepAndRevalidate(t *testing.T) {
	_, host, port := serveMJPEG(t, "/video")

	s := NewScanner(scanTestConfig(port), registry.New())
	hosts := []types.Host{
		{Address: host, Reachable: true},
		{Address: "127.0.0.2", Reachable: true},
	}

	provisional := s.sweep(context.Background(), hosts)
	require.Len(t, provisional, 1)
	assert.Equal(t, host, provisional[0].Endpoint.Address)
	assert.Equal(t, "/video", provisional[0].Path)

	confirmed := s.revalidate(context.Background(), provisional)
	require.Len(t, confirmed, 1)
	assert.Equal(t, provisional[0], confirmed[0])
}

// A server that answers a streaming response exactly once passes the sweep
// but fails revalidation, so it never reaches the registry.
func TestRevalidateSuppressesOneTimeStream(t *testing.T) {
	var gets atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		if gets.Add(1) > 1 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Write([]byte(mjpegPayload))
	}))
	defer server.Close()
	host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, _ := strconv.Atoi(portStr)

	s := NewScanner(scanTestConfig(port), registry.New())
	hosts := []types.Host{{Address: host, Reachable: true}}

	provisional := s.sweep(context.Background(), hosts)
	require.Len(t, provisional, 1)

	confirmed := s.revalidate(context.Background(), provisional)
	assert.Empty(t, confirmed)
}

func TestSweepCancelled(t *testing.T) {
	_, host, port := serveMJPEG(t, "/video")

	s := NewScanner(scanTestConfig(port), registry.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, s.sweep(ctx, []types.Host{{Address: host, Reachable: true}}))
}

func TestScanGuard(t *testing.T) {
	s := NewScanner(scanTestConfig(1), registry.New())
	require.True(t, s.begin(nil))
	assert.False(t, s.begin(nil))
	s.end()
	assert.True(t, s.begin(nil))
	s.end()
}

// A manual rescan that loses the race against an already running scan must
// not leave behind a cancel handle for the cycle that never ran; Abort
// would otherwise cancel nothing relevant.
func TestScanNowSkipsRunningScan(t *testing.T) {
	s := NewScanner(scanTestConfig(1), registry.New())
	require.True(t, s.begin(nil))

	s.ScanNow()

	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	assert.Nil(t, cancel)
	s.Abort()
	s.end()
}
