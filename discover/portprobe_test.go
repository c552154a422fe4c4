package discover

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blume-tech/jetson-app/types"
)

func TestProbeFindsOpenPort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "Hikvision-Webs")
	}))
	defer server.Close()
	host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, _ := strconv.Atoi(portStr)

	p := NewPortProbe([]int{port}, nil, time.Second, 4, 0)
	endpoints := p.Probe(context.Background(), types.Host{Address: host, Reachable: true})

	require.Len(t, endpoints, 1)
	assert.Equal(t, port, endpoints[0].Port)
	assert.Equal(t, "Hikvision-Webs", endpoints[0].Banner)
}

func TestProbeClosedPort(t *testing.T) {
	// Grab a free port and close it again so nothing is listening there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	p := NewPortProbe([]int{port}, nil, 500*time.Millisecond, 4, 0)
	endpoints := p.Probe(context.Background(), types.Host{Address: "127.0.0.1", Reachable: true})
	assert.Empty(t, endpoints)
}

// RTSP-like ports are plain TCP services, so no HTTP banner request is made
// against them.
func TestProbeSkipsBannerOnRTSPPorts(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port := listener.Addr().(*net.TCPAddr).Port

	p := NewPortProbe([]int{port}, []int{port}, time.Second, 4, 0)
	endpoints := p.Probe(context.Background(), types.Host{Address: "127.0.0.1", Reachable: true})

	require.Len(t, endpoints, 1)
	assert.Empty(t, endpoints[0].Banner)
	assert.True(t, p.IsRTSPPort(port))
}

func TestProbePreservesPortOrder(t *testing.T) {
	var servers []*httptest.Server
	var ports []int
	for i := 0; i < 3; i++ {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		servers = append(servers, server)
		_, portStr, _ := net.SplitHostPort(server.Listener.Addr().String())
		port, _ := strconv.Atoi(portStr)
		ports = append(ports, port)
	}
	defer func() {
		for _, server := range servers {
			server.Close()
		}
	}()

	p := NewPortProbe(ports, nil, time.Second, 2, 0)
	endpoints := p.Probe(context.Background(), types.Host{Address: "127.0.0.1", Reachable: true})

	require.Len(t, endpoints, 3)
	for i, endpoint := range endpoints {
		assert.Equal(t, ports[i], endpoint.Port)
	}
}
