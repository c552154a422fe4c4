package discover

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blume-tech/jetson-app/types"
)

// mjpegPayload is a minimal multipart chunk; validation only requires a
// streaming content type and one non-empty body read.
const mjpegPayload = "--frame\r\nContent-Type: image/jpeg\r\n\r\nnotarealjpeg\r\n"

func serveMJPEG(t *testing.T, path string) (*httptest.Server, string, int) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Server", "testcam/1.0")
			return
		}
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Write([]byte(mjpegPayload))
	}))
	t.Cleanup(server.Close)

	host, portStr, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return server, host, port
}

func TestValidateHTTPStream(t *testing.T) {
	_, host, port := serveMJPEG(t, "/video")

	v := NewValidator([]string{"/video"}, nil, 3*time.Second)
	candidate := types.StreamCandidate{
		Endpoint: types.CandidateEndpoint{Address: host, Port: port},
		Path:     "/video",
		Scheme:   "http",
	}
	assert.NoError(t, v.Validate(context.Background(), candidate))
}

func TestValidateRejectsHTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>router admin page</html>"))
	}))
	defer server.Close()
	host, portStr, _ := net.SplitHostPort(server.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	v := NewValidator([]string{"/video"}, nil, 3*time.Second)
	candidate := types.StreamCandidate{
		Endpoint: types.CandidateEndpoint{Address: host, Port: port},
		Path:     "/video",
		Scheme:   "http",
	}
	err := v.Validate(context.Background(), candidate)
	assert.ErrorIs(t, err, types.ErrValidationFailed)
}

func TestValidateRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	}))
	defer server.Close()
	host, portStr, _ := net.SplitHostPort(server.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	v := NewValidator([]string{"/video"}, nil, 3*time.Second)
	candidate := types.StreamCandidate{
		Endpoint: types.CandidateEndpoint{Address: host, Port: port},
		Path:     "/video",
		Scheme:   "http",
	}
	err := v.Validate(context.Background(), candidate)
	assert.ErrorIs(t, err, types.ErrValidationFailed)
}

func TestValidateRTSPUsesProbe(t *testing.T) {
	v := NewValidator([]string{"/live"}, nil, time.Second)

	var probed string
	v.rtspProbe = func(ctx context.Context, url string, timeout time.Duration) error {
		probed = url
		return nil
	}
	candidate := types.StreamCandidate{
		Endpoint: types.CandidateEndpoint{Address: "192.168.1.10", Port: 554},
		Path:     "/live",
		Scheme:   "rtsp",
	}
	require.NoError(t, v.Validate(context.Background(), candidate))
	assert.Equal(t, "rtsp://192.168.1.10:554/live", probed)

	v.rtspProbe = func(ctx context.Context, url string, timeout time.Duration) error {
		return errors.New("describe failed")
	}
	assert.ErrorIs(t, v.Validate(context.Background(), candidate), types.ErrValidationFailed)
}

func TestCandidatesForOrdering(t *testing.T) {
	v := NewValidator([]string{"/video", "/mjpeg"}, []string{"admin:admin"}, time.Second)
	endpoint := types.CandidateEndpoint{Address: "192.168.1.10", Port: 80}

	candidates := v.CandidatesFor(endpoint, false)
	require.Len(t, candidates, 4)

	// Path-major order, anonymous credential before defaults.
	assert.Equal(t, "/video", candidates[0].Path)
	assert.True(t, candidates[0].Credential.IsAnonymous())
	assert.Equal(t, "/video", candidates[1].Path)
	assert.Equal(t, "admin", candidates[1].Credential.Username)
	assert.Equal(t, "/mjpeg", candidates[2].Path)
	assert.True(t, candidates[2].Credential.IsAnonymous())
}

func TestCandidatesForScheme(t *testing.T) {
	v := NewValidator([]string{"/video"}, nil, time.Second)

	assert.Equal(t, "rtsp", v.CandidatesFor(types.CandidateEndpoint{Port: 554}, true)[0].Scheme)
	assert.Equal(t, "https", v.CandidatesFor(types.CandidateEndpoint{Port: 443}, false)[0].Scheme)
	assert.Equal(t, "http", v.CandidatesFor(types.CandidateEndpoint{Port: 8080}, false)[0].Scheme)
}

func TestFirstWorkingShortCircuits(t *testing.T) {
	var gets atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.Write([]byte(mjpegPayload))
	}))
	defer server.Close()
	host, portStr, _ := net.SplitHostPort(server.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	v := NewValidator([]string{"/video", "/mjpeg", "/stream"}, nil, 3*time.Second)
	endpoint := types.CandidateEndpoint{Address: host, Port: port}

	found, ok := v.FirstWorking(context.Background(), v.CandidatesFor(endpoint, false))
	require.True(t, ok)
	assert.Equal(t, "/video", found.Path)
	assert.Equal(t, int64(1), gets.Load())
}

func TestFirstWorkingCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewValidator([]string{"/video"}, nil, time.Second)
	endpoint := types.CandidateEndpoint{Address: "127.0.0.1", Port: 1}
	_, ok := v.FirstWorking(ctx, v.CandidatesFor(endpoint, false))
	assert.False(t, ok)
}

func TestTransportFor(t *testing.T) {
	assert.Equal(t, types.TransportRTSP, TransportFor(types.StreamCandidate{Scheme: "rtsp"}))
	assert.Equal(t, types.TransportMJPEG, TransportFor(types.StreamCandidate{Scheme: "http"}))
	assert.Equal(t, types.TransportMJPEG, TransportFor(types.StreamCandidate{Scheme: "https"}))
}
