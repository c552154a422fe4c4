// Package video provides the camera source implementations a streaming
// session binds its tracks to: MJPEG over HTTP multipart and RTSP via an
// RTSP client, behind one Source interface.
package video

import (
	"context"
	"fmt"

	"github.com/blume-tech/jetson-app/types"
)

// Frame is one unit of video handed to a frame pump. Data holds the encoded
// payload: a JPEG image for MJPEG sources, an H264 access unit for RTSP
// sources. Width/Height are zero when the source cannot tell cheaply.
type Frame struct {
	Data   []byte
	Width  int
	Height int
}

// Source is a video source bound into a session track.
// ReadFrame blocks until a frame is available, the context is cancelled, or
// the source fails. Close releases the underlying stream and is safe to call
// once per source.
type Source interface {
	ReadFrame(ctx context.Context) (*Frame, error)
	Close() error
}

// Open opens a source for a validated camera. Open failures surface as
// ErrSourceOpenFailed so the session can omit the track and move on.
func Open(camera types.ValidatedCamera) (Source, error) {
	switch camera.Transport {
	case types.TransportMJPEG:
		return OpenMJPEG(camera.URL)
	case types.TransportRTSP:
		return OpenRTSP(camera.URL)
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", types.ErrSourceOpenFailed, camera.Transport)
	}
}
