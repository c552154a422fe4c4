package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	_ "image/jpeg" // frame dimension probing

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// MJPEGSource reads JPEG frames from an HTTP multipart/x-mixed-replace
// stream, the format served by most consumer IP cameras.
type MJPEGSource struct {
	url    string
	resp   *http.Response
	reader *multipart.Reader

	closeOnce sync.Once
}

// OpenMJPEG connects to the camera and prepares the multipart reader.
func OpenMJPEG(url string) (*MJPEGSource, error) {
	client := tool.NewProbeHTTPClient()
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceOpenFailed, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %s", types.ErrSourceOpenFailed, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: not a multipart stream (%q)", types.ErrSourceOpenFailed, resp.Header.Get("Content-Type"))
	}
	boundary := params["boundary"]
	if boundary == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: missing multipart boundary", types.ErrSourceOpenFailed)
	}

	return &MJPEGSource{
		url:    url,
		resp:   resp,
		reader: multipart.NewReader(resp.Body, boundary),
	}, nil
}

// ReadFrame returns the next JPEG part of the stream. The multipart read
// itself is not interruptible, so cancellation is checked at part
// boundaries; Close unblocks a stuck read by tearing down the body.
func (s *MJPEGSource) ReadFrame(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceRead, err)
	}

	part, err := s.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceRead, err)
	}
	data, err := io.ReadAll(part)
	part.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceRead, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", types.ErrSourceRead)
	}

	frame := &Frame{Data: data}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		frame.Width = cfg.Width
		frame.Height = cfg.Height
	}
	return frame, nil
}

// Close releases the HTTP stream exactly once.
func (s *MJPEGSource) Close() error {
	s.closeOnce.Do(func() {
		s.resp.Body.Close()
	})
	return nil
}
