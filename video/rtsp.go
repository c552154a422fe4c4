package video

import (
	"context"
	"fmt"
	"sync"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// rtspFrameBuffer bounds how many decoded access units can pile up when the
// pump is slower than the camera.
const rtspFrameBuffer = 8

// RTSPSource reads H264 access units from an RTSP camera.
type RTSPSource struct {
	url    string
	client *gortsplib.Client

	frames chan []byte

	closeOnce sync.Once
}

// OpenRTSP connects, selects the H264 media and starts receiving.
func OpenRTSP(url string) (*RTSPSource, error) {
	u, err := base.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceOpenFailed, err)
	}

	client := &gortsplib.Client{}
	if err := client.Start(u.Scheme, u.Host); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSourceOpenFailed, err)
	}

	desc, _, err := client.Describe(u)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: describe: %v", types.ErrSourceOpenFailed, err)
	}

	var h264 *format.H264
	medi := desc.FindFormat(&h264)
	if medi == nil {
		client.Close()
		return nil, fmt.Errorf("%w: no H264 media in %s", types.ErrSourceOpenFailed, url)
	}

	decoder, err := h264.CreateDecoder()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrSourceOpenFailed, err)
	}

	if _, err := client.Setup(desc.BaseURL, medi, 0, 0); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: setup: %v", types.ErrSourceOpenFailed, err)
	}

	source := &RTSPSource{
		url:    url,
		client: client,
		frames: make(chan []byte, rtspFrameBuffer),
	}

	client.OnPacketRTP(medi, h264, func(pkt *rtp.Packet) {
		au, err := decoder.Decode(pkt)
		if err != nil {
			// Incomplete access units are part of normal RTP reassembly.
			return
		}
		data := joinAccessUnit(au)
		if len(data) == 0 {
			return
		}
		select {
		case source.frames <- data:
		default:
			tool.DefaultLogger.Debugf("Dropping frame from %s: pump too slow", url)
		}
	})

	if _, err := client.Play(nil); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: play: %v", types.ErrSourceOpenFailed, err)
	}
	return source, nil
}

// ReadFrame returns the next complete access unit.
func (s *RTSPSource) ReadFrame(ctx context.Context) (*Frame, error) {
	select {
	case data, ok := <-s.frames:
		if !ok {
			return nil, fmt.Errorf("%w: source closed", types.ErrSourceRead)
		}
		return &Frame{Data: data}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", types.ErrSourceRead, ctx.Err())
	}
}

// Close tears down the RTSP session exactly once.
func (s *RTSPSource) Close() error {
	s.closeOnce.Do(func() {
		s.client.Close()
	})
	return nil
}

// joinAccessUnit flattens the NAL units of one access unit into a single
// Annex-B payload.
func joinAccessUnit(au [][]byte) []byte {
	size := 0
	for _, nalu := range au {
		size += len(nalu) + 4
	}
	data := make([]byte, 0, size)
	for _, nalu := range au {
		data = append(data, 0x00, 0x00, 0x00, 0x01)
		data = append(data, nalu...)
	}
	return data
}
