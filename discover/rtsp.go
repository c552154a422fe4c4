package discover

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"
)

// rtspMinFrames is the number of consecutive non-empty frames an RTSP
// candidate must deliver before it counts as a working stream.
const rtspMinFrames = 3

// rtspCheck opens a capture session against the URL and waits for enough
// non-empty frames to arrive.
func rtspCheck(ctx context.Context, rawURL string, timeout time.Duration) error {
	u, err := base.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("invalid rtsp url: %v", err)
	}

	client := &gortsplib.Client{
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	if err := client.Start(u.Scheme, u.Host); err != nil {
		return fmt.Errorf("rtsp connect: %v", err)
	}
	defer client.Close()

	desc, _, err := client.Describe(u)
	if err != nil {
		return fmt.Errorf("rtsp describe: %v", err)
	}
	if err := client.SetupAll(desc.BaseURL, desc.Medias); err != nil {
		return fmt.Errorf("rtsp setup: %v", err)
	}

	var received atomic.Int32
	enough := make(chan struct{})
	client.OnPacketRTPAny(func(medi *description.Media, forma format.Format, pkt *rtp.Packet) {
		if len(pkt.Payload) == 0 {
			return
		}
		if received.Add(1) == rtspMinFrames {
			close(enough)
		}
	})

	if _, err := client.Play(nil); err != nil {
		return fmt.Errorf("rtsp play: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-enough:
		return nil
	case <-waitCtx.Done():
		return fmt.Errorf("no frames received (%d/%d)", received.Load(), rtspMinFrames)
	}
}
