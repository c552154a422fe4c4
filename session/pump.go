package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/video"
)

// Track health states.
const (
	HealthOK int32 = iota
	HealthDegraded
)

const (
	// readRetryWait is how long a pump waits before retrying a failed read.
	readRetryWait = 33 * time.Millisecond

	// maxConsecutiveFailures degrades a track: the pump stops without
	// affecting the session or other tracks.
	maxConsecutiveFailures = 30
)

// FrameWriter forwards a frame to the transport. Duration is the nominal
// frame interval used for pacing on the receiving side.
type FrameWriter interface {
	WriteFrame(frame *video.Frame, duration time.Duration) error
}

// sampleWriter adapts a local WebRTC sample track to FrameWriter.
type sampleWriter struct {
	track *webrtc.TrackLocalStaticSample
}

func (w sampleWriter) WriteFrame(frame *video.Frame, duration time.Duration) error {
	return w.track.WriteSample(media.Sample{Data: frame.Data, Duration: duration})
}

// FramePump continuously reads, paces and forwards frames for one track.
// Each pump is its own goroutine so a blocked camera read never stalls
// signaling or other tracks.
type FramePump struct {
	label    string
	source   video.Source
	writer   FrameWriter
	interval time.Duration
	maxWidth int

	health atomic.Int32
	frames atomic.Uint64

	// pts is the per-track monotonic presentation clock. Only the pump
	// goroutine writes it; it advances by one nominal interval per frame
	// and never goes backwards, including across read retries.
	pts time.Duration
}

// NewFramePump builds a pump for a bound source. fps <= 0 falls back to 30.
func NewFramePump(label string, source video.Source, writer FrameWriter, fps, maxWidth int) *FramePump {
	if fps <= 0 {
		fps = 30
	}
	return &FramePump{
		label:    label,
		source:   source,
		writer:   writer,
		interval: time.Second / time.Duration(fps),
		maxWidth: maxWidth,
	}
}

// Run pumps frames until the context is cancelled or the track degrades.
// It never closes the source; the owning session releases it.
func (p *FramePump) Run(ctx context.Context) {
	failures := 0
	for ctx.Err() == nil {
		frame, err := p.source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures >= maxConsecutiveFailures {
				p.health.Store(HealthDegraded)
				tool.DefaultLogger.Warnf("Track %s degraded after %d consecutive read failures", p.label, failures)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryWait):
			}
			continue
		}
		failures = 0

		scaled, err := video.Downscale(frame, p.maxWidth)
		if err != nil {
			tool.DefaultLogger.Debugf("Track %s: downscale failed: %v", p.label, err)
			scaled = frame
		}

		p.pts += p.interval
		p.frames.Add(1)
		if err := p.writer.WriteFrame(scaled, p.interval); err != nil {
			// Write errors are transient while the transport connects.
			tool.DefaultLogger.Debugf("Track %s: frame write failed: %v", p.label, err)
		}
	}
}

// Health returns HealthOK or HealthDegraded.
func (p *FramePump) Health() int32 {
	return p.health.Load()
}

// Frames returns how many frames the pump has forwarded.
func (p *FramePump) Frames() uint64 {
	return p.frames.Load()
}

// PTS returns the current presentation clock position.
func (p *FramePump) PTS() time.Duration {
	return p.pts
}
