package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blume-tech/jetson-app/types"
	"github.com/blume-tech/jetson-app/video"
)

// fakeSource emits a tiny opaque frame per read. failFirst reads fail before
// the source recovers; failAlways never recovers.
type fakeSource struct {
	mu         sync.Mutex
	failFirst  int
	failAlways bool
	reads      int
	closes     atomic.Int32
}

func (s *fakeSource) ReadFrame(ctx context.Context) (*video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.reads++
	fail := s.failAlways || s.reads <= s.failFirst
	s.mu.Unlock()
	if fail {
		return nil, types.ErrSourceRead
	}
	time.Sleep(time.Millisecond)
	return &video.Frame{Data: []byte{0xff, 0xd8, 0xff}, Width: 320, Height: 240}, nil
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

// countWriter records every forwarded frame and its pacing duration.
type countWriter struct {
	mu        sync.Mutex
	frames    int
	durations []time.Duration
	err       error
}

func (w *countWriter) WriteFrame(frame *video.Frame, duration time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames++
	w.durations = append(w.durations, duration)
	return w.err
}

func (w *countWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

func TestPumpForwardsFrames(t *testing.T) {
	source := &fakeSource{}
	writer := &countWriter{}
	pump := NewFramePump("test", source, writer, 30, 640)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	pump.Run(ctx)

	assert.Equal(t, HealthOK, pump.Health())
	require.Greater(t, pump.Frames(), uint64(0))
	assert.Equal(t, int(pump.Frames()), writer.count())
}

// The presentation clock advances by exactly one nominal interval per
// forwarded frame and never regresses, including across read retries.
func TestPumpMonotonicPTS(t *testing.T) {
	source := &fakeSource{failFirst: 3}
	writer := &countWriter{}
	pump := NewFramePump("test", source, writer, 30, 640)

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	pump.Run(ctx)

	interval := time.Second / 30
	require.Greater(t, pump.Frames(), uint64(0))
	assert.Equal(t, interval*time.Duration(pump.Frames()), pump.PTS())

	writer.mu.Lock()
	defer writer.mu.Unlock()
	for _, d := range writer.durations {
		assert.Equal(t, interval, d)
	}
}

func TestPumpDegradesAfterConsecutiveFailures(t *testing.T) {
	source := &fakeSource{failAlways: true}
	pump := NewFramePump("test", source, &countWriter{}, 30, 640)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	started := time.Now()
	pump.Run(ctx)

	require.NoError(t, ctx.Err(), "pump should degrade on its own, not run into the deadline")
	assert.Equal(t, HealthDegraded, pump.Health())
	assert.Equal(t, uint64(0), pump.Frames())
	// 30 retries spaced 33ms apart.
	assert.Greater(t, time.Since(started), 500*time.Millisecond)
}

func TestPumpRecoversAfterTransientFailures(t *testing.T) {
	source := &fakeSource{failFirst: 5}
	pump := NewFramePump("test", source, &countWriter{}, 30, 640)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pump.Run(ctx)

	assert.Equal(t, HealthOK, pump.Health())
	assert.Greater(t, pump.Frames(), uint64(0))
}

// One degraded track must not slow or stop a healthy one.
func TestPumpDegradationIsIsolated(t *testing.T) {
	healthy := NewFramePump("healthy", &fakeSource{}, &countWriter{}, 30, 640)
	broken := NewFramePump("broken", &fakeSource{failAlways: true}, &countWriter{}, 30, 640)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); healthy.Run(ctx) }()
	go func() { defer wg.Done(); broken.Run(ctx) }()
	wg.Wait()

	assert.Equal(t, HealthDegraded, broken.Health())
	assert.Equal(t, HealthOK, healthy.Health())
	assert.Greater(t, healthy.Frames(), uint64(0))
}

// Transport write errors are transient while the connection establishes and
// must not degrade the track.
func TestPumpIgnoresWriteErrors(t *testing.T) {
	writer := &countWriter{err: types.ErrSourceRead}
	pump := NewFramePump("test", &fakeSource{}, writer, 30, 640)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pump.Run(ctx)

	assert.Equal(t, HealthOK, pump.Health())
	assert.Greater(t, pump.Frames(), uint64(0))
}
