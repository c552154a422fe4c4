// Package session implements the per-viewer streaming session engine: the
// offer/answer state machine over WebRTC, ICE relay on a side channel, and
// one frame pump per attached track.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/blume-tech/jetson-app/registry"
	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
	"github.com/blume-tech/jetson-app/video"
)

// outboundBuffer bounds pending outbound signaling messages (mostly ICE
// candidates gathered before the writer drains them).
const outboundBuffer = 16

// jpegPayloadType is the static RTP payload type for RTP/JPEG (RFC 2435),
// used for MJPEG-backed tracks.
const jpegPayloadType = 26

// Config carries the session tunables shared by all viewers.
type Config struct {
	MaxTracks   int
	TargetWidth int
	NominalFPS  int

	// OpenSource binds a camera to a video source; defaults to video.Open.
	OpenSource func(types.ValidatedCamera) (video.Source, error)
}

func (c Config) withDefaults() Config {
	if c.MaxTracks <= 0 {
		c.MaxTracks = 2
	}
	if c.NominalFPS <= 0 {
		c.NominalFPS = 30
	}
	if c.OpenSource == nil {
		c.OpenSource = func(camera types.ValidatedCamera) (video.Source, error) {
			return video.Open(camera)
		}
	}
	return c
}

// Track is one camera bound into the session.
type Track struct {
	Camera types.ValidatedCamera
	source video.Source
	local  *webrtc.TrackLocalStaticSample
	pump   *FramePump
}

// Health returns the pump health for the track.
func (t *Track) Health() int32 {
	return t.pump.Health()
}

// Negotiator runs one viewer session over a signaling channel.
type Negotiator struct {
	id       string
	cfg      Config
	registry *registry.Registry

	mu     sync.Mutex
	state  State
	tracks []*Track

	outbound chan *types.SignalMessage
	pc       *webrtc.PeerConnection
}

// NewNegotiator builds a session fed by the current registry snapshot.
func NewNegotiator(cfg Config, reg *registry.Registry) *Negotiator {
	return &Negotiator{
		id:       tool.GenerateRandomUUID(),
		cfg:      cfg.withDefaults(),
		registry: reg,
		state:    StateNew,
		outbound: make(chan *types.SignalMessage, outboundBuffer),
	}
}

// ID returns the session identifier.
func (n *Negotiator) ID() string { return n.id }

// State returns the current lifecycle state.
func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Tracks returns the attached tracks.
func (n *Negotiator) Tracks() []*Track {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tracks
}

// transition moves to next unless the session is already terminal.
func (n *Negotiator) transition(next State) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state.Terminal() {
		return false
	}
	tool.DefaultLogger.Debugf("Session %s: %s -> %s", n.id, n.state, next)
	n.state = next
	return true
}

// Run drives the session until the viewer says bye, the channel closes, or
// a protocol error occurs. It always releases every source exactly once
// before returning.
func (n *Negotiator) Run(ctx context.Context, channel SignalingChannel) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var pumps sync.WaitGroup
	defer func() {
		cancel()
		// Sources are closed before waiting on the pumps: a pump stuck in
		// a camera read on a silent connection only unblocks when its
		// source is torn down.
		n.releaseTracks()
		pumps.Wait()
		if n.pc != nil {
			n.pc.Close()
		}
		channel.Close()
	}()

	if err := n.attachTracks(); err != nil {
		n.transition(StateClosed)
		return err
	}
	if err := n.setupTransport(); err != nil {
		n.transition(StateFailed)
		return err
	}

	// Drain outbound signaling (offer + gathered ICE candidates) into the
	// channel without blocking the control loop.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-n.outbound:
				if err := channel.Write(msg); err != nil {
					tool.DefaultLogger.Debugf("Session %s: outbound write failed: %v", n.id, err)
					return
				}
			}
		}
	}()

	if err := n.sendOffer(); err != nil {
		n.transition(StateFailed)
		return err
	}

	n.startPumps(ctx, &pumps)

	for {
		msg, err := channel.Read()
		if err != nil {
			// A malformed message is a protocol error; anything else is
			// the caller closing the channel, which is orderly shutdown.
			if errors.Is(err, types.ErrSignalingProtocol) {
				n.transition(StateFailed)
				return err
			}
			if !errors.Is(err, io.EOF) {
				tool.DefaultLogger.Debugf("Session %s: channel read ended: %v", n.id, err)
			}
			n.transition(StateClosed)
			return nil
		}
		done, err := n.handleMessage(msg)
		if err != nil {
			n.transition(StateFailed)
			return err
		}
		if done {
			n.transition(StateClosed)
			return nil
		}
	}
}

// attachTracks selects cameras from the registry snapshot and binds a source
// and a local track for each. Open failures omit the track; no track at all
// ends the session.
func (n *Negotiator) attachTracks() error {
	cameras := n.registry.Snapshot()
	if len(cameras) > n.cfg.MaxTracks {
		cameras = cameras[:n.cfg.MaxTracks]
	}

	var tracks []*Track
	for _, camera := range cameras {
		source, err := n.cfg.OpenSource(camera)
		if err != nil {
			tool.DefaultLogger.Warnf("Session %s: skipping %s: %v", n.id, camera.URL, err)
			continue
		}
		local, err := webrtc.NewTrackLocalStaticSample(
			codecFor(camera.Transport),
			fmt.Sprintf("video-%d", len(tracks)),
			n.id,
		)
		if err != nil {
			source.Close()
			tool.DefaultLogger.Warnf("Session %s: track for %s failed: %v", n.id, camera.URL, err)
			continue
		}
		track := &Track{Camera: camera, source: source, local: local}
		track.pump = NewFramePump(
			camera.URL,
			source,
			sampleWriter{track: local},
			n.cfg.NominalFPS,
			n.cfg.TargetWidth,
		)
		tracks = append(tracks, track)
	}
	if len(tracks) == 0 {
		return types.ErrNoSourcesAvailable
	}

	n.mu.Lock()
	n.tracks = tracks
	n.mu.Unlock()
	return nil
}

// setupTransport builds the peer connection, adds every track and wires ICE
// candidates into the outbound message queue.
func (n *Negotiator) setupTransport() error {
	engine := &webrtc.MediaEngine{}
	if err := engine.RegisterDefaultCodecs(); err != nil {
		return fmt.Errorf("failed to register codecs: %w", err)
	}
	// RTP/JPEG for MJPEG-backed tracks; not part of the default codec set.
	if err := engine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  "video/JPEG",
			ClockRate: 90000,
		},
		PayloadType: jpegPayloadType,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return fmt.Errorf("failed to register JPEG codec: %w", err)
	}

	api := webrtc.NewAPI(webrtc.WithMediaEngine(engine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	n.pc = pc

	for _, track := range n.tracks {
		if _, err := pc.AddTrack(track.local); err != nil {
			return fmt.Errorf("failed to add track: %w", err)
		}
	}

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		msg, err := iceMessage(candidate)
		if err != nil {
			tool.DefaultLogger.Debugf("Session %s: ice encode failed: %v", n.id, err)
			return
		}
		select {
		case n.outbound <- msg:
		default:
			tool.DefaultLogger.Debugf("Session %s: outbound queue full, dropping candidate", n.id)
		}
	})
	return nil
}

// sendOffer emits the local offer and advances through OfferCreated to
// AwaitingAnswer.
func (n *Negotiator) sendOffer() error {
	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	msg, err := offerMessage(offer)
	if err != nil {
		return fmt.Errorf("failed to encode offer: %w", err)
	}

	n.transition(StateOfferCreated)
	n.outbound <- msg
	n.transition(StateAwaitingAnswer)
	return nil
}

func (n *Negotiator) startPumps(ctx context.Context, pumps *sync.WaitGroup) {
	for _, track := range n.tracks {
		pumps.Add(1)
		go func(pump *FramePump) {
			defer pumps.Done()
			pump.Run(ctx)
		}(track.pump)
	}
}

// handleMessage applies one inbound message to the state machine. It returns
// done=true on bye; any error is a protocol error that fails the session.
func (n *Negotiator) handleMessage(msg *types.SignalMessage) (bool, error) {
	switch msg.Action {
	case types.ActionAnswer:
		if n.State() != StateAwaitingAnswer {
			return false, fmt.Errorf("%w: answer in state %s", types.ErrSignalingProtocol, n.State())
		}
		desc, err := decodeAnswer(msg)
		if err != nil {
			return false, err
		}
		if err := n.pc.SetRemoteDescription(desc); err != nil {
			return false, fmt.Errorf("%w: %v", types.ErrSignalingProtocol, err)
		}
		n.transition(StateConnected)
		return false, nil

	case types.ActionOffer:
		// Renegotiation is rejected, not ignored.
		return false, fmt.Errorf("%w: renegotiation not supported", types.ErrSignalingProtocol)

	case types.ActionICE:
		candidate, err := decodeICECandidate(msg)
		if err != nil {
			return false, err
		}
		if err := n.pc.AddICECandidate(candidate); err != nil {
			return false, fmt.Errorf("%w: %v", types.ErrSignalingProtocol, err)
		}
		return false, nil

	case types.ActionBye:
		return true, nil

	default:
		return false, fmt.Errorf("%w: unknown action %q", types.ErrSignalingProtocol, msg.Action)
	}
}

// releaseTracks closes every source exactly once regardless of health.
func (n *Negotiator) releaseTracks() {
	n.mu.Lock()
	tracks := n.tracks
	n.mu.Unlock()
	for _, track := range tracks {
		if err := track.source.Close(); err != nil {
			tool.DefaultLogger.Debugf("Session %s: source close: %v", n.id, err)
		}
	}
}

// codecFor picks the sample track codec by transport kind.
func codecFor(kind types.TransportKind) webrtc.RTPCodecCapability {
	if kind == types.TransportRTSP {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264, ClockRate: 90000}
	}
	return webrtc.RTPCodecCapability{MimeType: "video/JPEG", ClockRate: 90000}
}

