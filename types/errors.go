package types

import "errors"

// Error taxonomy. Probe-local failures (timeouts, failed candidates) are
// never surfaced past the component that saw them; only these named errors
// cross component boundaries.
var (
	// ErrNetworkUnavailable means the local subnet could not be determined.
	// Fatal to one scan attempt; the next cycle retries.
	ErrNetworkUnavailable = errors.New("local network unavailable")

	// ErrValidationFailed marks a candidate that did not serve a usable
	// stream. Local to one candidate, discarded silently.
	ErrValidationFailed = errors.New("stream validation failed")

	// ErrSourceOpenFailed means one camera source could not be opened when
	// building a session; the track is omitted.
	ErrSourceOpenFailed = errors.New("video source open failed")

	// ErrNoSourcesAvailable ends a session that could not bind any track.
	ErrNoSourcesAvailable = errors.New("no video sources available")

	// ErrSignalingProtocol marks a malformed or out-of-order signaling
	// message; the session moves to Failed and the channel is closed.
	ErrSignalingProtocol = errors.New("signaling protocol error")

	// ErrSourceRead marks a failed frame read; bounded retries apply
	// before a track is degraded.
	ErrSourceRead = errors.New("video source read failed")
)
