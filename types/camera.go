package types

import "time"

// TransportKind identifies how a validated stream is carried.
type TransportKind string

const (
	TransportMJPEG TransportKind = "mjpeg"
	TransportRTSP  TransportKind = "rtsp"
)

// Host is one address probed during enumeration. Hosts only live for the
// duration of a single scan cycle.
type Host struct {
	Address   string    `json:"address"`
	Reachable bool      `json:"reachable"`
	ProbedAt  time.Time `json:"probedAt"`
}

// CandidateEndpoint is an open port on a reachable host, optionally carrying
// a banner string captured during the port sweep.
type CandidateEndpoint struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
	Banner  string `json:"banner,omitempty"`
}

// Credential is one username/password variant tried during validation.
// The zero value means anonymous access.
type Credential struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

func (c Credential) IsAnonymous() bool {
	return c.Username == "" && c.Password == ""
}

// StreamCandidate is an unconfirmed endpoint/path/scheme/credential
// combination awaiting validation.
type StreamCandidate struct {
	Endpoint   CandidateEndpoint `json:"endpoint"`
	Path       string            `json:"path"`
	Scheme     string            `json:"scheme"` // "http", "https" or "rtsp"
	Credential Credential        `json:"credential"`
}

// ValidatedCamera is a stream confirmed by two independent validation passes.
// Records are immutable once published.
type ValidatedCamera struct {
	URL          string        `json:"url"`
	Address      string        `json:"address"`
	Port         int           `json:"port"`
	Path         string        `json:"path"`
	Transport    TransportKind `json:"type"`
	Manufacturer string        `json:"manufacturer"`
	DiscoveredAt time.Time     `json:"discoveredAt"`
}
