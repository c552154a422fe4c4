package discover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// rtspProbeFunc tests an RTSP URL; swapped out in tests.
type rtspProbeFunc func(ctx context.Context, url string, timeout time.Duration) error

// Validator confirms that a stream candidate serves real video data.
type Validator struct {
	paths       []string
	credentials []types.Credential
	timeout     time.Duration
	client      *http.Client
	rtspProbe   rtspProbeFunc
}

func NewValidator(paths []string, credentials []string, timeout time.Duration) *Validator {
	// Anonymous access is always tried first, default credentials after.
	creds := []types.Credential{{}}
	for _, entry := range credentials {
		user, pass, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		creds = append(creds, types.Credential{Username: user, Password: pass})
	}
	return &Validator{
		paths:       paths,
		credentials: creds,
		timeout:     timeout,
		client:      tool.NewProbeHTTPClient(),
		rtspProbe:   rtspCheck,
	}
}

// CandidatesFor builds the ordered candidate list for an open port: every
// path template crossed with every credential variant, anonymous first.
func (v *Validator) CandidatesFor(endpoint types.CandidateEndpoint, rtsp bool) []types.StreamCandidate {
	scheme := "http"
	switch {
	case rtsp:
		scheme = "rtsp"
	case endpoint.Port == 443:
		scheme = "https"
	}

	candidates := make([]types.StreamCandidate, 0, len(v.paths)*len(v.credentials))
	for _, path := range v.paths {
		for _, cred := range v.credentials {
			candidates = append(candidates, types.StreamCandidate{
				Endpoint:   endpoint,
				Path:       path,
				Scheme:     scheme,
				Credential: cred,
			})
		}
	}
	return candidates
}

// FirstWorking evaluates candidates in order and returns the first one that
// validates, short-circuiting the rest: one confirmed stream per port.
func (v *Validator) FirstWorking(ctx context.Context, candidates []types.StreamCandidate) (types.StreamCandidate, bool) {
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return types.StreamCandidate{}, false
		}
		if err := v.Validate(ctx, candidate); err == nil {
			return candidate, true
		}
	}
	return types.StreamCandidate{}, false
}

// Validate tests a single candidate against the success criteria for its
// scheme. Failures are local to the candidate and carry no detail upward
// beyond the sentinel.
func (v *Validator) Validate(ctx context.Context, candidate types.StreamCandidate) error {
	url := tool.BuildStreamURL(candidate)
	switch candidate.Scheme {
	case "http", "https":
		return v.validateHTTP(ctx, url)
	case "rtsp":
		if err := v.rtspProbe(ctx, url, v.timeout); err != nil {
			tool.DefaultLogger.Debugf("RTSP candidate %s rejected: %v", url, err)
			return fmt.Errorf("%w: %v", types.ErrValidationFailed, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown scheme %q", types.ErrValidationFailed, candidate.Scheme)
	}
}

// validateHTTP requires a 2xx status, a streaming content type, and at least
// one non-empty body chunk. An unrelated server answering 200 with an HTML
// page fails the content-type check.
func (v *Validator) validateHTTP(ctx context.Context, url string) error {
	reqCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidationFailed, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrValidationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %s", types.ErrValidationFailed, resp.Status)
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "multipart") &&
		!strings.Contains(contentType, "image") &&
		!strings.Contains(contentType, "video") {
		return fmt.Errorf("%w: content type %q", types.ErrValidationFailed, contentType)
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			return nil
		}
		if readErr != nil {
			if readErr == io.EOF {
				return fmt.Errorf("%w: empty body", types.ErrValidationFailed)
			}
			return fmt.Errorf("%w: %v", types.ErrValidationFailed, readErr)
		}
	}
}

// TransportFor maps a candidate scheme to the published transport kind.
func TransportFor(candidate types.StreamCandidate) types.TransportKind {
	if candidate.Scheme == "rtsp" {
		return types.TransportRTSP
	}
	return types.TransportMJPEG
}
