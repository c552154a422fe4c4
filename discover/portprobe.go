package discover

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

const bannerTimeout = 1500 * time.Millisecond

// PortProbe finds open camera-service ports on a reachable host.
type PortProbe struct {
	ports       []int
	rtspPorts   map[int]bool
	connTimeout time.Duration
	workers     int
	limiter     *rate.Limiter // global connect-rate cap shared across hosts
	client      *http.Client
}

func NewPortProbe(ports, rtspPorts []int, connTimeout time.Duration, workers, ratePerSecond int) *PortProbe {
	if workers <= 0 {
		workers = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	}
	rtsp := make(map[int]bool, len(rtspPorts))
	for _, port := range rtspPorts {
		rtsp[port] = true
	}
	return &PortProbe{
		ports:       ports,
		rtspPorts:   rtsp,
		connTimeout: connTimeout,
		workers:     workers,
		limiter:     limiter,
		client:      tool.NewProbeHTTPClient(),
	}
}

// IsRTSPPort reports whether the port belongs to the rtsp-like subset of the
// curated port list.
func (p *PortProbe) IsRTSPPort(port int) bool {
	return p.rtspPorts[port]
}

// Probe attempts a TCP connect on every curated port of the host, bounded by
// the per-host worker pool. On http-like ports it additionally grabs a server
// banner; a failed banner request never fails the port-open result.
func (p *PortProbe) Probe(ctx context.Context, host types.Host) []types.CandidateEndpoint {
	results := make([]types.CandidateEndpoint, len(p.ports))
	open := make([]bool, len(p.ports))
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, port := range p.ports {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i, port int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := p.limiter.Wait(ctx); err != nil {
				return
			}
			if !p.connect(host.Address, port) {
				return
			}
			open[i] = true
			endpoint := types.CandidateEndpoint{Address: host.Address, Port: port}
			if !p.rtspPorts[port] {
				endpoint.Banner = p.banner(ctx, host.Address, port)
			}
			results[i] = endpoint
		}(i, port)
	}
	wg.Wait()

	var endpoints []types.CandidateEndpoint
	for i := range results {
		if open[i] {
			tool.DefaultLogger.Debugf("Port %d open on %s", results[i].Port, results[i].Address)
			endpoints = append(endpoints, results[i])
		}
	}
	return endpoints
}

func (p *PortProbe) connect(address string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(address, fmt.Sprint(port)), p.connTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// banner issues a minimal HEAD request and returns the Server header, which
// many cameras use to announce their firmware.
func (p *PortProbe) banner(ctx context.Context, address string, port int) string {
	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	bannerCtx, cancel := context.WithTimeout(ctx, bannerTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(bannerCtx, http.MethodHead, fmt.Sprintf("%s://%s:%d/", scheme, address, port), nil)
	if err != nil {
		return ""
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	return resp.Header.Get("Server")
}
