// Package discover implements the multi-phase camera discovery pipeline:
// host enumeration, port probing, two-pass stream validation and
// manufacturer classification. A completed scan replaces the camera
// registry snapshot wholesale; a cancelled scan publishes nothing.
package discover

import (
	"context"
	"sync"
	"time"

	"github.com/blume-tech/jetson-app/registry"
	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// Scanner orchestrates one discovery cycle end to end.
type Scanner struct {
	cfg       tool.AppConfig
	enum      *Enumerator
	probe     *PortProbe
	validator *Validator
	registry  *registry.Registry

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func NewScanner(cfg tool.AppConfig, reg *registry.Registry) *Scanner {
	return &Scanner{
		cfg:       cfg,
		enum:      NewEnumerator(cfg.PingTimeout, cfg.HostWorkers),
		probe:     NewPortProbe(cfg.CameraPorts, cfg.RTSPPorts, cfg.PortTimeout, cfg.PortWorkers, cfg.ProbeRate),
		validator: NewValidator(cfg.CameraPaths, cfg.Credentials, cfg.ProbeTimeout),
		registry:  reg,
	}
}

// Scan runs one full discovery cycle. Cancelling ctx aborts all outstanding
// probes and discards partial results; the previous snapshot stays intact.
func (s *Scanner) Scan(ctx context.Context) error {
	if !s.begin(nil) {
		tool.DefaultLogger.Info("Scan already in progress, skipping")
		return nil
	}
	defer s.end()
	return s.scan(ctx)
}

func (s *Scanner) scan(ctx context.Context) error {
	started := time.Now()
	subnet, err := s.enum.LocalSubnet()
	if err != nil {
		tool.DefaultLogger.Errorf("Cannot determine local subnet: %v", err)
		return err
	}

	hosts := s.enum.Enumerate(ctx, subnet, s.registry.RecentlyReachable)
	for _, host := range hosts {
		s.registry.MarkReachable(host.Address)
	}
	if ctx.Err() != nil {
		tool.DefaultLogger.Warn("Scan cancelled during enumeration, discarding results")
		return ctx.Err()
	}

	provisional := s.sweep(ctx, hosts)
	if ctx.Err() != nil {
		tool.DefaultLogger.Warn("Scan cancelled during sweep, discarding results")
		return ctx.Err()
	}

	confirmed := s.revalidate(ctx, provisional)
	if ctx.Err() != nil {
		tool.DefaultLogger.Warn("Scan cancelled during revalidation, discarding results")
		return ctx.Err()
	}

	cameras := make([]types.ValidatedCamera, 0, len(confirmed))
	for _, candidate := range confirmed {
		cameras = append(cameras, types.ValidatedCamera{
			URL:          tool.BuildStreamURL(candidate),
			Address:      candidate.Endpoint.Address,
			Port:         candidate.Endpoint.Port,
			Path:         candidate.Path,
			Transport:    TransportFor(candidate),
			Manufacturer: Classify(candidate.Path, candidate.Endpoint.Banner, candidate.Endpoint.Port),
			DiscoveredAt: time.Now(),
		})
	}
	s.registry.Publish(cameras)
	tool.DefaultLogger.Infof("Scan complete in %s: %d cameras", time.Since(started).Round(time.Millisecond), len(cameras))
	return nil
}

// sweep runs the first validation pass over every reachable host. Hosts are
// processed under the global pool; ports within a host under the per-host
// pool inside PortProbe, capping total concurrent sockets at both levels.
func (s *Scanner) sweep(ctx context.Context, hosts []types.Host) []types.StreamCandidate {
	var (
		mu          sync.Mutex
		provisional []types.StreamCandidate
	)
	sem := make(chan struct{}, s.cfg.HostWorkers)
	var wg sync.WaitGroup

	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(host types.Host) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			for _, endpoint := range s.probe.Probe(ctx, host) {
				candidates := s.validator.CandidatesFor(endpoint, s.probe.IsRTSPPort(endpoint.Port))
				if found, ok := s.validator.FirstWorking(ctx, candidates); ok {
					tool.DefaultLogger.Infof("Provisional camera at %s", tool.BuildStreamURL(found))
					mu.Lock()
					provisional = append(provisional, found)
					mu.Unlock()
				}
			}
		}(host)
	}
	wg.Wait()
	return provisional
}

// revalidate re-tests every provisional candidate with the same success
// criteria. Only candidates confirmed in both passes are published; this
// suppresses transient false positives such as a server briefly answering
// 200 with unrelated content.
func (s *Scanner) revalidate(ctx context.Context, provisional []types.StreamCandidate) []types.StreamCandidate {
	var confirmed []types.StreamCandidate
	for _, candidate := range provisional {
		if ctx.Err() != nil {
			break
		}
		if err := s.validator.Validate(ctx, candidate); err != nil {
			tool.DefaultLogger.Warnf("Candidate %s failed revalidation: %v", tool.BuildStreamURL(candidate), err)
			continue
		}
		confirmed = append(confirmed, candidate)
	}
	return confirmed
}

// begin claims the single scan slot, recording the cancel handle in the same
// critical section so Abort never sees a handle for a scan that lost the
// race and was skipped.
func (s *Scanner) begin(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.cancel = cancel
	return true
}

func (s *Scanner) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.cancel = nil
}

// ScanNow triggers an asynchronous discovery cycle and returns immediately.
// A cycle already in progress is left alone.
func (s *Scanner) ScanNow() {
	ctx, cancel := context.WithCancel(context.Background())
	if !s.begin(cancel) {
		cancel()
		tool.DefaultLogger.Debug("ScanNow: scan already running")
		return
	}

	go func() {
		defer s.end()
		if err := s.scan(ctx); err != nil {
			tool.DefaultLogger.Errorf("Background scan failed: %v", err)
		}
	}()
}

// Abort cancels an in-flight scan, if any. Partial results are discarded.
func (s *Scanner) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RunLoop scans on a fixed interval until ctx is cancelled. Interval <= 0
// runs a single scan.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) {
	if err := s.Scan(ctx); err != nil {
		tool.DefaultLogger.Errorf("Initial scan failed: %v", err)
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				tool.DefaultLogger.Errorf("Periodic scan failed: %v", err)
			}
		}
	}
}
