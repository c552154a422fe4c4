package discover

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// referenceAddress is only dialed on UDP to learn which local interface
// routes outbound traffic; no packet is actually sent.
const referenceAddress = "8.8.8.8:80"

// Enumerator finds reachable hosts on the local subnet.
type Enumerator struct {
	pingTimeout time.Duration
	workers     int
}

func NewEnumerator(pingTimeout time.Duration, workers int) *Enumerator {
	if workers <= 0 {
		workers = 1
	}
	return &Enumerator{pingTimeout: pingTimeout, workers: workers}
}

// LocalSubnet derives the local /24 block from the outbound route.
func (e *Enumerator) LocalSubnet() (*net.IPNet, error) {
	conn, err := net.Dial("udp4", referenceAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrNetworkUnavailable, err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || localAddr.IP.To4() == nil {
		return nil, fmt.Errorf("%w: no local IPv4 address", types.ErrNetworkUnavailable)
	}
	ip := localAddr.IP.To4()
	return &net.IPNet{
		IP:   ip.Mask(net.CIDRMask(24, 32)),
		Mask: net.CIDRMask(24, 32),
	}, nil
}

// Enumerate pings every address in the subnet concurrently, bounded by the
// worker pool, and returns the hosts that answered. A skip predicate lets
// scan-now treat recently seen hosts as reachable without pinging again.
func (e *Enumerator) Enumerate(ctx context.Context, subnet *net.IPNet, skipPing func(address string) bool) []types.Host {
	addresses := HostsIn(subnet)
	tool.DefaultLogger.Infof("Scanning subnet %s (%d addresses)", subnet.String(), len(addresses))

	results := make([]types.Host, len(addresses))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, address := range addresses {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, address string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if skipPing != nil && skipPing(address) {
				results[i] = types.Host{Address: address, Reachable: true, ProbedAt: time.Now()}
				return
			}
			results[i] = types.Host{
				Address:   address,
				Reachable: e.ping(ctx, address),
				ProbedAt:  time.Now(),
			}
		}(i, address)
	}
	wg.Wait()

	var reachable []types.Host
	for _, host := range results {
		if host.Reachable {
			tool.DefaultLogger.Debugf("Host %s is reachable", host.Address)
			reachable = append(reachable, host)
		}
	}
	tool.DefaultLogger.Infof("Found %d reachable hosts", len(reachable))
	return reachable
}

func (e *Enumerator) ping(ctx context.Context, address string) bool {
	pinger, err := probing.NewPinger(address)
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = e.pingTimeout
	// Unprivileged UDP ping so the binary does not need CAP_NET_RAW.
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// HostsIn expands a subnet into its usable host addresses, excluding the
// network and broadcast addresses for blocks smaller than /31.
func HostsIn(subnet *net.IPNet) []string {
	ip := subnet.IP.To4()
	if ip == nil {
		return nil
	}
	ones, bits := subnet.Mask.Size()
	total := 1 << (bits - ones)
	base := uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])

	var hosts []string
	for i := 0; i < total; i++ {
		// Skip network and broadcast addresses.
		if total > 2 && (i == 0 || i == total-1) {
			continue
		}
		v := base + uint32(i)
		addr := net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		hosts = append(hosts, addr.String())
	}
	return hosts
}
