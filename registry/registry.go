// Package registry holds the published set of validated cameras.
//
// The registry is a copy-on-write snapshot: a completed scan publishes its
// full camera list in one atomic pointer swap, so readers never observe a
// partially written list and never block a writer.
package registry

import (
	"sort"
	"sync/atomic"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

const hostCacheTTL = 120 * time.Second

// Registry is the thread-safe store of validated cameras. The zero value is
// not usable; call New.
type Registry struct {
	snapshot atomic.Pointer[[]types.ValidatedCamera]

	// hostCache remembers recently reachable hosts so an on-demand rescan
	// can skip the ping round for them.
	hostCache *ttlworker.Cache[string, bool]
}

func New() *Registry {
	r := &Registry{
		hostCache: ttlworker.NewCache[string, bool](hostCacheTTL),
	}
	empty := make([]types.ValidatedCamera, 0)
	r.snapshot.Store(&empty)
	return r
}

// Publish replaces the entire snapshot. Cameras are ordered by (host, port)
// so successive snapshots are stable for API consumers.
func (r *Registry) Publish(cameras []types.ValidatedCamera) {
	copied := make([]types.ValidatedCamera, len(cameras))
	copy(copied, cameras)
	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Address != copied[j].Address {
			return copied[i].Address < copied[j].Address
		}
		return copied[i].Port < copied[j].Port
	})
	r.snapshot.Store(&copied)
	tool.DefaultLogger.Infof("Published camera registry snapshot: %d cameras", len(copied))
}

// Snapshot returns the current camera list. The returned slice is shared
// between readers and must not be modified.
func (r *Registry) Snapshot() []types.ValidatedCamera {
	return *r.snapshot.Load()
}

// MarkReachable records that a host answered a ping recently.
func (r *Registry) MarkReachable(address string) {
	r.hostCache.Set(address, true)
}

// RecentlyReachable reports whether a host answered a ping within the cache
// TTL, letting scan-now skip the ping round for it.
func (r *Registry) RecentlyReachable(address string) bool {
	return r.hostCache.Get(address)
}
