package discover

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostsIn(t *testing.T) {
	t.Run("slash 24", func(t *testing.T) {
		_, subnet, err := net.ParseCIDR("192.168.1.0/24")
		require.NoError(t, err)

		hosts := HostsIn(subnet)
		require.Len(t, hosts, 254)
		assert.Equal(t, "192.168.1.1", hosts[0])
		assert.Equal(t, "192.168.1.254", hosts[len(hosts)-1])
	})

	t.Run("slash 30", func(t *testing.T) {
		_, subnet, err := net.ParseCIDR("10.0.0.4/30")
		require.NoError(t, err)

		hosts := HostsIn(subnet)
		assert.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, hosts)
	})

	t.Run("slash 31 keeps both addresses", func(t *testing.T) {
		_, subnet, err := net.ParseCIDR("10.0.0.0/31")
		require.NoError(t, err)

		hosts := HostsIn(subnet)
		assert.Equal(t, []string{"10.0.0.0", "10.0.0.1"}, hosts)
	})

	t.Run("ipv6 yields nothing", func(t *testing.T) {
		_, subnet, err := net.ParseCIDR("fe80::/64")
		require.NoError(t, err)
		assert.Nil(t, HostsIn(subnet))
	})
}

// The skip predicate marks hosts reachable without pinging, which is how a
// manual rescan reuses recent reachability results.
func TestEnumerateSkipPredicate(t *testing.T) {
	_, subnet, err := net.ParseCIDR("192.0.2.0/30")
	require.NoError(t, err)

	e := NewEnumerator(10*time.Millisecond, 4)
	hosts := e.Enumerate(context.Background(), subnet, func(address string) bool {
		return address == "192.0.2.1"
	})

	// 192.0.2.0/24 is TEST-NET-1, nothing answers pings; only the skipped
	// address comes back reachable.
	require.Len(t, hosts, 1)
	assert.Equal(t, "192.0.2.1", hosts[0].Address)
	assert.True(t, hosts[0].Reachable)
}

func TestEnumerateCancelled(t *testing.T) {
	_, subnet, err := net.ParseCIDR("192.0.2.0/24")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEnumerator(time.Second, 8)
	assert.Empty(t, e.Enumerate(ctx, subnet, nil))
}
