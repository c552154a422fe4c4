// Package monitor samples system metrics and keeps a bounded history for
// the CSV export. Discovery and session logic never read from here.
package monitor

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/blume-tech/jetson-app/tool"
	"github.com/blume-tech/jetson-app/types"
)

// historyCap bounds the flattened history ring: ten minutes at one sample
// per second.
const historyCap = 600

// Source produces one structured metrics snapshot per call.
type Source interface {
	Sample() (types.MetricsSnapshot, error)
}

// Collector owns the latest snapshot and the flattened history.
type Collector struct {
	source Source

	mu      sync.Mutex
	latest  *types.MetricsSnapshot
	history []map[string]string
}

func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

// Run samples once per interval until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, err := c.source.Sample()
			if err != nil {
				tool.DefaultLogger.Debugf("Metrics sample failed: %v", err)
				continue
			}
			c.Record(snapshot)
		}
	}
}

// Record stores a snapshot as latest and appends its flattened row,
// trimming the ring at the cap.
func (c *Collector) Record(snapshot types.MetricsSnapshot) {
	row := Flatten(snapshot)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &snapshot
	c.history = append(c.history, row)
	if len(c.history) > historyCap {
		c.history = c.history[len(c.history)-historyCap:]
	}
}

// Latest returns the most recent snapshot, or false when none was taken yet.
func (c *Collector) Latest() (types.MetricsSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return types.MetricsSnapshot{}, false
	}
	return *c.latest, true
}

// History returns a copy of the flattened rows, oldest first.
func (c *Collector) History() []map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([]map[string]string, len(c.history))
	copy(rows, c.history)
	return rows
}

// DataPoints returns how many rows the history currently holds.
func (c *Collector) DataPoints() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Flatten maps a nested snapshot into one flat CSV row.
func Flatten(snapshot types.MetricsSnapshot) map[string]string {
	row := map[string]string{
		"timestamp": snapshot.Timestamp.Format(time.RFC3339),
		"uptime":    snapshot.Uptime,
		"board":     snapshot.Board,
	}
	for _, category := range []map[string]float64{
		snapshot.CPU, snapshot.Temperatures, snapshot.GPU, snapshot.Memory, snapshot.Power,
	} {
		for key, value := range category {
			row[key] = formatFloat(value)
		}
	}
	return row
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// ColumnsFor returns the stable column order for a CSV export: fixed fields
// first, then the remaining keys of the first row sorted.
func ColumnsFor(row map[string]string) []string {
	fixed := []string{"timestamp", "uptime", "board"}
	seen := map[string]bool{"timestamp": true, "uptime": true, "board": true}
	var rest []string
	for key := range row {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(fixed, rest...)
}
