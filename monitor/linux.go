package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blume-tech/jetson-app/types"
)

// LinuxSource samples basic host metrics from procfs and sysfs. On a Jetson
// it picks up the thermal zones the board exposes; elsewhere it degrades to
// whatever the kernel provides.
type LinuxSource struct {
	procRoot string
	sysRoot  string
}

func NewLinuxSource() *LinuxSource {
	return &LinuxSource{procRoot: "/proc", sysRoot: "/sys"}
}

func (s *LinuxSource) Sample() (types.MetricsSnapshot, error) {
	snapshot := types.MetricsSnapshot{
		Timestamp:    time.Now(),
		CPU:          map[string]float64{},
		Temperatures: map[string]float64{},
		GPU:          map[string]float64{},
		Memory:       map[string]float64{},
		Power:        map[string]float64{},
	}

	if uptime, err := s.readUptime(); err == nil {
		snapshot.Uptime = uptime
	}
	if board, err := os.ReadFile(filepath.Join(s.procRoot, "device-tree/model")); err == nil {
		snapshot.Board = strings.TrimRight(string(board), "\x00\n")
	}
	s.sampleLoad(&snapshot)
	s.sampleMemory(&snapshot)
	s.sampleThermal(&snapshot)
	return snapshot, nil
}

func (s *LinuxSource) readUptime() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.procRoot, "uptime"))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("empty uptime")
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", err
	}
	return (time.Duration(seconds) * time.Second).String(), nil
}

func (s *LinuxSource) sampleLoad(snapshot *types.MetricsSnapshot) {
	data, err := os.ReadFile(filepath.Join(s.procRoot, "loadavg"))
	if err != nil {
		return
	}
	fields := strings.Fields(string(data))
	names := []string{"load_1m", "load_5m", "load_15m"}
	for i, name := range names {
		if i >= len(fields) {
			break
		}
		if value, err := strconv.ParseFloat(fields[i], 64); err == nil {
			snapshot.CPU[name] = value
		}
	}
}

func (s *LinuxSource) sampleMemory(snapshot *types.MetricsSnapshot) {
	data, err := os.ReadFile(filepath.Join(s.procRoot, "meminfo"))
	if err != nil {
		return
	}
	wanted := map[string]string{
		"MemTotal":  "RAM_total",
		"MemFree":   "RAM_free",
		"Buffers":   "RAM_buffers",
		"Cached":    "RAM_cached",
		"SwapTotal": "SWAP_total",
		"SwapFree":  "SWAP_free",
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, interesting := wanted[key]
		if !interesting {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if kb, err := strconv.ParseFloat(fields[0], 64); err == nil {
			// Report in MB like the rest of the board tooling.
			snapshot.Memory[name] = kb / 1024
		}
	}
}

func (s *LinuxSource) sampleThermal(snapshot *types.MetricsSnapshot) {
	zones, err := filepath.Glob(filepath.Join(s.sysRoot, "class/thermal/thermal_zone*"))
	if err != nil {
		return
	}
	for _, zone := range zones {
		name := "thermal"
		if data, err := os.ReadFile(filepath.Join(zone, "type")); err == nil {
			name = strings.TrimSpace(string(data))
		}
		data, err := os.ReadFile(filepath.Join(zone, "temp"))
		if err != nil {
			continue
		}
		milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			continue
		}
		temp := milli / 1000
		// Disconnected sensors report large negative values.
		if temp > -200 {
			snapshot.Temperatures[name] = temp
		}
	}
}
