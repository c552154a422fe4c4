package tool

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the YAML application config. Every field has a sane default so
// the server runs with no config file at all.
type AppConfig struct {
	APIPort      int  `yaml:"apiPort"`
	Https        bool `yaml:"https"`
	ScanInterval int  `yaml:"scanIntervalSeconds"` // 0 disables periodic rescans

	// Discovery tunables.
	CameraPorts  []int    `yaml:"cameraPorts"`
	RTSPPorts    []int    `yaml:"rtspPorts"`
	CameraPaths  []string `yaml:"cameraPaths"`
	Credentials  []string `yaml:"credentials"` // "user:pass" entries tried after anonymous
	HostWorkers  int      `yaml:"hostWorkers"`
	PortWorkers  int      `yaml:"portWorkers"`
	ProbeRate    int      `yaml:"probeRatePerSecond"` // 0 means unlimited
	PingTimeout  time.Duration
	PortTimeout  time.Duration
	ProbeTimeout time.Duration

	// Session tunables.
	MaxTracksPerSession int `yaml:"maxTracksPerSession"`
	TargetFrameWidth    int `yaml:"targetFrameWidth"`
	NominalFPS          int `yaml:"nominalFps"`
}

// rawConfig mirrors AppConfig for fields whose YAML form differs
// (durations are written in seconds).
type rawConfig struct {
	AppConfig           `yaml:",inline"`
	PingTimeoutSeconds  float64 `yaml:"pingTimeoutSeconds"`
	PortTimeoutSeconds  float64 `yaml:"portTimeoutSeconds"`
	ProbeTimeoutSeconds float64 `yaml:"probeTimeoutSeconds"`
}

// DefaultConfig returns the built-in configuration, matching the port and
// path dictionaries that common IP cameras answer on.
func DefaultConfig() AppConfig {
	return AppConfig{
		APIPort:      8080,
		ScanInterval: 0,
		CameraPorts:  []int{80, 554, 8080, 8081, 8554, 1935, 443},
		RTSPPorts:    []int{554, 8554},
		CameraPaths: []string{
			"/video",
			"/mjpeg",
			"/mjpg/video.mjpg",
			"/video.cgi",
			"/videostream.cgi",
			"/live",
			"/stream",
			"/cam/realmonitor?channel=1&subtype=0",
			"/axis-cgi/mjpg/video.cgi",
			"/cgi-bin/mjpg/video.cgi",
		},
		Credentials:         []string{"admin:admin", "admin:12345", "root:root"},
		HostWorkers:         50,
		PortWorkers:         4,
		ProbeRate:           0,
		PingTimeout:         time.Second,
		PortTimeout:         2 * time.Second,
		ProbeTimeout:        3 * time.Second,
		MaxTracksPerSession: 2,
		TargetFrameWidth:    640,
		NominalFPS:          30,
	}
}

// LoadConfig reads the YAML config at path, applying defaults for anything
// unset. A missing file is not an error; an unreadable or malformed one is.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	raw := rawConfig{AppConfig: cfg}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg = raw.AppConfig
	if raw.PingTimeoutSeconds > 0 {
		cfg.PingTimeout = time.Duration(raw.PingTimeoutSeconds * float64(time.Second))
	}
	if raw.PortTimeoutSeconds > 0 {
		cfg.PortTimeout = time.Duration(raw.PortTimeoutSeconds * float64(time.Second))
	}
	if raw.ProbeTimeoutSeconds > 0 {
		cfg.ProbeTimeout = time.Duration(raw.ProbeTimeoutSeconds * float64(time.Second))
	}
	return cfg, nil
}
