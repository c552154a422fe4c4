package tool

import "flag"

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log             string
	UseConfigPath   string
	UseAPIPort      int
	UseHttps        bool
	UseScanInterval int
	SkipInitialScan bool
}

// SetFlags parses CLI flags and returns the override config.
func SetFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UseAPIPort, "useAPIPort", 0, "override API server port")
	flag.BoolVar(&cfg.UseHttps, "useHttps", false, "serve the API over https with a self-signed certificate")
	flag.IntVar(&cfg.UseScanInterval, "useScanInterval", 0, "override camera scan interval in seconds")
	flag.BoolVar(&cfg.SkipInitialScan, "skipInitialScan", false, "do not scan for cameras on startup")
	flag.Parse()
	return cfg
}
