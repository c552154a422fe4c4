package main

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/blume-tech/jetson-app/api"
	"github.com/blume-tech/jetson-app/discover"
	"github.com/blume-tech/jetson-app/monitor"
	"github.com/blume-tech/jetson-app/registry"
	"github.com/blume-tech/jetson-app/session"
	"github.com/blume-tech/jetson-app/tool"
)

// mergeAppConfig applies CLI overrides to the loaded config and returns the
// protocol the API server should speak.
func mergeAppConfig(cfg tool.Config, appCfg *tool.AppConfig) string {
	if cfg.UseAPIPort > 0 {
		appCfg.APIPort = cfg.UseAPIPort
	}
	if cfg.UseScanInterval > 0 {
		appCfg.ScanInterval = cfg.UseScanInterval
	}
	if cfg.UseHttps {
		appCfg.Https = true
	}
	if appCfg.Https {
		return "https"
	}
	return "http"
}

func setLogLevel(cfg tool.Config) {
	if cfg.Log == "" {
		tool.DefaultLogger.SetLevel(log.DebugLevel)
		return
	}
	switch strings.ToLower(cfg.Log) {
	case "dev":
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	case "prod":
		tool.DefaultLogger.SetLevel(log.InfoLevel)
	case "none":
		tool.DefaultLogger.SetLevel(log.FatalLevel)
	default:
		tool.DefaultLogger.Warnf("Unknown log mode %q, using debug level", cfg.Log)
		tool.DefaultLogger.SetLevel(log.DebugLevel)
	}
}

// startAPIServer starts the API server in a goroutine.
func startAPIServer(port int, protocol string, deps api.Deps) {
	apiServer := api.NewServer(port, protocol, deps)
	go func() {
		if err := apiServer.Start(); err != nil {
			tool.DefaultLogger.Fatalf("API server startup failed: %v", err)
		}
	}()
}

func main() {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}
	protocol := mergeAppConfig(cfg, &appCfg)

	tool.InitLogger()
	setLogLevel(cfg)

	cameraRegistry := registry.New()
	scanner := discover.NewScanner(appCfg, cameraRegistry)
	collector := monitor.NewCollector(monitor.NewLinuxSource())

	ctx := context.Background()
	go collector.Run(ctx, time.Second)

	if !cfg.SkipInitialScan {
		if appCfg.ScanInterval > 0 {
			tool.DefaultLogger.Infof("Scanning for cameras every %ds", appCfg.ScanInterval)
			go scanner.RunLoop(ctx, time.Duration(appCfg.ScanInterval)*time.Second)
		} else {
			tool.DefaultLogger.Info("Running initial camera scan")
			scanner.ScanNow()
		}
	}

	startAPIServer(appCfg.APIPort, protocol, api.Deps{
		Registry: cameraRegistry,
		Scanner:  scanner,
		Metrics:  collector,
		SessionCfg: session.Config{
			MaxTracks:   appCfg.MaxTracksPerSession,
			TargetWidth: appCfg.TargetFrameWidth,
			NominalFPS:  appCfg.NominalFPS,
		},
	})

	select {}
}
