package tool

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

var (
	defaultLogDir = "logs"
	DefaultLogger = log.Default()
)

// InitLogger mirrors everything to a dated file next to the binary so a
// headless board keeps a trace of past scan cycles.
func InitLogger() {
	_ = os.MkdirAll(defaultLogDir, 0o755)

	logFile := filepath.Join(defaultLogDir, "camera-node-"+time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		panic(err)
	}
	DefaultLogger.SetOutput(io.MultiWriter(os.Stdout, f))
	DefaultLogger.SetTimeFormat(time.DateTime)
	DefaultLogger.SetReportCaller(true)
}
