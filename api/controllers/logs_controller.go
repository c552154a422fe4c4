package controllers

import (
	"bytes"
	"encoding/csv"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blume-tech/jetson-app/monitor"
	"github.com/blume-tech/jetson-app/tool"
)

type LogsController struct {
	metrics MetricsProvider
}

func NewLogsController(metrics MetricsProvider) *LogsController {
	return &LogsController{metrics: metrics}
}

// HandleDownload streams the telemetry history as a CSV attachment.
func (ctrl *LogsController) HandleDownload(c *gin.Context) {
	rows := ctrl.metrics.History()
	if len(rows) == 0 {
		c.String(http.StatusNotFound, "no data available for download")
		return
	}

	columns := monitor.ColumnsFor(rows[0])
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(columns); err != nil {
		tool.DefaultLogger.Errorf("CSV header write failed: %v", err)
		c.String(http.StatusInternalServerError, "failed to generate CSV")
		return
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, column := range columns {
			record[i] = row[column]
		}
		if err := writer.Write(record); err != nil {
			tool.DefaultLogger.Errorf("CSV row write failed: %v", err)
			c.String(http.StatusInternalServerError, "failed to generate CSV")
			return
		}
	}
	writer.Flush()

	c.Header("Content-Disposition", "attachment; filename=jetson_camera_logs.csv")
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
