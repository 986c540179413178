package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/logger"
	"github.com/RWTH-IAEW/cimpyorm/internal/interfaces/http/dto"
)

// SystemHandler serves health and server information.
type SystemHandler struct {
	BaseHandler
	ds        Dataset
	version   string
	startTime time.Time
}

// NewSystemHandler creates a SystemHandler for the served dataset.
func NewSystemHandler(ds Dataset, version string) *SystemHandler {
	return &SystemHandler{
		ds:        ds,
		version:   version,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health handles GET /health. It answers 503 when the database is unreachable.
func (h *SystemHandler) Health(c *gin.Context) {
	health := dto.HealthResponse{
		Status:   "healthy",
		Backend:  h.ds.Backend().String(),
		Version:  h.ds.Schema().Version,
		Database: "ok",
	}
	if err := h.ds.Ping(c.Request.Context()); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		health.Status = "unhealthy"
		health.Database = "error"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: health})
		return
	}
	h.Success(c, health)
}

// Info godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns the server version, Go version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "cimorm",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}
