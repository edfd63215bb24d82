package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	database Pinger
	cache    Pinger
	storage  Pinger
	info     map[string]interface{}
	jobs     func() map[string]interface{}
	version  string
	started  time.Time
}

// NewHealthHandlers creates a new health handlers instance. info is merged into
// the detailed report and must not contain secrets. jobs, when set, is called on
// every detailed report.
func NewHealthHandlers(database, cache, storage Pinger, info map[string]interface{}, jobs func() map[string]interface{}, version string) *HealthHandlers {
	return &HealthHandlers{
		database: database,
		cache:    cache,
		storage:  storage,
		info:     info,
		jobs:     jobs,
		version:  version,
		started:  time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

func (h *HealthHandlers) check(ctx context.Context) *HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	}
	for name, dep := range map[string]Pinger{"database": h.database, "redis": h.cache, "storage": h.storage} {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "degraded"
		} else {
			health.Services[name] = "healthy"
		}
	}
	return health
}

// HealthCheck reports every dependency. A degraded result is served as 206.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	health := h.check(c.Request().Context())

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck only fails on the database and redis. Document storage being down
// disables uploads but not the dashboards.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	health := h.check(c.Request().Context())

	if health.Services["database"] == "unhealthy" || health.Services["redis"] == "unhealthy" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Critical services unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck adds runtime and configuration details to the health report.
func (h *HealthHandlers) DetailedHealthCheck(c echo.Context) error {
	health := h.check(c.Request().Context())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	report := map[string]interface{}{
		"health": health,
		"runtime": map[string]interface{}{
			"goroutines":    runtime.NumGoroutine(),
			"heap_alloc_mb": mem.HeapAlloc / 1024 / 1024,
			"num_gc":        mem.NumGC,
			"go_version":    runtime.Version(),
		},
		"config": h.info,
	}
	if h.jobs != nil {
		report["scheduler"] = h.jobs()
	}
	return c.JSON(http.StatusOK, report)
}
