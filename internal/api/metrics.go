package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// telemetryCheckTimeout bounds the telemetry health check in the metrics handler.
const telemetryCheckTimeout = 2 * time.Second

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Telemetry     *DepHealth     `json:"telemetry,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT session statistics.
type MQTTMetrics struct {
	Connected bool   `json:"connected"`
	Accepted  uint64 `json:"accepted"`
	AckedOK   uint64 `json:"acked_ok"`
	AckedFail uint64 `json:"acked_failed"`
}

// DepHealth reports an optional dependency's health.
type DepHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// handleMetrics returns runtime and dependency metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := s.session.Stats()
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		MQTT: MQTTMetrics{
			Connected: s.session.Connected(),
			Accepted:  stats.Accepted,
			AckedOK:   stats.AckedOK,
			AckedFail: stats.AckedFail,
		},
	}

	if s.telemetry != nil {
		ctx, cancel := context.WithTimeout(r.Context(), telemetryCheckTimeout)
		defer cancel()
		health := &DepHealth{Healthy: true}
		if err := s.telemetry.HealthCheck(ctx); err != nil {
			health = &DepHealth{Healthy: false, Error: err.Error()}
		}
		metrics.Telemetry = health
	}

	writeJSON(w, http.StatusOK, metrics)
}
