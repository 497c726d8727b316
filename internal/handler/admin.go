package handler

import (
	"net/http"
	"runtime"
	"time"

	"articles-cache-api/internal/service"
	"articles-cache-api/pkg/response"
)

// StatsSource exposes the article engine counters.
type StatsSource interface {
	Stats() service.Stats
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	stats     StatsSource
	cacheType string
	codec     string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(stats StatsSource, cacheType, codec string) *AdminHandler {
	return &AdminHandler{
		stats:     stats,
		cacheType: cacheType,
		codec:     codec,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)

	counters := h.stats.Stats()
	lookups := counters.Hits + counters.Misses
	hitRatio := 0.0
	if lookups > 0 {
		hitRatio = float64(counters.Hits) / float64(lookups)
	}
	stats["cache"] = map[string]interface{}{
		"type":      h.cacheType,
		"codec":     h.codec,
		"counters":  counters,
		"hit_ratio": float64(int(hitRatio*1000)) / 1000,
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
