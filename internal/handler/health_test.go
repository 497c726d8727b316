package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"articles-cache-api/internal/service"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		cache    Pinger
		wantCode int
	}{
		{"cache up", fakePinger{}, http.StatusOK},
		{"cache down", fakePinger{err: errors.New("dial tcp: connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New("articles-cache-api", "1.0.0", tc.cache, "redis")
			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			var body struct {
				Data ReadyResponse `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Data.Ready != (tc.wantCode == http.StatusOK) {
				t.Errorf("ready = %v", body.Data.Ready)
			}
		})
	}
}

func TestStatusDegradedWhenCacheDown(t *testing.T) {
	h := New("articles-cache-api", "1.0.0", fakePinger{err: errors.New("down")}, "redis")
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Data StatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Status != "degraded" || body.Data.Checks.Cache != "error" {
		t.Errorf("status = %+v", body.Data)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Error("missing Cache-Control header")
	}
}

type fakeStats struct{ s service.Stats }

func (f fakeStats) Stats() service.Stats { return f.s }

func TestAdminStats(t *testing.T) {
	h := NewAdminHandler(fakeStats{service.Stats{Hits: 3, Misses: 1, UpstreamCalls: 4}}, "memory", "json")
	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))

	var body struct {
		Data struct {
			Cache struct {
				Type     string        `json:"type"`
				Counters service.Stats `json:"counters"`
				HitRatio float64       `json:"hit_ratio"`
			} `json:"cache"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := body.Data.Cache
	if c.Type != "memory" || c.Counters.Hits != 3 || c.HitRatio != 0.75 {
		t.Errorf("cache stats = %+v", c)
	}
}
