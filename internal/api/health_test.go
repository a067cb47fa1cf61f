package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/booking-availability/internal/redis"
)

func checkOK(context.Context) error { return nil }
func checkDown(context.Context) error { return errors.New("connection refused") }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checks   []DependencyCheck
		code     int
		status   string
		postgres string
	}{
		{
			name:     "all up",
			checks:   []DependencyCheck{{Name: "postgres", Critical: true, Check: checkOK}, {Name: "redis", Check: checkOK}},
			code:     http.StatusOK,
			status:   "ok",
			postgres: "ok",
		},
		{
			name:     "redis down",
			checks:   []DependencyCheck{{Name: "postgres", Critical: true, Check: checkOK}, {Name: "redis", Check: checkDown}},
			code:     http.StatusOK,
			status:   "degraded",
			postgres: "ok",
		},
		{
			name:     "postgres down",
			checks:   []DependencyCheck{{Name: "postgres", Critical: true, Check: checkDown}, {Name: "redis", Check: checkOK}},
			code:     http.StatusServiceUnavailable,
			status:   "error",
			postgres: "down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks, "test", "v0")
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, tt.code, rec.Code)
			resp := decode[ReadinessResponse](t, rec)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.postgres, resp.Dependencies["postgres"])
		})
	}
}

func TestReadiness_WithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := NewHealthHandler([]DependencyCheck{{Name: "redis", Check: redisclient.ReadyCheck(rdb)}}, "test", "v0")
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[ReadinessResponse](t, rec).Dependencies["redis"])
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(nil, "test", "v1.2.3")
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[LivenessResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
}
