package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("unreachable") }

func TestRunAggregatesWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"empty", nil, StatusUp},
		{"all up", map[string]Check{"index": Critical(ok), "redis": Optional(ok)}, StatusUp},
		{"optional down", map[string]Check{"index": Critical(ok), "redis": Optional(fail)}, StatusDegraded},
		{"critical down", map[string]Check{"index": Critical(fail), "redis": Optional(fail)}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}
			report := c.Run(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestCheckMessage(t *testing.T) {
	got := Critical(fail)(context.Background())
	assert.Equal(t, StatusDown, got.Status)
	assert.Equal(t, "unreachable", got.Message)
}

func TestReadyHandler(t *testing.T) {
	tests := []struct {
		name  string
		check Check
		code  int
	}{
		{"up", Critical(ok), http.StatusOK},
		{"degraded", Optional(fail), http.StatusOK},
		{"down", Critical(fail), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			c.Register("dep", tt.check)

			rec := httptest.NewRecorder()
			c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.code, rec.Code)

			var report Report
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Contains(t, report.Components, "dep")
		})
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
