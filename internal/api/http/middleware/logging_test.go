package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/vaultdrop-server/internal/logger"
)

func TestLogging_Handle(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		wantInLog []string
	}{
		{
			name:      "success logs the route pattern",
			target:    "/bundles/week-1/premium?token=secret",
			status:    http.StatusOK,
			wantInLog: []string{"HTTP request completed", "route=/bundles/{periodId}/{tier}", "status=200"},
		},
		{
			name:      "client error",
			target:    "/bundles/week-1/premium",
			status:    http.StatusForbidden,
			wantInLog: []string{"HTTP request rejected", "status=403"},
		},
		{
			name:      "server error",
			target:    "/bundles/week-1/premium",
			status:    http.StatusServiceUnavailable,
			wantInLog: []string{"HTTP request failed", "status=503"},
		},
		{
			name:      "unknown route",
			target:    "/nowhere",
			status:    http.StatusNotFound,
			wantInLog: []string{"route=unmatched", "status=404"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := logger.NewWithFormat(&buf, -4, "text")

			r := chi.NewRouter()
			r.Use(NewLogging(l).Handle)
			r.Get("/bundles/{periodId}/{tier}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			for _, want := range tt.wantInLog {
				assert.Contains(t, buf.String(), want)
			}
			assert.NotContains(t, buf.String(), "secret")
		})
	}
}
