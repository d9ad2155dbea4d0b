package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireBearerToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := map[string]struct {
		expected string
		header   string
		want     int
	}{
		"disabled":      {"", "", http.StatusOK},
		"correct token": {"s3cret", "Bearer s3cret", http.StatusOK},
		"wrong token":   {"s3cret", "Bearer nope", http.StatusUnauthorized},
		"missing":       {"s3cret", "", http.StatusUnauthorized},
		"wrong scheme":  {"s3cret", "Basic s3cret", http.StatusUnauthorized},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireBearerToken(tt.expected, logger)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
