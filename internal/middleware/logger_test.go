package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestLoggerRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(RequestID, Logger(zerolog.New(&buf)))
	r.Post("/v1/jobs/{jobId}/advance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/jobs/abc/advance", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["route"] != "/v1/jobs/{jobId}/advance" || line["path"] != "/v1/jobs/abc/advance" {
		t.Fatalf("unexpected route fields: %v", line)
	}
	if line["level"] != "warn" || line["status"] != float64(404) || line["bytes"] != float64(4) {
		t.Fatalf("unexpected status fields: %v", line)
	}
	if line["request_id"] == "" {
		t.Fatalf("missing request id: %v", line)
	}
}
