package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serveLogged runs one request through LoggingMiddleware and returns the
// recorder and the decoded log line.
func serveLogged(t *testing.T, req *http.Request, status int) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)
	logger := zap.New(core)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(w, req)

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	return w, logEntry
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/stocks", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	_, logEntry := serveLogged(t, req, http.StatusNotFound)

	if logEntry["method"] != "GET" {
		t.Errorf("expected method GET, got %v", logEntry["method"])
	}
	if logEntry["path"] != "/api/v1/stocks" {
		t.Errorf("expected path /api/v1/stocks, got %v", logEntry["path"])
	}
	if logEntry["status"].(float64) != 404 {
		t.Errorf("expected status 404, got %v", logEntry["status"])
	}
	if _, ok := logEntry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
}

func TestLoggingMiddleware_AddsRequestID(t *testing.T) {
	w, logEntry := serveLogged(t, httptest.NewRequest("GET", "/test", nil), http.StatusOK)

	requestID := w.Header().Get(RequestIDHeader)
	if requestID == "" {
		t.Error("expected X-Request-ID header")
	}
	if logEntry["request_id"] != requestID {
		t.Errorf("expected request_id %s, got %v", requestID, logEntry["request_id"])
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")

	w, logEntry := serveLogged(t, req, http.StatusOK)

	if w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected echoed request id, got %s", w.Header().Get(RequestIDHeader))
	}
	if logEntry["request_id"] != "abc-123" {
		t.Errorf("expected request_id abc-123, got %v", logEntry["request_id"])
	}
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "10.0.0.1:54321"},
		{"forwarded", "203.0.113.50", "203.0.113.50"},
		{"forwarded chain", "203.0.113.50, 70.41.3.18", "203.0.113.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			_, logEntry := serveLogged(t, req, http.StatusOK)

			if logEntry["client_ip"] != tt.want {
				t.Errorf("expected client_ip %s, got %v", tt.want, logEntry["client_ip"])
			}
		})
	}
}
