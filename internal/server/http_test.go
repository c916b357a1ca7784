package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	applykitErrors "applykit/internal/errors"
)

func testServer(apiKeys []string) *Server {
	keys := make(map[string]bool)
	for _, k := range apiKeys {
		keys[k] = true
	}
	return &Server{
		APIKeys: keys,
		Logger:  applykitErrors.NewLogger(slog.LevelError),
	}
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		apiKeys    []string
		header     string
		value      string
		wantStatus int
	}{
		{
			name:       "no keys configured skips auth",
			apiKeys:    nil,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing key rejected",
			apiKeys:    []string{"secret-key-123"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key rejected",
			apiKeys:    []string{"secret-key-123"},
			header:     "X-API-Key",
			value:      "wrong-key",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid X-API-Key accepted",
			apiKeys:    []string{"secret-key-123"},
			header:     "X-API-Key",
			value:      "secret-key-123",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid bearer token accepted",
			apiKeys:    []string{"secret-key-123"},
			header:     "Authorization",
			value:      "Bearer secret-key-123",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(tt.apiKeys)
			handler := s.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()

			handler(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		apiKey string
		want   string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"123456789abcdef", "12345678****"},
	}

	for _, tt := range tests {
		if got := maskAPIKey(tt.apiKey); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.apiKey, got, tt.want)
		}
	}
}

func TestWriteAppErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid request maps to 400",
			err:        applykitErrors.NewValidationError(applykitErrors.ErrCodeInvalidRequest, "bad input", nil),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown session maps to 404",
			err:        applykitErrors.NewPipelineError(applykitErrors.ErrCodeSessionNotFound, "no such session", nil),
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid transition maps to 409",
			err:        applykitErrors.NewPipelineError(applykitErrors.ErrCodeInvalidTransition, "already complete", nil),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "iteration limit maps to 409",
			err:        applykitErrors.NewPipelineError(applykitErrors.ErrCodeIterationLimit, "refinement cap reached", nil),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unreadable source maps to 502",
			err:        applykitErrors.NewNetworkError(applykitErrors.ErrCodeUnreadableSource, "fetch failed", nil),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "ai failure maps to 500",
			err:        applykitErrors.NewAIError(applykitErrors.ErrCodeAIServiceFailed, "model unavailable", nil),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, "request failed", tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
		})
	}
}
