package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func readingHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMaxBodySize_WithinLimit(t *testing.T) {
	handler := MaxBodySize(1024)(readingHandler())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/device/information", bytes.NewReader(make([]byte, 512)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestMaxBodySize_ExceedsLimit(t *testing.T) {
	handler := MaxBodySize(1024)(readingHandler())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		req := httptest.NewRequest(method, "/api/v1/device/information", bytes.NewReader(make([]byte, 4096)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("%s: expected status 413, got %d", method, rec.Code)
		}
	}
}

func TestMaxBodySize_DELETENotLimited(t *testing.T) {
	handler := MaxBodySize(1024)(readingHandler())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/logger/data", bytes.NewReader(make([]byte, 4096)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestMaxBodySize_DefaultLimit(t *testing.T) {
	handler := MaxBodySize(0)(readingHandler())

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(make([]byte, DefaultMaxBodyBytes+1)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", rec.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecureHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for h, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
}
