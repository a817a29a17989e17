package rest

import (
	"net/http"
	"strings"
)

// APIError is the envelope for unknown API routes and unsupported methods.
type APIError struct {
	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	Message    string      `json:"message"`
	Error      ErrorDetail `json:"error"`
}

// ErrorDetail describes what was requested.
type ErrorDetail struct {
	Type         string `json:"type"`
	Description  string `json:"description"`
	RequestedURL string `json:"requested_url"`
	Method       string `json:"method"`
}

func respondStructuredError(w http.ResponseWriter, r *http.Request, status int, typ, message, description string) {
	respondJSON(w, status, APIError{
		StatusCode: status,
		Status:     "error",
		Message:    message,
		Error: ErrorDetail{
			Type:         typ,
			Description:  description,
			RequestedURL: r.URL.RequestURI(),
			Method:       r.Method,
		},
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}
	respondStructuredError(w, r, http.StatusNotFound, "NotFound", "Endpoint not found",
		"The requested endpoint '"+r.URL.Path+"' was not found on this server")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondStructuredError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "Method not allowed",
		"The method '"+r.Method+"' is not allowed for endpoint '"+r.URL.Path+"'")
}

func upstreamNotConfigured(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusBadGateway, "upstream not configured")
}
