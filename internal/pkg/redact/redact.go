// Package redact keeps credentials out of logs and forwarded requests.
package redact

import (
	"net/http"
	"sort"
	"strings"
)

const redactedValue = "***REDACTED***"

// CredentialHeaders carry caller credentials and are never logged or forwarded as-is.
var CredentialHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization", "Set-Cookie"}

// IsCredentialHeader reports whether name (any case) is one of CredentialHeaders.
func IsCredentialHeader(name string) bool {
	for _, h := range CredentialHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

// Headers returns a flat copy of h for logging, with credential values replaced.
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if IsCredentialHeader(k) {
			out[k] = redactedValue
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// HeaderNames lists the header names of h in sorted order, without any values.
func HeaderNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Value masks a secret for display: empty stays empty, anything else becomes ***REDACTED***.
func Value(s string) string {
	if s == "" {
		return ""
	}
	return redactedValue
}
