package redact

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("Cookie", "powerdesk_session=abc")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := Headers(h)
	assert.Equal(t, redactedValue, got["Authorization"])
	assert.Equal(t, redactedValue, got["Cookie"])
	assert.Equal(t, "application/json, text/plain", got["Accept"])
	assert.Equal(t, "Bearer secret-token", h.Get("Authorization"), "input must not be modified")
}

func TestIsCredentialHeader(t *testing.T) {
	assert.True(t, IsCredentialHeader("authorization"))
	assert.True(t, IsCredentialHeader("SET-COOKIE"))
	assert.False(t, IsCredentialHeader("X-Request-ID"))
}

func TestHeaderNames(t *testing.T) {
	h := http.Header{"X-B": {"1"}, "A": {"2"}}
	assert.Equal(t, []string{"A", "X-B"}, HeaderNames(h))
}

func TestValue(t *testing.T) {
	assert.Equal(t, "", Value(""))
	assert.Equal(t, redactedValue, Value("hunter2"))
}
