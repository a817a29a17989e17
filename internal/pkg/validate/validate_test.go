package validate

import (
	"strings"
	"testing"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"", false},
		{"teknisi", true},
		{"ops.user-01_x", true},
		{strings.Repeat("a", UsernameMaxLen), true},
		{strings.Repeat("a", UsernameMaxLen+1), false},
		{"bad/name", false},
		{"bad name", false},
		{"admin%00", false},
	}
	for _, tt := range tests {
		if got := Username(tt.name); got != tt.want {
			t.Errorf("Username(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		pw   string
		want bool
	}{
		{"", false},
		{"x", true},
		{strings.Repeat("p", PasswordMaxBytes), true},
		{strings.Repeat("p", PasswordMaxBytes+1), false},
	}
	for _, tt := range tests {
		if got := Password(tt.pw); got != tt.want {
			t.Errorf("Password(len %d) = %v, want %v", len(tt.pw), got, tt.want)
		}
	}
}

func TestEventType(t *testing.T) {
	tests := []struct {
		typ  string
		want bool
	}{
		{"", false},
		{"login_failure", true},
		{"access_denied", true},
		{"Login", false},
		{"x' OR 1=1", false},
	}
	for _, tt := range tests {
		if got := EventType(tt.typ); got != tt.want {
			t.Errorf("EventType(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestPolicyWarnings(t *testing.T) {
	yaml := `
public_endpoints:
  - /api/v1/services/snmp/info
roles:
  admin:
    actions: [shutdown, manage_users]
    endpoints: [/api/v1/*]
  teknisi:
    actions: [reboot, shutdown]
    endpoints: [/api/v1/monitoring/*]
  apt:
    endpoints: [/api/v1/*]
`
	w := PolicyWarnings(yaml)
	if len(w) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", len(w), w)
	}
	want := []string{
		"public_endpoints: /api/v1/services/snmp/info",
		"roles/apt/endpoints: /api/v1/*",
		"roles/teknisi/actions: shutdown",
	}
	for i, prefix := range want {
		if !strings.HasPrefix(w[i], prefix) {
			t.Errorf("warning %d = %q, want prefix %q", i, w[i], prefix)
		}
	}
}

func TestPolicyWarnings_CleanAndInvalid(t *testing.T) {
	clean := `
roles:
  teknisi:
    actions: [reboot]
    endpoints: [/api/v1/monitoring/*]
`
	if w := PolicyWarnings(clean); len(w) != 0 {
		t.Errorf("expected no warnings, got %v", w)
	}
	if w := PolicyWarnings("roles: [unclosed"); w != nil {
		t.Errorf("expected nil for invalid YAML, got %v", w)
	}
}
