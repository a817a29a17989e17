package auth

import (
	"encoding/base64"
	"testing"
)

func TestGenerateAPIToken(t *testing.T) {
	tok, err := GenerateAPIToken()
	if err != nil {
		t.Fatalf("GenerateAPIToken: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not standard base64: %v", err)
	}
	if len(raw) != apiTokenBytes {
		t.Errorf("decoded length = %d, want %d", len(raw), apiTokenBytes)
	}
	if err := ValidateTokenFormat(tok); err != nil {
		t.Errorf("generated token fails validation: %v", err)
	}

	other, _ := GenerateAPIToken()
	if tok == other {
		t.Error("two generated tokens should differ")
	}
}

func TestGeneratePasswordAndSecret(t *testing.T) {
	pw, err := GeneratePassword()
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if raw, err := base64.RawURLEncoding.DecodeString(pw); err != nil || len(raw) != passwordBytes {
		t.Errorf("password %q: want %d url-safe bytes (err=%v)", pw, passwordBytes, err)
	}

	secret, err := GenerateSecretKey()
	if err != nil {
		t.Fatalf("GenerateSecretKey: %v", err)
	}
	if len(secret) < MinSecretKeyLength {
		t.Errorf("secret length %d is below %d", len(secret), MinSecretKeyLength)
	}
	if _, err := NewCookieCodec(secret, nil); err != nil {
		t.Errorf("generated secret rejected by cookie codec: %v", err)
	}
}
