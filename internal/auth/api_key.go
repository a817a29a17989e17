package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	apiTokenBytes  = 32
	passwordBytes  = 16
	secretKeyBytes = 32
)

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// GenerateAPIToken returns 32 random bytes in standard base64, the format the device API
// clients are provisioned with.
func GenerateAPIToken() (string, error) {
	b, err := randomBytes(apiTokenBytes)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// GeneratePassword returns 16 random bytes, URL-safe base64 without padding.
func GeneratePassword() (string, error) {
	b, err := randomBytes(passwordBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateSecretKey returns a cookie signing key (32 random bytes, URL-safe base64).
func GenerateSecretKey() (string, error) {
	b, err := randomBytes(secretKeyBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
