package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	password := "testpassword123"
	hash, err := HashPasswordCost(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == "" {
		t.Error("Hash should not be empty")
	}
	if hash == password {
		t.Error("Hash should not equal original password")
	}
}

func TestHashPassword_DefaultCost(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != bcryptCost {
		t.Errorf("Expected cost %d, got %d", bcryptCost, cost)
	}
}

func TestCheckPassword(t *testing.T) {
	password := "testpassword123"
	hash, err := HashPasswordCost(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	if err := CheckPassword(hash, password); err != nil {
		t.Error("CheckPassword should return nil for correct password")
	}
	if err := CheckPassword(hash, "wrongpassword"); err == nil {
		t.Error("CheckPassword should return error for wrong password")
	}
}

func TestIsBcryptHash(t *testing.T) {
	hash, err := HashPasswordCost("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !IsBcryptHash(hash) {
		t.Error("expected bcrypt hash to be detected")
	}
	if IsBcryptHash("secret") {
		t.Error("plaintext must not be detected as a hash")
	}
	if IsBcryptHash("") {
		t.Error("empty string must not be detected as a hash")
	}
}
