package auth

import (
	"testing"
	"time"
)

func TestTokenHashRoundtrip(t *testing.T) {
	hash, err := HashToken("adapter-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyToken(hash, "adapter-secret"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyToken(hash, "wrong-secret"); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestJWTRoundtrip(t *testing.T) {
	token, err := SignJWT("jwt-secret", "telegram-adapter", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	client, err := ParseJWT("jwt-secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if client != "telegram-adapter" {
		t.Fatalf("expected client claim, got %q", client)
	}

	if _, err := ParseJWT("other-secret", token); err == nil {
		t.Fatalf("expected signature failure with wrong secret")
	}
}

func TestJWTExpired(t *testing.T) {
	token, err := SignJWT("jwt-secret", "telegram-adapter", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT("jwt-secret", token); err == nil {
		t.Fatalf("expected expiry failure")
	}
}
