// Package auth authenticates transport adapter clients. An adapter logs in
// with the shared token (compared against a bcrypt hash) and receives a
// short-lived JWT for the chat routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// HashToken bcrypt-hashes a plain adapter token. Used at startup when only
// ADAPTER_TOKEN is configured.
func HashToken(token string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyToken compares a presented token against the stored bcrypt hash.
func VerifyToken(hash, token string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return ErrInvalidToken
	}
	return nil
}

type claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

// SignJWT mints a bearer token for an authenticated adapter client.
func SignJWT(secret, client string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseJWT validates a bearer token and returns the client name.
func ParseJWT(secret, tokenString string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return c.Client, nil
}
