package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/o1egl/paseto"
	"github.com/pkg/errors"
)

// SecretKey pads or truncates the configured secret to the 32 bytes paseto v2 needs.
func SecretKey(secret string) []byte {
	return []byte(fmt.Sprintf("%-32s", secret))[:32]
}

// IssueToken mints a local paseto token for subject valid for ttl.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token, err := paseto.NewV2().Encrypt(SecretKey(secret), paseto.JSONToken{
		Jti:        uuid.New().String(),
		Subject:    subject,
		IssuedAt:   now,
		Expiration: now.Add(ttl),
	}, "")
	if err != nil {
		return "", errors.Wrap(err, "failed to encrypt token")
	}
	return token, nil
}

// VerifyToken decrypts the token and checks its expiry.
func VerifyToken(secret, token string) (paseto.JSONToken, error) {
	var footer string
	var claims paseto.JSONToken
	if err := paseto.NewV2().Decrypt(token, SecretKey(secret), &claims, &footer); err != nil {
		return claims, errors.Wrap(err, "failed to decrypt token")
	}
	if err := claims.Validate(paseto.ValidAt(time.Now())); err != nil {
		return claims, errors.Wrap(err, "token rejected")
	}
	return claims, nil
}
