package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrRequestExpired   = errors.New("request timestamp expired or too far in future")
	ErrInvalidStreamKey = errors.New("invalid stream key")
)

// VerifyHMAC verifies request authenticity with HMAC-SHA256 over
// Method + Path + Body + Timestamp, comparing in constant time. A five
// minute drift window guards against replay. An empty secret disables
// verification (local development).
func VerifyHMAC(secret, method, path, body, timestamp, signature string) error {
	if secret == "" {
		return nil
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	drift := time.Now().Unix() - ts
	if drift < -300 || drift > 300 {
		return ErrRequestExpired
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyStreamKey checks a presented key against the configured bcrypt hash.
func VerifyStreamKey(keyHash, rawKey string) error {
	if keyHash == "" {
		return ErrInvalidStreamKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(rawKey)); err != nil {
		return ErrInvalidStreamKey
	}
	return nil
}
