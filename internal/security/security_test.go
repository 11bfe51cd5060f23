package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func sign(secret, method, path, body, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + body + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMAC(t *testing.T) {
	secret := "devsecret"
	body := `{"query":"SELECT 1"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := sign(secret, "POST", "/export", body, ts)

	assert.NoError(t, VerifyHMAC(secret, "POST", "/export", body, ts, sig))
	assert.ErrorIs(t, VerifyHMAC(secret, "POST", "/export", body+"x", ts, sig), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyHMAC(secret, "GET", "/export", body, ts, sig), ErrInvalidSignature)
}

func TestVerifyHMACExpired(t *testing.T) {
	secret := "devsecret"
	ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
	sig := sign(secret, "POST", "/export", "", ts)
	assert.ErrorIs(t, VerifyHMAC(secret, "POST", "/export", "", ts, sig), ErrRequestExpired)
}

func TestVerifyHMACNoSecretSkips(t *testing.T) {
	assert.NoError(t, VerifyHMAC("", "POST", "/export", "body", "0", "sig"))
}

func TestVerifyStreamKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sk_live_123"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, VerifyStreamKey(string(hash), "sk_live_123"))
	assert.ErrorIs(t, VerifyStreamKey(string(hash), "sk_live_999"), ErrInvalidStreamKey)
	assert.ErrorIs(t, VerifyStreamKey("", "sk_live_123"), ErrInvalidStreamKey)
}

func TestValidateStreamQuery(t *testing.T) {
	assert.NoError(t, ValidateStreamQuery("SELECT id, deleted_at FROM users WHERE active = 1"))
	assert.NoError(t, ValidateStreamQuery("WITH t AS (SELECT 1) SELECT * FROM t"))

	assert.ErrorIs(t, ValidateStreamQuery("UPDATE users SET x = 1"), ErrNotSelect)
	assert.ErrorIs(t, ValidateStreamQuery("SELECT 1; DROP TABLE users"), ErrMultipleQueries)
	assert.Error(t, ValidateStreamQuery("SELECT * FROM users WHERE id IN (DELETE FROM users)"))
	assert.Error(t, ValidateStreamQuery("SELECT * FROM information_schema.tables"))
}

func TestValidateStreamQueryWordBoundaries(t *testing.T) {
	// Column names containing forbidden words must pass.
	assert.NoError(t, ValidateStreamQuery("SELECT is_deleted, created_at FROM audit"))
	assert.Error(t, ValidateStreamQuery("SELECT * FROM t WHERE 1=1 UNION SELECT LOAD_FILE('/etc/passwd')"))
}
