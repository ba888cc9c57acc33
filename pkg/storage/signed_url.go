package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token validation failures. Handlers map all of them to 401 without
// leaking which check tripped.
var (
	ErrTokenMalformed = errors.New("storage: malformed download token")
	ErrTokenSignature = errors.New("storage: download token signature mismatch")
	ErrTokenExpired   = errors.New("storage: download token expired")
)

// SignedURLSigner mints and verifies HMAC download tokens so export files
// can be fetched without a session. A token encodes the job ID, expiry and
// file path; the signature covers exactly the transmitted prefix.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner builds a signer. A non-positive TTL defaults to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// TTL reports how long generated tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate mints a token for the job's stored file.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("storage: jobID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("storage: signing secret missing")
	}

	expiresAt := time.Now().Add(s.ttl)
	prefix := strings.Join([]string{
		jobID,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}, ".")

	return prefix + "." + s.sign(prefix), expiresAt, nil
}

// Parse verifies a token and returns the embedded job ID, path and expiry.
// allowExpired skips the expiry check, which cleanup paths need.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx < 0 {
		return "", "", time.Time{}, ErrTokenMalformed
	}
	prefix, sig := token[:idx], token[idx+1:]

	if !hmac.Equal([]byte(s.sign(prefix)), []byte(sig)) {
		return "", "", time.Time{}, ErrTokenSignature
	}

	parts := strings.Split(prefix, ".")
	if len(parts) != 3 {
		return "", "", time.Time{}, ErrTokenMalformed
	}

	expUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: bad expiry", ErrTokenMalformed)
	}
	expiresAt := time.Unix(expUnix, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%w: bad path", ErrTokenMalformed)
	}

	return parts[0], string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(prefix string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(prefix))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
