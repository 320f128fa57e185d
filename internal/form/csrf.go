// internal/form/csrf.go
//
// formcheck – Forms subsystem: stateless CSRF token utilities.
//
// Context
//   GET /api/forms/{id} hands the client a token that must come back with
//   the submit request.  The token is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with the configured secret.
//
//   The issue time doubles as the form render time, so the submitter can
//   reject forms filled in suspiciously fast or left open too long without a
//   second hidden input.
//
// Workflow
//   •  Issue()      → token string.
//   •  Verify(tok)  → issue time, or ErrBadToken on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size // nonce + ts + sig
)

// ErrBadToken covers every token failure: encoding, signature, or age.
var ErrBadToken = errors.New("invalid form token")

// Tokens issues and verifies CSRF tokens.  Zero value is invalid.
type Tokens struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewTokens returns a token source.  secret must be at least 32 bytes; when
// nil a random key is generated, which resets on restart.
func NewTokens(secret []byte, maxAge time.Duration) (*Tokens, error) {
	if secret == nil {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("csrf secret must be at least 32 bytes, got %d", len(secret))
	}
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	return &Tokens{secret: secret, maxAge: maxAge, now: time.Now}, nil
}

// DecodeSecret parses a base64 key from configuration.  Standard and URL
// alphabets are accepted, padded or raw, so `openssl rand -base64 32`
// output works as-is.
func DecodeSecret(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	var err error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		var b []byte
		if b, err = enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("csrf key: %w", err)
}

// Issue creates a new token.  Call once per form fetch.
func (t *Tokens) Issue() (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(t.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, t.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify checks the signature and age of tok and returns its issue time.
func (t *Tokens) Verify(tok string) (time.Time, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return time.Time{}, ErrBadToken
	}

	nonce := raw[:nonceBytes]
	tsBytes := raw[nonceBytes : nonceBytes+8]
	sig := raw[nonceBytes+8:]

	if !hmac.Equal(sig, t.sign(nonce, tsBytes)) {
		return time.Time{}, ErrBadToken
	}

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := t.now()
	// Future timestamp (clock skew) or older than maxAge.
	if now.Sub(issued) > t.maxAge || issued.Sub(now) > time.Minute {
		return time.Time{}, ErrBadToken
	}
	return issued, nil
}

func (t *Tokens) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
