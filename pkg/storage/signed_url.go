package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrBadToken is returned when a token is malformed or its signature
	// does not verify.
	ErrBadToken = errors.New("invalid download token")
	// ErrTokenExpired is returned when a valid token is past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

type downloadClaims struct {
	JobID   string `json:"j"`
	Path    string `json:"p"`
	Expires int64  `json:"exp"`
}

// SignedURLSigner mints and verifies HMAC-signed download tokens so export
// files can be fetched without an authenticated session.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer. A non-positive ttl falls back to
// 24 hours.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate mints a token binding the job ID to its stored file path.
func (s *SignedURLSigner) Generate(jobID, relPath string) (string, time.Time, error) {
	if jobID == "" || relPath == "" {
		return "", time.Time{}, errors.New("job id and file path are required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret is not configured")
	}

	expiresAt := time.Now().Add(s.ttl)
	claims, err := json.Marshal(downloadClaims{JobID: jobID, Path: relPath, Expires: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, err
	}

	body := base64.RawURLEncoding.EncodeToString(claims)
	token := body + "." + s.sign(body)
	return token, expiresAt, nil
}

// Parse verifies a token and returns the claims it carries. Expiry is not
// enforced when allowExpired is set, so cleanup routines can still resolve
// stale tokens to their files.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	body, sig, found := strings.Cut(token, ".")
	if !found || body == "" || sig == "" {
		return "", "", time.Time{}, ErrBadToken
	}
	if !hmac.Equal([]byte(s.sign(body)), []byte(sig)) {
		return "", "", time.Time{}, ErrBadToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return "", "", time.Time{}, ErrBadToken
	}
	var claims downloadClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return "", "", time.Time{}, ErrBadToken
	}

	expiresAt = time.Unix(claims.Expires, 0)
	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, ErrTokenExpired
	}
	return claims.JobID, claims.Path, expiresAt, nil
}

func (s *SignedURLSigner) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body)) //nolint:errcheck
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
