package middleware

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zentrolabs/zentro-core/internal/crypto"
)

// maxSignedBodySize bounds how much of a request body the HMAC verifier
// will buffer.
const maxSignedBodySize = 1 << 20

// AuthConfig carries the credentials the auth middleware validates against.
// An empty APIKey with a nil HMAC disables authentication entirely.
type AuthConfig struct {
	// APIKey is matched against a Bearer token or the X-API-Key header.
	APIKey string

	// HMAC, when set, lets clients authenticate with signed requests
	// (X-Zentro-* headers) instead of the static key.
	HMAC *crypto.HMACAuth
}

// Auth returns middleware that validates API requests. Requests carrying
// X-Zentro-Signature are verified as HMAC-signed requests; all others fall
// back to the static API key check.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.APIKey == "" && cfg.HMAC == nil {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.HMAC != nil && r.Header.Get(crypto.HeaderSignature) != "" {
				if !verifySigned(w, r, cfg.HMAC) {
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if cfg.APIKey == "" {
				writeUnauthorized(w, "signed request required")
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIKey)) != 1 {
				writeUnauthorized(w, "invalid authentication token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// verifySigned validates the X-Zentro-* signature headers against the
// request. The body is buffered and restored so the handler can still read
// it. Reports false after writing the error response.
func verifySigned(w http.ResponseWriter, r *http.Request, auth *crypto.HMACAuth) bool {
	keyID := r.Header.Get(crypto.HeaderKey)
	if subtle.ConstantTimeCompare([]byte(keyID), []byte(auth.KeyID)) != 1 {
		writeUnauthorized(w, "unknown signing key")
		return false
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxSignedBodySize+1))
		if err != nil || len(body) > maxSignedBodySize {
			writeUnauthorized(w, "unreadable or oversized request body")
			return false
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	err := auth.Verify(
		r.Method,
		r.URL.Path,
		string(body),
		r.Header.Get(crypto.HeaderTimestamp),
		r.Header.Get(crypto.HeaderSignature),
		time.Now(),
	)
	if err != nil {
		writeUnauthorized(w, "invalid request signature")
		return false
	}
	return true
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
