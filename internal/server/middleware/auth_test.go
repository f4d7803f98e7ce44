package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zentrolabs/zentro-core/internal/crypto"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	h := Auth(AuthConfig{})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthAPIKey(t *testing.T) {
	h := Auth(AuthConfig{APIKey: "sekret"})(okHandler())

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"bearer ok", "Authorization", "Bearer sekret", http.StatusOK},
		{"x-api-key ok", "X-API-Key", "sekret", http.StatusOK},
		{"wrong key", "X-API-Key", "guess", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
			if tc.header != "" {
				r.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestAuthSignedRequest(t *testing.T) {
	auth := &crypto.HMACAuth{KeyID: "key-1", Secret: "topsecret"}
	h := Auth(AuthConfig{HMAC: auth})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The verifier must leave the body readable for the handler.
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		w.WriteHeader(http.StatusOK)
		w.Write(buf[:n])
	}))

	body := `{"amount":100}`
	headers := auth.HeadersAt(http.MethodPost, "/api/markets/m1/bets", body, time.Now().Unix())

	r := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets", strings.NewReader(body))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String(), "body must be restored after verification")
}

func TestAuthSignedRequestTampered(t *testing.T) {
	auth := &crypto.HMACAuth{KeyID: "key-1", Secret: "topsecret"}
	h := Auth(AuthConfig{HMAC: auth})(okHandler())

	headers := auth.HeadersAt(http.MethodPost, "/api/markets/m1/bets", `{"amount":100}`, time.Now().Unix())

	r := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets", strings.NewReader(`{"amount":999}`))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSignedRequestUnknownKey(t *testing.T) {
	auth := &crypto.HMACAuth{KeyID: "key-1", Secret: "topsecret"}
	h := Auth(AuthConfig{HMAC: auth})(okHandler())

	other := &crypto.HMACAuth{KeyID: "key-2", Secret: "topsecret"}
	headers := other.HeadersAt(http.MethodGet, "/api/markets", "", time.Now().Unix())

	r := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHMACOnlyRejectsUnsigned(t *testing.T) {
	auth := &crypto.HMACAuth{KeyID: "key-1", Secret: "topsecret"}
	h := Auth(AuthConfig{HMAC: auth})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
