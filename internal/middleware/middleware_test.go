package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name   string
		host   string
		proto  string
		tls    bool
		status int
	}{
		{"plain http redirects", "forms.example.com", "", false, http.StatusPermanentRedirect},
		{"tls passes", "forms.example.com", "", true, http.StatusNoContent},
		{"proxy https passes", "forms.example.com", "https", false, http.StatusNoContent},
		{"localhost passes", "localhost:8080", "", false, http.StatusNoContent},
		{"loopback ip passes", "127.0.0.1:8080", "", false, http.StatusNoContent},
		{"ipv6 loopback passes", "[::1]:8080", "", false, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/api/forms?x=1", nil)
			r.Host = tc.host
			if tc.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			if tc.tls {
				r.TLS = &tls.ConnectionState{}
			}
			rec := httptest.NewRecorder()
			ForceHTTPS(ok).ServeHTTP(rec, r)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusPermanentRedirect {
				assert.Equal(t, "https://forms.example.com/api/forms?x=1", rec.Header().Get("Location"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{
		"Strict-Transport-Security",
		"Content-Security-Policy",
		"X-Frame-Options",
		"X-Content-Type-Options",
		"Referrer-Policy",
		"Permissions-Policy",
	} {
		assert.NotEmpty(t, rec.Header().Get(h), h)
	}
}

func TestSecurityHeadersOverridable(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	Security(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	h := RequestLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnprocessableEntity)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/forms/signup/validate", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	ctx := entry.ContextMap()
	assert.Equal(t, int64(http.StatusUnprocessableEntity), ctx["status"])
	assert.Equal(t, "/api/forms/signup/validate", ctx["path"])
}
