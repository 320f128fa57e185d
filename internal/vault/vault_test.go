package vault

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const kvBody = `{
  "data": {
    "data": {"db_password": "s3cret", "port": 3306},
    "metadata": {"created_time": "2024-01-01T00:00:00Z", "deletion_time": "", "destroyed": false, "version": 1}
  }
}`

func fakeVault(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		if r.Method == http.MethodGet && r.URL.Path == "/v1/secret/data/formcheck" {
			atomic.AddInt32(hits, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(kvBody))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := New(context.Background(), Options{Addr: addr, Token: "root", Log: zap.NewNop().Sugar()})
	require.NoError(t, err)
	return c
}

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:secret/formcheck#csrf_key")
	require.NoError(t, err)
	assert.Equal(t, "secret/formcheck", path)
	assert.Equal(t, "csrf_key", key)

	for _, bad := range []string{"secret/formcheck#k", "vault:secret/formcheck", "vault:secret#k", "vault:#k", "vault:secret/x#"} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrBadRef, bad)
	}
}

func TestResolve(t *testing.T) {
	var hits int32
	srv := fakeVault(t, &hits)
	c := newClient(t, srv.URL)

	got, err := c.Resolve(context.Background(), "vault:secret/formcheck#db_password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	// Second lookup is served from cache.
	_, err = c.Resolve(context.Background(), "vault:secret/formcheck#db_password")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetKVErrors(t *testing.T) {
	var hits int32
	srv := fakeVault(t, &hits)
	c := newClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.GetKV(ctx, "secret/formcheck", "missing", 0)
	assert.ErrorContains(t, err, `key "missing" not found`)

	_, err = c.GetKV(ctx, "secret/formcheck", "port", 0)
	assert.ErrorContains(t, err, "not a string")

	_, err = c.GetKV(ctx, "secret/other", "k", 0)
	assert.Error(t, err)

	_, err = c.GetKV(ctx, "", "k", 0)
	assert.Error(t, err)

	_, err = c.GetKV(ctx, "secret", "k", 0)
	assert.True(t, errors.Is(err, ErrBadRef))
}

func TestIsRef(t *testing.T) {
	assert.True(t, IsRef("vault:secret/a#b"))
	assert.False(t, IsRef("plain"))
}
