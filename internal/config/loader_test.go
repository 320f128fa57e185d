package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Resolve(_ context.Context, ref string) (string, error) {
	if v, ok := m[ref]; ok {
		return v, nil
	}
	return "", errors.New("no such secret")
}

func writeConf(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "formcheck.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()
	cfg, err := LoadFrom(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(root, "logs"), cfg.Log.Dir)
	assert.Equal(t, filepath.Join(root, "conf", "forms"), cfg.Forms.Dir)
	assert.Equal(t, 2*time.Hour, cfg.CSRF.MaxAge)
	assert.False(t, cfg.Database.Enabled())
	assert.Same(t, cfg, Get())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	root := writeConf(t, `
http:
  listen_addr: "127.0.0.1:9000"
forms:
  dir: /srv/forms
  watch: true
  min_fill: 2s
  max_fill: 1h
log:
  level: debug
`)
	t.Setenv("FORMCHECK_HTTP__LISTEN_ADDR", "127.0.0.1:9100")
	t.Setenv("FORMCHECK_HTTP__FORCE_HTTPS", "true")

	cfg, err := LoadFrom(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.HTTP.ListenAddr)
	assert.True(t, cfg.HTTP.ForceHTTPS)
	assert.Equal(t, "/srv/forms", cfg.Forms.Dir)
	assert.True(t, cfg.Forms.Watch)
	assert.Equal(t, 2*time.Second, cfg.Forms.MinFill)
	assert.Equal(t, time.Hour, cfg.Forms.MaxFill)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadResolvesVaultRefs(t *testing.T) {
	root := writeConf(t, `
database:
  dsn: "formcheck:%s@tcp(db:3306)/formcheck?parseTime=true"
  password: "vault:secret/formcheck#db_password"
vault:
  addr: "https://vault.internal:8200"
`)
	var gotAddr string
	factory := func(_ context.Context, vc Vault) (SecretResolver, error) {
		gotAddr = vc.Addr
		return mapResolver{"vault:secret/formcheck#db_password": "hunter2"}, nil
	}

	cfg, err := LoadFrom(context.Background(), root, factory)
	require.NoError(t, err)
	assert.Equal(t, "https://vault.internal:8200", gotAddr)
	assert.Equal(t, "hunter2", cfg.Database.Password)

	dsn, err := cfg.Database.ResolvedDSN()
	require.NoError(t, err)
	assert.Equal(t, "formcheck:hunter2@tcp(db:3306)/formcheck?parseTime=true", dsn)
}

func TestLoadVaultRefWithoutResolver(t *testing.T) {
	root := writeConf(t, "csrf:\n  key: \"vault:secret/formcheck#csrf_key\"\n")
	_, err := LoadFrom(context.Background(), root, nil)
	assert.ErrorContains(t, err, "csrf.key")
}

func TestLoadValidationFailures(t *testing.T) {
	cases := map[string]string{
		"bad listen addr":       "http:\n  listen_addr: \"not an addr\"\n",
		"bad level":             "log:\n  level: loud\n",
		"dsn without password":  "database:\n  dsn: \"u@tcp(db)/x\"\n",
		"max fill below min":    "forms:\n  min_fill: 10s\n  max_fill: 5s\n",
		"csrf key not base64":   "csrf:\n  key: \"***\"\n",
		"vault addr not an url": "vault:\n  addr: \"::\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), writeConf(t, body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadBrokenYAML(t *testing.T) {
	_, err := LoadFrom(context.Background(), writeConf(t, "http: [\n"), nil)
	assert.Error(t, err)
}

func TestResolvedDSN(t *testing.T) {
	d := Database{DSN: "u:pw@tcp(db)/x"}
	got, err := d.ResolvedDSN()
	require.NoError(t, err)
	assert.Equal(t, "u:pw@tcp(db)/x", got)

	_, err = Database{DSN: "%s:%s@tcp(db)/x"}.ResolvedDSN()
	assert.Error(t, err)
}

func TestRootDirHonoursEnv(t *testing.T) {
	t.Setenv("FORMCHECK_ROOT", "/opt/formcheck")
	assert.Equal(t, "/opt/formcheck", rootDir())
}
