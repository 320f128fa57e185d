// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/formcheck.yaml` (optional; defaults cover a local run).
  3. Environment variables prefixed `FORMCHECK_`, where `__` maps to “.”
     (e.g., `FORMCHECK_HTTP__LISTEN_ADDR → http.listen_addr`).

Before unmarshalling, every string value that starts with `vault:` is
swapped for the secret it names.  The Vault client is built from the
`vault` section of the same tree, so only one round of lookups happens.

After merging, the tree is unmarshalled into strongly-typed structs,
defaulted, validated, and cached in an `atomic.Pointer` for lock-free
reads.  `Reload()` simply calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay, vault refs.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/formcheck.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/formcheck/internal/vault"
)

const (
	envPrefix = "FORMCHECK_"
	fileName  = "formcheck.yaml"
)

var current atomic.Pointer[Config]

// SecretResolver turns a vault: reference into its value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ResolverFactory builds a SecretResolver from the vault section.  It is
// only called when the tree contains at least one reference.
type ResolverFactory func(ctx context.Context, vc Vault) (SecretResolver, error)

// vaultResolver is the production factory.
func vaultResolver(ctx context.Context, vc Vault) (SecretResolver, error) {
	c, err := vault.New(ctx, vault.Options{Addr: vc.Addr, Token: vc.Token, Renew: vc.Renew})
	if err != nil {
		return nil, err
	}
	return c, nil
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves FORMCHECK_ROOT or climbs directories until
// conf/formcheck.yaml is found.  Falls back to executable heuristic for
// production layout.
func rootDir() string {
	if r := os.Getenv("FORMCHECK_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", fileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault references,
// validates, and caches Config.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, rootDir(), vaultResolver)
}

// LoadFrom is Load with an explicit root and resolver factory.  A nil
// factory makes any vault: reference an error.
func LoadFrom(ctx context.Context, root string, newResolver ResolverFactory) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", fileName)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml absent, using defaults", "file", yamlPath)
	} else {
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: FORMCHECK_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, newResolver); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.applyDefaults(root)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"forms_dir", cfg.Forms.Dir,
		"database", cfg.Database.Enabled(),
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault refs ──────────────────────────────────*/

// resolveSecrets replaces vault: string values in k, in key order.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, newResolver ResolverFactory) error {
	var refs []string
	for key, val := range k.All() {
		if s, ok := val.(string); ok && vault.IsRef(s) {
			refs = append(refs, key)
		}
	}
	if len(refs) == 0 {
		return nil
	}
	if newResolver == nil {
		return fmt.Errorf("config: %s is a vault reference but no resolver is available", refs[0])
	}
	sort.Strings(refs)

	var vc Vault
	if err := k.Unmarshal("vault", &vc); err != nil {
		return fmt.Errorf("config: vault section: %w", err)
	}
	res, err := newResolver(ctx, vc)
	if err != nil {
		return fmt.Errorf("config: vault client: %w", err)
	}

	for _, key := range refs {
		ref := k.String(key)
		val, err := res.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
