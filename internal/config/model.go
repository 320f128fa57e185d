// internal/config/model.go
//
// Typed configuration model for formcheck.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/formcheck.yaml`                       – primary static file,
//   • `FORMCHECK_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Log section
//

// Log controls the zap sinks.  An empty Dir means `<root>/logs`.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Forms section
//

// Forms points at the definitions directory and the submit timing window.
type Forms struct {
	Dir     string        `koanf:"dir"`
	Watch   bool          `koanf:"watch"`
	MinFill time.Duration `koanf:"min_fill" validate:"gte=0"`
	MaxFill time.Duration `koanf:"max_fill" validate:"omitempty,gtfield=MinFill"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The *template* (`DSN`) is kept in YAML so operators can tweak host, port,
// or flags without touching Vault.  When it contains a single `%s` verb the
// *secret* (`Password`, usually a vault: reference) is injected there.  An
// empty DSN disables the store action and migrations.
type Database struct {
	DSN      string `koanf:"dsn"`
	Password string `koanf:"password" validate:"required_with=DSN"`
}

// Enabled reports whether a database is configured.
func (d Database) Enabled() bool { return d.DSN != "" }

// ResolvedDSN fills the password into the template.
func (d Database) ResolvedDSN() (string, error) {
	switch strings.Count(d.DSN, "%s") {
	case 0:
		return d.DSN, nil
	case 1:
		return fmt.Sprintf(d.DSN, d.Password), nil
	default:
		return "", fmt.Errorf("database.dsn must contain at most one %%s verb")
	}
}

//
// CSRF section
//

// CSRF configures submit tokens.  Key is padded base64 (standard or URL
// alphabet) of at least 32 bytes; empty means a random per-process key,
// which invalidates tokens on restart.
type CSRF struct {
	Key    string        `koanf:"key" validate:"omitempty,base64|base64url"`
	MaxAge time.Duration `koanf:"max_age" validate:"gte=0"`
}

//
// Geo section
//

// Geo points at an optional MaxMind database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Vault section
//

// Vault locates the secrets server.  Empty values fall back to VAULT_ADDR
// and VAULT_TOKEN.
type Vault struct {
	Addr  string `koanf:"addr"  validate:"omitempty,url"`
	Token string `koanf:"token"`
	Renew bool   `koanf:"renew"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // FORMCHECK_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
	Forms    Forms    `koanf:"forms"`
	Database Database `koanf:"database"`
	CSRF     CSRF     `koanf:"csrf"`
	Geo      Geo      `koanf:"geo"`
	Vault    Vault    `koanf:"vault"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

// applyDefaults fills zero values and anchors relative paths at root.
func (c *Config) applyDefaults(root string) {
	c.Paths.Root = root
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Forms.Dir == "" {
		c.Forms.Dir = filepath.Join("conf", "forms")
	}
	if c.CSRF.MaxAge == 0 {
		c.CSRF.MaxAge = 2 * time.Hour
	}
	c.Log.Dir = c.abs(c.Log.Dir)
	c.Forms.Dir = c.abs(c.Forms.Dir)
	if c.Geo.DBPath != "" {
		c.Geo.DBPath = c.abs(c.Geo.DBPath)
	}
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}
