// Package config builds the process configuration from the environment.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "BMD"

// config keys, read as BMD_<KEY> from the environment.
const (
	keySecret = "secret"
	keyDBPath = "db_path"
	keyAddr   = "addr"
	keyPrefix = "prefix"
)

const (
	defaultAddr   = ":4000"
	defaultDBPath = "bookmarks.db"
	defaultPrefix = "/"
)

var ErrSecretMissing = errors.New("shared secret not set")

// Config is the process-wide configuration. It is built once at startup and
// passed explicitly into the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	Secret string // shared secret checked on every mutation
	DBPath string // path to the SQLite database file
	Addr   string // "host:port" or "unix:/path/to.sock"
	Prefix string // route prefix the API is mounted under
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault(keyAddr, defaultAddr)
	v.SetDefault(keyDBPath, defaultDBPath)
	v.SetDefault(keyPrefix, defaultPrefix)

	cfg := &Config{
		Secret: v.GetString(keySecret),
		DBPath: v.GetString(keyDBPath),
		Addr:   v.GetString(keyAddr),
		Prefix: normalizePrefix(v.GetString(keyPrefix)),
	}

	if cfg.Secret == "" {
		return nil, ErrSecretMissing
	}

	return cfg, nil
}

// UnixSocket returns the socket path and true when Addr selects a unix
// listener.
func (c *Config) UnixSocket() (string, bool) {
	p, ok := strings.CutPrefix(c.Addr, "unix:")
	return p, ok
}

func normalizePrefix(p string) string {
	if p == "" {
		return defaultPrefix
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}

	return p
}
