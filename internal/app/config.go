// Package app wires configuration, the HTTP transport, the store, and
// the caching decorator into a runnable unit for the CLI.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the runtime configuration after flags, file, and environment
// have been merged. Flags win over the file, the file wins over env,
// env wins over defaults.
type Config struct {
	// StateDir is the user-state root; the cache lives in its "cache"
	// subdirectory. Empty means <user-cache-dir>/fetchcache.
	StateDir string
	// Offline forces offline mode for the whole run. The environment
	// variable FETCHCACHE_OFFLINE is additionally polled per operation,
	// so an external agent can flip it while the process runs.
	Offline bool

	UserAgent         string
	MaxAttempts       int
	PerRequestTimeout time.Duration
	RedirectMaxHops   int
	MaxConcurrent     int
	ProxyURL          string

	Verbose bool
}

// ApplyDefaults fills unset fields with working defaults.
func (c *Config) ApplyDefaults() error {
	if strings.TrimSpace(c.StateDir) == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("resolve user cache dir: %w", err)
		}
		c.StateDir = filepath.Join(base, "fetchcache")
	}
	if c.UserAgent == "" {
		c.UserAgent = "fetchcache/1.0 (+https://github.com/stasis-io/fetchcache)"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PerRequestTimeout <= 0 {
		c.PerRequestTimeout = 30 * time.Second
	}
	return nil
}
