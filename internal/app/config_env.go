package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment
// variables. Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.StateDir == "" {
		cfg.StateDir = os.Getenv("FETCHCACHE_STATE_DIR")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("FETCHCACHE_USER_AGENT")
	}
	if cfg.ProxyURL == "" {
		cfg.ProxyURL = os.Getenv("FETCHCACHE_PROXY")
	}

	if cfg.MaxAttempts == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("FETCHCACHE_MAX_ATTEMPTS"))); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if cfg.MaxConcurrent == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("FETCHCACHE_MAX_CONCURRENT"))); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}
	if cfg.PerRequestTimeout == 0 {
		if s := os.Getenv("FETCHCACHE_TIMEOUT"); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				cfg.PerRequestTimeout = d
			}
		}
	}

	if !cfg.Offline {
		cfg.Offline = EnvOffline()
	}
	if !cfg.Verbose && envBool("FETCHCACHE_VERBOSE") {
		cfg.Verbose = true
	}
}

// EnvOffline reads FETCHCACHE_OFFLINE. It is called per operation by the
// offline provider, so flipping the variable affects a running process.
func EnvOffline() bool {
	return envBool("FETCHCACHE_OFFLINE")
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
