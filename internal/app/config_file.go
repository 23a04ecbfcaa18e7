package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections
// map naturally to flags and environment variables.
type FileConfig struct {
	StateDir string `yaml:"stateDir" json:"stateDir"`
	Offline  bool   `yaml:"offline" json:"offline"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`

	HTTP struct {
		UserAgent     string        `yaml:"userAgent" json:"userAgent"`
		Timeout       time.Duration `yaml:"timeout" json:"timeout"`
		MaxAttempts   int           `yaml:"maxAttempts" json:"maxAttempts"`
		MaxRedirects  int           `yaml:"maxRedirects" json:"maxRedirects"`
		MaxConcurrent int           `yaml:"maxConcurrent" json:"maxConcurrent"`
		Proxy         string        `yaml:"proxy" json:"proxy"`
	} `yaml:"http" json:"http"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// MergeFileConfig copies set values from fc into cfg, without
// overwriting values already set by flags.
func MergeFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.StateDir == "" && fc.StateDir != "" {
		cfg.StateDir = fc.StateDir
	}
	if fc.Offline {
		cfg.Offline = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	if cfg.UserAgent == "" && fc.HTTP.UserAgent != "" {
		cfg.UserAgent = fc.HTTP.UserAgent
	}
	if cfg.PerRequestTimeout == 0 && fc.HTTP.Timeout > 0 {
		cfg.PerRequestTimeout = fc.HTTP.Timeout
	}
	if cfg.MaxAttempts == 0 && fc.HTTP.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.HTTP.MaxAttempts
	}
	if cfg.RedirectMaxHops == 0 && fc.HTTP.MaxRedirects > 0 {
		cfg.RedirectMaxHops = fc.HTTP.MaxRedirects
	}
	if cfg.MaxConcurrent == 0 && fc.HTTP.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.HTTP.MaxConcurrent
	}
	if cfg.ProxyURL == "" && fc.HTTP.Proxy != "" {
		cfg.ProxyURL = fc.HTTP.Proxy
	}
}
