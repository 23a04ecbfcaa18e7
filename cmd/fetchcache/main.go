package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/stasis-io/fetchcache/internal/app"
)

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "fetchcache",
	Short: "Download files through a write-through offline cache",
	Long: `
fetchcache downloads remote resources and keeps a local copy of every
successful download. When offline, previously fetched resources are
served from the cache without touching the network.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
		os.Exit(0)
	},
}

var rootOptions struct {
	configPath string
	cfg        app.Config
}

func init() {
	pf := cmdRoot.PersistentFlags()
	pf.StringVar(&rootOptions.configPath, "config", "", "path to YAML or JSON config file")
	pf.StringVar(&rootOptions.cfg.StateDir, "state-dir", "", "state directory (default: user cache dir)")
	pf.BoolVar(&rootOptions.cfg.Offline, "offline", false, "serve cached content instead of fetching")
	pf.StringVar(&rootOptions.cfg.UserAgent, "user-agent", "", "User-Agent header for requests")
	pf.IntVar(&rootOptions.cfg.MaxAttempts, "max-attempts", 0, "attempts per download including the first (default 3)")
	pf.DurationVar(&rootOptions.cfg.PerRequestTimeout, "timeout", 0, "per-request timeout (default 30s)")
	pf.IntVar(&rootOptions.cfg.MaxConcurrent, "max-concurrent", 0, "limit concurrent requests (0 = unlimited)")
	pf.StringVar(&rootOptions.cfg.ProxyURL, "proxy", "", "SOCKS5 proxy URL, e.g. socks5://127.0.0.1:1080")
	pf.BoolVarP(&rootOptions.cfg.Verbose, "verbose", "v", false, "verbose logging")
}

// newApp merges config sources (flags > file > env > defaults) and
// builds the transport stack.
func newApp() (*app.App, error) {
	cfg := rootOptions.cfg
	if rootOptions.configPath != "" {
		fc, err := app.LoadConfigFile(rootOptions.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		app.MergeFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return app.New(cfg)
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := cmdRoot.Execute(); err != nil {
		log.Error().Err(err).Msg("fetchcache failed")
		os.Exit(1)
	}
}
