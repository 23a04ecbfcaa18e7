package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stasis-io/fetchcache/internal/bufpool"
	"github.com/stasis-io/fetchcache/internal/cache"
	"github.com/stasis-io/fetchcache/internal/store"
	"github.com/stasis-io/fetchcache/internal/transport"
)

// App owns the configured transport stack for one CLI run.
type App struct {
	cfg   Config
	store *store.Store

	// Transport is the caching decorator over the HTTP transport. All
	// CLI operations go through it.
	Transport transport.Transport
}

// New builds the transport stack from cfg.
func New(cfg Config) (*App, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	delegate := &transport.HTTP{
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.PerRequestTimeout,
		RedirectMaxHops:   cfg.RedirectMaxHops,
		MaxConcurrent:     cfg.MaxConcurrent,
		ProxyURL:          cfg.ProxyURL,
	}

	offline := func() bool { return cfg.Offline || EnvOffline() }

	return &App{
		cfg:       cfg,
		store:     st,
		Transport: cache.New(delegate, st, offline),
	}, nil
}

// Get downloads uri into outPath, starting at offset bytes into the
// resource. "-" writes to stdout.
func (a *App) Get(ctx context.Context, uri, outPath string, offset int64) error {
	var dst io.Writer
	if outPath == "-" {
		dst = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		dst = f
	}

	res, err := a.Transport.Download(ctx, uri, dst, offset)
	if err != nil {
		return fmt.Errorf("download %s: %w", uri, err)
	}
	log.Info().Str("uri", uri).Str("out", outPath).Int64("bytes", res.Length).Msg("downloaded")
	return nil
}

// ModTime returns the resource's last-modified timestamp.
func (a *App) ModTime(ctx context.Context, uri string) (time.Time, error) {
	return a.Transport.LastModified(ctx, uri)
}

// Stream copies the resource to w without caching it.
func (a *App) Stream(ctx context.Context, uri string, w io.Writer) error {
	rc, err := a.Transport.OpenStream(ctx, uri)
	if err != nil {
		return fmt.Errorf("open stream %s: %w", uri, err)
	}
	defer rc.Close()
	if _, err := bufpool.Copy(w, rc); err != nil {
		return fmt.Errorf("stream %s: %w", uri, err)
	}
	return nil
}

// Purge empties the cache directory.
func (a *App) Purge() error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	log.Info().Str("dir", a.store.Dir()).Msg("cache cleared")
	return nil
}
