// Package cache decorates a transport with a write-through disk cache.
// Every successful download is persisted under a collision-safe encoding
// of its URI; when the process is offline, cached bytes are served
// without touching the network.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/stasis-io/fetchcache/internal/bufpool"
	"github.com/stasis-io/fetchcache/internal/cachekey"
	"github.com/stasis-io/fetchcache/internal/store"
	"github.com/stasis-io/fetchcache/internal/transport"
)

// OfflineFunc reports whether the process is currently offline. It is
// polled once per operation and never cached across calls.
type OfflineFunc func() bool

// CachingTransport implements transport.Transport by delegating to an
// inner transport and persisting every successful download to a store.
//
// Cache-local failures are never surfaced: a broken cache entry falls
// back to the network, a failed cache write leaves the entry stale or
// absent for next time. Only the delegate's own status reaches the
// caller, with the one exception of the synthetic success served from
// the cache while offline.
type CachingTransport struct {
	delegate transport.Transport
	store    *store.Store
	offline  OfflineFunc

	// group collapses concurrent fetches of the same URI and offset
	// into one delegate call. Each caller still gets the full content
	// copied to its own destination.
	group singleflight.Group
}

// New returns a caching decorator around delegate. offline may be nil,
// in which case the transport is always considered online.
func New(delegate transport.Transport, st *store.Store, offline OfflineFunc) *CachingTransport {
	if offline == nil {
		offline = func() bool { return false }
	}
	return &CachingTransport{delegate: delegate, store: st, offline: offline}
}

// EntryPath returns the on-disk location of the cache entry for uri.
func (c *CachingTransport) EntryPath(uri string) string {
	return c.store.Locate(cachekey.Encode(uri))
}

type fetched struct {
	content []byte
	res     transport.Result
}

// Download implements transport.Transport.
//
// Offline with a readable cache entry, the entry is copied to dst and a
// synthetic success is returned. Any failure on that path falls through
// to the delegate instead of surfacing. Online (or after a fall-through)
// the delegate downloads into a private staging buffer; on success the
// bytes are fanned out to dst and to the cache entry, which is stamped
// with the server-reported modification time. On failure any existing
// entry for the URI is removed, best effort, so a stale entry cannot
// outlive a confirmed-failed refresh.
func (c *CachingTransport) Download(ctx context.Context, uri string, dst io.Writer, offset int64) (transport.Result, error) {
	path := c.EntryPath(uri)

	if c.offline() {
		if content, err := c.store.Read(path); err == nil {
			if n, err := bufpool.Copy(dst, bytes.NewReader(content)); err == nil {
				res := transport.Result{Length: n}
				if mod, err := c.store.ModTime(path); err == nil {
					res.LastModified = mod
				}
				return res, nil
			}
		} else if errors.Is(err, store.ErrNotFound) {
			log.Debug().Str("uri", uri).Msg("offline with no cache entry; trying the network")
		} else {
			log.Warn().Err(err).Str("uri", uri).Msg("cache entry unreadable; falling back to network")
		}
	}

	v, err, _ := c.group.Do(fmt.Sprintf("%s|%d", path, offset), func() (any, error) {
		return c.fetch(ctx, uri, path, offset)
	})
	f, _ := v.(*fetched)
	if f == nil {
		f = &fetched{}
	}
	if err != nil {
		return f.res, err
	}

	n, cerr := bufpool.Copy(dst, bytes.NewReader(f.content))
	if cerr != nil {
		return f.res, fmt.Errorf("write destination: %w", cerr)
	}
	res := f.res
	res.Length = n
	return res, nil
}

// fetch runs the delegate into a staging buffer and settles the cache
// entry for uri: written and stamped on success, removed best-effort on
// failure. The delegate's result and error pass through unchanged.
func (c *CachingTransport) fetch(ctx context.Context, uri, path string, offset int64) (*fetched, error) {
	var staging bytes.Buffer
	res, err := c.delegate.Download(ctx, uri, &staging, offset)
	if err != nil {
		if c.store.Remove(path) == store.DeleteFailed {
			log.Warn().Str("uri", uri).Msg("could not remove stale cache entry")
		}
		return &fetched{res: res}, err
	}

	content := staging.Bytes()
	if werr := c.store.Write(path, content); werr != nil {
		log.Warn().Err(werr).Str("uri", uri).Msg("cache write failed; entry stays stale or absent")
	} else if !res.LastModified.IsZero() {
		if serr := c.store.SetModTime(path, res.LastModified); serr != nil {
			log.Debug().Err(serr).Str("uri", uri).Msg("could not stamp cache entry")
		}
	}
	return &fetched{content: content, res: res}, nil
}

// OpenStream implements transport.Transport. Streams always delegate:
// their length and cacheability are unknown up front, so they are never
// buffered into the cache.
func (c *CachingTransport) OpenStream(ctx context.Context, uri string) (io.ReadCloser, error) {
	return c.delegate.OpenStream(ctx, uri)
}

// LastModified implements transport.Transport. Offline with a cache
// entry present, the entry's stored modification time is returned
// without contacting the network. In every other case, including
// offline with no entry, the call delegates.
func (c *CachingTransport) LastModified(ctx context.Context, uri string) (time.Time, error) {
	if c.offline() {
		if mod, err := c.store.ModTime(c.EntryPath(uri)); err == nil {
			return mod, nil
		}
	}
	return c.delegate.LastModified(ctx, uri)
}
