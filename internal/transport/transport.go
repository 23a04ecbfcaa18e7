// Package transport defines the download transport contract and provides
// the HTTP implementation.
package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound reports that the remote resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAuthFailed reports that the remote rejected our credentials.
	ErrAuthFailed = errors.New("authentication failed")
)

// Result describes a completed download.
type Result struct {
	// LastModified is the server-reported modification time of the
	// resource. Zero when the server did not report one.
	LastModified time.Time
	// Length is the number of bytes written to the destination.
	Length int64
	// StatusCode is the protocol status code, when the transport has one.
	StatusCode int
}

// Transport fetches remote resources. Implementations must be safe for
// concurrent use.
type Transport interface {
	// Download fetches uri and writes its content to dst, starting at
	// offset bytes into the resource. The returned Result is valid even
	// when err is non-nil, as far as the transport could fill it in.
	Download(ctx context.Context, uri string, dst io.Writer, offset int64) (Result, error)

	// OpenStream returns the resource as a stream. The caller must close
	// it.
	OpenStream(ctx context.Context, uri string) (io.ReadCloser, error)

	// LastModified returns the server-reported modification time of uri.
	LastModified(ctx context.Context, uri string) (time.Time, error)
}
