// Package bufpool provides pooled fixed-size buffers for stream copies.
// Pooling bounds steady-state memory without serializing every copy
// through a single shared buffer.
package bufpool

import (
	"io"
	"sync"
)

// Size is the length of each pooled copy buffer.
const Size = 32 * 1024

var pool = sync.Pool{
	New: func() any {
		b := make([]byte, Size)
		return &b
	},
}

// Copy streams src to dst through a pooled buffer and returns the number
// of bytes copied.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := pool.Get().(*[]byte)
	defer pool.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}
