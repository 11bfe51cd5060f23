// Package storage persists exported streams: data written to the returned
// writer flows to the destination while the export is still running.
package storage

import (
	"context"
	"io"
)

// Provider is a streaming object store.
type Provider interface {
	// StreamTo returns a writer for the object at key. The channel receives
	// the single storage outcome once the writer is closed.
	StreamTo(ctx context.Context, key string) (io.WriteCloser, <-chan error)

	// Open reads back a stored object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// URL returns a viewable location for the stored object.
	URL(key string) string
}
