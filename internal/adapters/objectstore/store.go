// Package objectstore defines the object storage contract used for usage
// records and its S3 and in-memory implementations.
package objectstore

import "context"

// Store provides write, list and read access to a single bucket.
type Store interface {
	// Put writes body under key, replacing any existing object.
	Put(ctx context.Context, key string, body []byte) error

	// List returns every key starting with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get returns the object stored under key.
	// Returns ErrNotFound if the key is unknown.
	Get(ctx context.Context, key string) ([]byte, error)
}
