package storage

import "context"

// ObjectStore is the persistence contract for dish image binaries.
// Implementations must be safe for concurrent use. Lookup decisions are
// never made by probing a store: the metadata rows in Postgres are the
// source of truth, the store only holds bytes.
type ObjectStore interface {
	// Put writes data under key and returns the public URL serving it.
	// Writing the same key twice is allowed and overwrites in place;
	// keys are content-addressed upstream so the bytes are identical.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// ReadAll returns the stored bytes for key.
	ReadAll(ctx context.Context, key string) ([]byte, error)
	// List returns every key under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// PublicURL maps a key to the URL clients fetch it from.
	PublicURL(key string) string
}
