package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the result issued for a client-supplied request key,
// so a retried request is answered with the first result instead of a new one
type IdempotencyStore interface {
	// Claim stores value under key unless the key is already held.
	// It returns the value held after the call and whether this call stored it.
	Claim(ctx context.Context, key, value string, ttl time.Duration) (held string, claimed bool, err error)

	// Lookup returns the value held under key, if any
	Lookup(ctx context.Context, key string) (value string, found bool, err error)

	// Close closes the store and releases resources
	Close() error
}
