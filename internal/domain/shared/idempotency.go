package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a payment submission key blocks a resubmission.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers payment submission keys so a retried request
// is not applied twice, and which receipt the first request produced.
type IdempotencyStore interface {
	// Claim reserves key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete attaches the receipt number to a claimed key. The claim keeps
	// its original expiry.
	Complete(ctx context.Context, key, receiptNumber string) error

	// Lookup reports whether key is held and the receipt recorded for it.
	// The receipt is empty while the claiming request is still in flight.
	Lookup(ctx context.Context, key string) (receiptNumber string, held bool, err error)

	// Release frees a claimed key after the payment failed,
	// so the client may retry with the same key.
	Release(ctx context.Context, key string) error

	Close() error
}
