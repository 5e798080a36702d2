package shared

import (
	"context"
	"time"
)

// IdempotencyStore reserves caller-supplied idempotency keys so that a retried
// createInvoice or recordPayment does not produce a second financial record.
type IdempotencyStore interface {
	// Reserve marks the key as used with a TTL.
	// Returns true if the key was newly reserved, false if it was already taken.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsReserved checks whether the key has already been used
	IsReserved(ctx context.Context, key string) (bool, error)

	// Release frees a key, used when the guarded operation fails before commit
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a reserved key blocks replays. Default: 24 hours.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
