// Package dedup reserves correlation keys so a repeated notification request
// inside the dedup window is answered from the first result.
package dedup

import (
	"context"
	"time"
)

// Store is an atomic check-and-set keyed by correlation key.
//
// Reserve claims key for ttl. When the key is already held, reserved is
// false and prior holds the completed value, or is nil while the first
// request is still in flight.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (reserved bool, prior []byte, err error)
	// Complete stores the final value for a reserved key.
	Complete(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Release drops the key so a later request may retry.
	Release(ctx context.Context, key string) error
}
