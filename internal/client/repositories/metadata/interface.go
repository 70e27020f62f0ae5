// Package metadata is a small key/value table in the local mirror used for
// client state such as the persisted session token.
package metadata

import (
	"context"
	"time"
)

// Well-known keys.
const (
	KeyAccessToken = "access_token"
	// KeySeededPrefix + owner marks a completed initial pull.
	KeySeededPrefix = "seeded:"
)

type Repository interface {
	// Get returns common.ErrNotFound for an absent key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// GetTime reads a value stored by SetTime. A value that does not parse
	// is reported as common.ErrLocalStoreCorruption.
	GetTime(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}
