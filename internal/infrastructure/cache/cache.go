// Package cache keeps rendered lint reports so repeated requests against an
// unchanged dataset skip the linter.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Cache stores opaque values with a time to live.
type Cache interface {
	// Get returns the value stored under key. The second result is false
	// when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key derives a cache key from a dataset identity (its backend and the UUIDs
// of its sources) and the variant being cached, such as a report format.
// The order of parts does not matter.
func Key(kind string, parts ...string) string {
	sorted := append([]string(nil), parts...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return kind + ":" + hex.EncodeToString(sum[:12])
}
