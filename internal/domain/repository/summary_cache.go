package repository

import (
	"context"
)

// SummaryCache is a TTL-bounded key/value store. Entries older than the TTL read as a miss.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}
