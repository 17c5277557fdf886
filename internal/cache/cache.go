package cache

import (
	"context"
	"time"
)

// BytesCache: минимальный KV-кэш, которого достаточно сервисам.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
