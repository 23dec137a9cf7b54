package cache

import (
	"context"
	"time"
)

// NullCache stores nothing, so every catalog lookup is a miss and the model
// list is fetched fresh. It backs --no-cache, an unresolvable cache
// directory, and clients built with a nil store.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a Cache that discards every write.
func NewNullCache() Cache {
	return &NullCache{}
}

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (*NullCache) Delete(context.Context, string) error {
	return nil
}

func (*NullCache) Close() error {
	return nil
}
