package cache

import (
	"context"

	"storefront-service/internal/domain"
)

// Locker guards a key across processes. Acquire fails with
// domain.ErrCheckoutInProgress while another holder owns the key.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type ProductCache interface {
	Get(ctx context.Context, id uint64) (*domain.Product, bool)
	Set(ctx context.Context, p *domain.Product)
	Invalidate(ctx context.Context, id uint64)
}

var (
	_ Locker       = (*RedisLocker)(nil)
	_ Locker       = (*MemoryLocker)(nil)
	_ ProductCache = (*RedisProductCache)(nil)
	_ ProductCache = NopProductCache{}
)
