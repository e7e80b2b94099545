package cart

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/dmarceau/storefront-backend/pkg/errors"
	"github.com/dmarceau/storefront-backend/pkg/redis"
)

// Cache is the device-local cart store. Get never fails on a missing entry;
// it hands back an empty cart so first-touch mutations need no special case.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Put(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache builds the Redis-backed cart cache.
func NewRedisCache(client *redis.Client) (Cache, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis client required")
	}
	return &redisCache{client: client}, nil
}

func (c *redisCache) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := c.client.Get(ctx, c.client.CartKey(userID.String()))
	if err != nil {
		if redis.IsNil(err) {
			return NewCart(userID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart cache")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cached cart")
	}
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	return &cart, nil
}

func (c *redisCache) Put(ctx context.Context, cart *Cart) error {
	if cart == nil || cart.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart with user id required")
	}
	payload, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := c.client.Set(ctx, c.client.CartKey(cart.UserID.String()), payload, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart cache")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := c.client.Del(ctx, c.client.CartKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart cache")
	}
	return nil
}

type memoryCache struct {
	mu    sync.RWMutex
	carts map[uuid.UUID]*Cart
}

// NewMemoryCache builds an in-process cart cache for tests and single-node
// deployments.
func NewMemoryCache() Cache {
	return &memoryCache{carts: make(map[uuid.UUID]*Cart)}
}

func (c *memoryCache) Get(_ context.Context, userID uuid.UUID) (*Cart, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cart, ok := c.carts[userID]; ok {
		return cart.Clone(), nil
	}
	return NewCart(userID), nil
}

func (c *memoryCache) Put(_ context.Context, cart *Cart) error {
	if cart == nil || cart.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart with user id required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carts[cart.UserID] = cart.Clone()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
	return nil
}
