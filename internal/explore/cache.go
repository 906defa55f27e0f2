// Package explore materializes a bounded portion of the remote hierarchy
// graph into a rooted tree.
package explore

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arbolab/wdtree/internal/types"
)

// Service is the remote lookup the explorer depends on. One call returns the
// entity's direct children and its requested attribute values.
type Service interface {
	FetchEntity(ctx context.Context, entityID string) (*types.Entity, error)
}

// Cache memoizes Service responses by entity identifier for the lifetime of
// one expansion run, guaranteeing at most one remote call per distinct
// identifier regardless of how many tree positions reference it. The
// singleflight group collapses concurrent lookups for the same identifier, so
// sibling prefetch never issues duplicate in-flight requests.
type Cache struct {
	service  Service
	group    singleflight.Group
	mutex    sync.Mutex
	entities map[string]*types.Entity
	calls    int
}

// NewCache constructs an empty per-run cache over the provided service.
func NewCache(service Service) *Cache {
	return &Cache{
		service:  service,
		entities: map[string]*types.Entity{},
	}
}

// Fetch returns the entity for the identifier, delegating to the service on
// the first call and serving the stored copy afterwards.
func (cache *Cache) Fetch(ctx context.Context, entityID string) (*types.Entity, error) {
	cache.mutex.Lock()
	if entity, cached := cache.entities[entityID]; cached {
		cache.mutex.Unlock()
		return entity, nil
	}
	cache.mutex.Unlock()

	fetched, fetchError, _ := cache.group.Do(entityID, func() (interface{}, error) {
		cache.mutex.Lock()
		if entity, cached := cache.entities[entityID]; cached {
			cache.mutex.Unlock()
			return entity, nil
		}
		cache.calls++
		cache.mutex.Unlock()

		entity, serviceError := cache.service.FetchEntity(ctx, entityID)
		if serviceError != nil {
			return nil, serviceError
		}
		cache.mutex.Lock()
		cache.entities[entityID] = entity
		cache.mutex.Unlock()
		return entity, nil
	})
	if fetchError != nil {
		return nil, fetchError
	}
	return fetched.(*types.Entity), nil
}

// Calls reports how many lookups reached the underlying service.
func (cache *Cache) Calls() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return cache.calls
}
