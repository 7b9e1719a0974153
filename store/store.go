// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store resolves content-addressed items by target address,
// mirroring the collaborator contract in §6 ("Store: read(Target) ->
// (ok, Item) | err").
package store

import (
	"context"
	"fmt"

	"github.com/luxfi/cache/lru"
	"github.com/luxfi/metric"

	"github.com/luxfi/poda/bundle"
)

// MessageStore resolves the item most recently addressed to target, if any.
// A false ok with a nil error means "not found", not a failure.
type MessageStore interface {
	ReadMessage(ctx context.Context, target bundle.Address) (*bundle.Item, bool, error)
}

// CachedMessageStore wraps a MessageStore with an LRU cache keyed by target
// address, mirroring warp.CachedValidatorState: the aggregator's push path
// (FindProcess) resolves the same handful of process definitions on every
// outbound message, so an uncached lookup would hit the backing store once
// per message instead of once per process.
type CachedMessageStore struct {
	inner   MessageStore
	cache   *lru.Cache[bundle.Address, *bundle.Item]
	metrics *storeCacheMetrics
}

type storeCacheMetrics struct {
	hits   metric.Counter
	misses metric.Counter
}

// NewCachedMessageStore constructs a CachedMessageStore with the given
// cache capacity. registerer may be nil, in which case cache metrics are
// not exported.
func NewCachedMessageStore(inner MessageStore, capacity int, registerer metric.Registerer) (*CachedMessageStore, error) {
	c := &CachedMessageStore{
		inner: inner,
		cache: lru.NewCache[bundle.Address, *bundle.Item](capacity),
	}
	if registerer == nil {
		return c, nil
	}

	metrics := &storeCacheMetrics{
		hits: metric.NewCounter(metric.CounterOpts{
			Name: "poda_store_cache_hits",
			Help: "number of message store cache hits",
		}),
		misses: metric.NewCounter(metric.CounterOpts{
			Name: "poda_store_cache_misses",
			Help: "number of message store cache misses",
		}),
	}
	if err := registerer.Register(metric.AsCollector(metrics.hits)); err != nil {
		return nil, fmt.Errorf("failed to register store cache hits metric: %w", err)
	}
	if err := registerer.Register(metric.AsCollector(metrics.misses)); err != nil {
		return nil, fmt.Errorf("failed to register store cache misses metric: %w", err)
	}
	c.metrics = metrics
	return c, nil
}

// ReadMessage implements MessageStore, serving from cache where possible.
// Negative lookups (ok == false) are intentionally not cached: an item
// addressed to target may arrive after the miss.
func (c *CachedMessageStore) ReadMessage(ctx context.Context, target bundle.Address) (*bundle.Item, bool, error) {
	if cached, ok := c.cache.Get(target); ok {
		if c.metrics != nil {
			c.metrics.hits.Inc()
		}
		return cached, true, nil
	}
	if c.metrics != nil {
		c.metrics.misses.Inc()
	}

	item, ok, err := c.inner.ReadMessage(ctx, target)
	if err != nil || !ok {
		return nil, false, err
	}
	c.cache.Put(target, item)
	return item, true, nil
}

// MapStore is an in-memory MessageStore keyed by target address, suitable
// for tests and for a single-node device
// embedding where no external index exists yet.
type MapStore struct {
	byTarget map[bundle.Address]*bundle.Item
}

// NewMapStore constructs an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{byTarget: make(map[bundle.Address]*bundle.Item)}
}

// Put indexes item under target, overwriting any previous entry.
func (m *MapStore) Put(target bundle.Address, item *bundle.Item) {
	m.byTarget[target] = item
}

// ReadMessage implements MessageStore.
func (m *MapStore) ReadMessage(_ context.Context, target bundle.Address) (*bundle.Item, bool, error) {
	item, ok := m.byTarget[target]
	return item, ok, nil
}
