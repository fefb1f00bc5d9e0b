// Copyright 2025 The sui-sub065 Authors
// This file is part of the sui-sub065 library.
//
// The sui-sub065 library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The sui-sub065 library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the sui-sub065 library. If not, see <http://www.gnu.org/licenses/>.

package packages

import (
	"fmt"
	"sync"

	"github.com/inconshreveable/log15"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/params"
)

// Cache memoizes verified packages by storage address, process wide. A
// package is loaded and verified at most once per storage address: the first
// resolution performs the work under a singleflight group, every concurrent
// and subsequent resolution shares the same *VerifiedPackage.
//
// Entries live for the lifetime of the cache; only framework packages are
// evicted, at epoch boundaries, since a framework upgrade epoch replaces
// their content in place.
type Cache struct {
	cfg      *params.ProtocolConfig
	store    Store
	verifier Verifier
	arena    *ModuleArena
	log      log15.Logger

	mu      sync.RWMutex
	entries map[common.ObjectID]*VerifiedPackage

	group singleflight.Group

	// prefetch pool is shared so concurrent transactions do not spawn
	// unbounded warmup goroutines.
	pool *ants.Pool
}

// NewCache creates a package cache over the given backend. A nil verifier
// selects the structural verifier.
func NewCache(cfg *params.ProtocolConfig, store Store, verifier Verifier) *Cache {
	if verifier == nil {
		verifier = StructuralVerifier()
	}
	pool, _ := ants.NewPool(ants.DefaultAntsPoolSize)
	return &Cache{
		cfg:      cfg,
		store:    store,
		verifier: verifier,
		arena:    NewModuleArena(),
		log:      log15.New("module", "packages"),
		entries:  make(map[common.ObjectID]*VerifiedPackage),
		pool:     pool,
	}
}

// Arena exposes the cache's module arena. Packages published within a
// transaction share it so their module handles resolve uniformly.
func (c *Cache) Arena() *ModuleArena { return c.arena }

// Verifier returns the verifier used for cache admission.
func (c *Cache) Verifier() Verifier { return c.verifier }

// GetPackage returns the verified package at the given storage address, or
// (nil, nil) when the backend has no package there. A corrupt or
// unverifiable package is an error: upstream verification makes it
// unreachable, so observing one is a system invariant violation that aborts
// the whole transaction.
func (c *Cache) GetPackage(id common.ObjectID) (*VerifiedPackage, error) {
	c.mu.RLock()
	pkg, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return pkg, nil
	}

	v, err, _ := c.group.Do(string(id.Bytes()), func() (interface{}, error) {
		// Re-check under the group: a concurrent loader may have finished
		// between the read miss and entering the flight.
		c.mu.RLock()
		pkg, ok := c.entries[id]
		c.mu.RUnlock()
		if ok {
			return pkg, nil
		}
		stored, err := c.store.GetPackage(id)
		if err != nil {
			return nil, fmt.Errorf("package store: %w", err)
		}
		if stored == nil {
			return (*VerifiedPackage)(nil), nil
		}
		loaded, err := LoadPackage(stored, c.verifier, c.arena)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = loaded
		c.mu.Unlock()
		c.log.Debug("Loaded package", "storage", id.ShortString(),
			"original", loaded.OriginalID().ShortString(), "version", loaded.Version(),
			"modules", len(stored.Modules))
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*VerifiedPackage), nil
}

// Prefetch warms the cache for the given storage addresses concurrently.
// Missing packages are not an error here; load failures are.
func (c *Cache) Prefetch(ids []common.ObjectID) error {
	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			done := make(chan error, 1)
			submitErr := c.pool.Submit(func() {
				_, err := c.GetPackage(id)
				done <- err
			})
			if submitErr != nil {
				// Pool saturated or released; do the work inline.
				_, err := c.GetPackage(id)
				return err
			}
			return <-done
		})
	}
	return g.Wait()
}

// EvictFrameworkPackages drops the cache entries of the framework package
// set. Called at epoch boundaries, where a framework upgrade may have
// replaced their content.
func (c *Cache) EvictFrameworkPackages(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, pkg := range c.entries {
		if !c.cfg.Framework.Contains(pkg.OriginalID()) {
			continue
		}
		delete(c.entries, id)
		pkg.release()
		c.log.Info("Evicted framework package", "storage", id.ShortString(), "epoch", epoch)
	}
}

// Len returns the number of cached packages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Contains reports whether a storage address has a cache entry, without
// triggering a load.
func (c *Cache) Contains(id common.ObjectID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Close releases the prefetch pool.
func (c *Cache) Close() {
	c.pool.Release()
}
