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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/params"
)

func newTestCache(t *testing.T, store Store) *Cache {
	c := NewCache(params.TestProtocolConfig(), store, nil)
	t.Cleanup(c.Close)
	return c
}

func TestCacheLoadOnce(t *testing.T) {
	store := newFakeStore()
	id := common.HexToObjectID("0xaa")
	store.add(buildPackage(id, nil, "m"))
	cache := newTestCache(t, store)

	const workers = 16
	results := make([]*VerifiedPackage, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pkg, err := cache.GetPackage(id)
			require.NoError(t, err)
			results[i] = pkg
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, pkg := range results[1:] {
		require.Same(t, results[0], pkg, "all resolutions share one loaded package")
	}
	require.Equal(t, 1, store.loadCount(id), "backend is read once")
	require.Equal(t, 1, cache.Len())
	require.True(t, cache.Contains(id))
}

func TestCacheMissIsNotAnError(t *testing.T) {
	store := newFakeStore()
	cache := newTestCache(t, store)

	pkg, err := cache.GetPackage(common.HexToObjectID("0x404"))
	require.NoError(t, err)
	require.Nil(t, pkg)
	require.Zero(t, cache.Len(), "misses are not cached")
}

func TestCacheVerifierRejectionPropagates(t *testing.T) {
	store := newFakeStore()
	id := common.HexToObjectID("0xbad")
	store.add(buildPackage(id, nil, "m"))

	bad := errors.New("rejected")
	cache := NewCache(params.TestProtocolConfig(), store, VerifierFunc(func(*bytecode.Module) error {
		return bad
	}))
	t.Cleanup(cache.Close)

	_, err := cache.GetPackage(id)
	require.ErrorIs(t, err, bad)
	require.False(t, cache.Contains(id))
}

func TestCacheEvictFrameworkPackages(t *testing.T) {
	cfg := params.TestProtocolConfig()
	store := newFakeStore()
	store.add(buildPackage(cfg.Framework.Framework, nil, "coin"))
	userID := common.HexToObjectID("0xaa")
	store.add(buildPackage(userID, nil, "m"))
	cache := newTestCache(t, store)

	_, err := cache.GetPackage(cfg.Framework.Framework)
	require.NoError(t, err)
	_, err = cache.GetPackage(userID)
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	cache.EvictFrameworkPackages(7)
	require.False(t, cache.Contains(cfg.Framework.Framework))
	require.True(t, cache.Contains(userID), "user packages survive epoch eviction")

	// the next resolution reloads from the backend
	_, err = cache.GetPackage(cfg.Framework.Framework)
	require.NoError(t, err)
	require.Equal(t, 2, store.loadCount(cfg.Framework.Framework))
}

func TestCachePrefetch(t *testing.T) {
	store := newFakeStore()
	a := common.HexToObjectID("0xaa")
	b := common.HexToObjectID("0xbb")
	store.add(buildPackage(a, nil, "m"))
	store.add(buildPackage(b, nil, "m"))
	cache := newTestCache(t, store)

	missing := common.HexToObjectID("0x404")
	require.NoError(t, cache.Prefetch([]common.ObjectID{a, b, missing}))
	require.True(t, cache.Contains(a))
	require.True(t, cache.Contains(b))
	require.False(t, cache.Contains(missing))
	require.Equal(t, 2, cache.Len())
}

func TestCacheArenaHandleStability(t *testing.T) {
	store := newFakeStore()
	a := common.HexToObjectID("0xaa")
	b := common.HexToObjectID("0xbb")
	store.add(buildPackage(a, nil, "alpha", "beta"))
	store.add(buildPackage(b, nil, "gamma"))
	cache := newTestCache(t, store)

	pkgA, err := cache.GetPackage(a)
	require.NoError(t, err)
	pkgB, err := cache.GetPackage(b)
	require.NoError(t, err)

	h, ok := pkgA.Handle("beta")
	require.True(t, ok)
	m := cache.Arena().Module(h)
	require.NotNil(t, m)
	require.Equal(t, "beta", m.Name)

	// loading another package does not move existing modules
	require.Same(t, m, cache.Arena().Module(h))
	gamma, ok := pkgB.Module("gamma")
	require.True(t, ok)
	require.Equal(t, "gamma", gamma.Name)
}
