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

// Package storage provides the object and package backends consumed by the
// execution core: an in-memory store for tests and light embedding, and a
// leveldb backed store for durable deployments. Both serve reads for the
// executor and apply transaction effects as their write path.
package storage

import (
	"sync"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// MemStore keeps objects and packages in maps. Safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	objects  map[common.ObjectID]*types.Object
	packages map[common.ObjectID]*packages.MovePackage
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects:  make(map[common.ObjectID]*types.Object),
		packages: make(map[common.ObjectID]*packages.MovePackage),
	}
}

// GetObject returns the object with the given ID, or nil if absent.
func (s *MemStore) GetObject(id common.ObjectID) (*types.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[id], nil
}

// SetObject inserts or replaces an object.
func (s *MemStore) SetObject(obj *types.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID] = obj
}

// DeleteObject removes an object.
func (s *MemStore) DeleteObject(id common.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
}

// GetPackage returns the package stored at the given ID, or nil if absent.
func (s *MemStore) GetPackage(id common.ObjectID) (*packages.MovePackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.packages[id], nil
}

// SetPackage inserts a package.
func (s *MemStore) SetPackage(pkg *packages.MovePackage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[pkg.StorageID] = pkg
}

// ApplyEffects commits the object delta of one transaction: written objects
// replace their previous versions, packages land in the package space, and
// deleted IDs disappear.
func (s *MemStore) ApplyEffects(effects *types.TransactionEffects) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, obj := range effects.Results.WrittenObjects {
		if obj.Type == nil {
			pkg, err := decodePackageObject(obj)
			if err != nil {
				return err
			}
			s.packages[id] = pkg
			continue
		}
		s.objects[id] = obj
	}
	for id := range effects.Results.DeletedObjectIDs {
		delete(s.objects, id)
	}
	return nil
}
