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

package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/inconshreveable/log15"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// Key prefixes. Objects and packages live in disjoint key spaces of the
// same database.
var (
	objectPrefix  = []byte("o:")
	packagePrefix = []byte("p:")
)

// LevelStore persists objects and packages in a leveldb database.
type LevelStore struct {
	db  *leveldb.DB
	log log15.Logger
}

// NewLevelStore opens (or creates) the database at path.
func NewLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}
	return &LevelStore{db: db, log: log15.New("module", "storage")}, nil
}

// Close releases the database.
func (s *LevelStore) Close() error { return s.db.Close() }

func objectKey(id common.ObjectID) []byte {
	return append(append([]byte{}, objectPrefix...), id.Bytes()...)
}

func packageKey(id common.ObjectID) []byte {
	return append(append([]byte{}, packagePrefix...), id.Bytes()...)
}

// GetObject returns the object with the given ID, or nil if absent.
func (s *LevelStore) GetObject(id common.ObjectID) (*types.Object, error) {
	raw, err := s.db.Get(objectKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var obj types.Object
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode object %s: %w", id.ShortString(), err)
	}
	return &obj, nil
}

// SetObject writes an object.
func (s *LevelStore) SetObject(obj *types.Object) error {
	raw, err := cbor.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode object %s: %w", obj.ID.ShortString(), err)
	}
	return s.db.Put(objectKey(obj.ID), raw, nil)
}

// DeleteObject removes an object.
func (s *LevelStore) DeleteObject(id common.ObjectID) error {
	return s.db.Delete(objectKey(id), nil)
}

// GetPackage returns the package stored at the given ID, or nil if absent.
func (s *LevelStore) GetPackage(id common.ObjectID) (*packages.MovePackage, error) {
	raw, err := s.db.Get(packageKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var pkg packages.MovePackage
	if err := cbor.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("decode package %s: %w", id.ShortString(), err)
	}
	return &pkg, nil
}

// SetPackage writes a package.
func (s *LevelStore) SetPackage(pkg *packages.MovePackage) error {
	raw, err := cbor.Marshal(pkg)
	if err != nil {
		return fmt.Errorf("encode package %s: %w", pkg.StorageID.ShortString(), err)
	}
	return s.db.Put(packageKey(pkg.StorageID), raw, nil)
}

// ApplyEffects commits the object delta of one transaction in a single
// batch.
func (s *LevelStore) ApplyEffects(effects *types.TransactionEffects) error {
	batch := new(leveldb.Batch)
	for id, obj := range effects.Results.WrittenObjects {
		if obj.Type == nil {
			pkg, err := decodePackageObject(obj)
			if err != nil {
				return err
			}
			raw, err := cbor.Marshal(pkg)
			if err != nil {
				return err
			}
			batch.Put(packageKey(id), raw)
			continue
		}
		raw, err := cbor.Marshal(obj)
		if err != nil {
			return err
		}
		batch.Put(objectKey(id), raw)
	}
	for id := range effects.Results.DeletedObjectIDs {
		batch.Delete(objectKey(id))
	}
	if err := s.db.Write(batch, nil); err != nil {
		return err
	}
	s.log.Debug("Committed transaction effects",
		"written", len(effects.Results.WrittenObjects), "deleted", len(effects.Results.DeletedObjectIDs))
	return nil
}

// decodePackageObject recovers the package record embedded in a typeless
// written object.
func decodePackageObject(obj *types.Object) (*packages.MovePackage, error) {
	var pkg packages.MovePackage
	if err := cbor.Unmarshal(obj.Contents, &pkg); err != nil {
		return nil, fmt.Errorf("decode package object %s: %w", obj.ID.ShortString(), err)
	}
	return &pkg, nil
}
