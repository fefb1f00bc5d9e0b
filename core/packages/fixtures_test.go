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
	"sync"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
)

// fakeStore is an in-memory Store that counts backend reads.
type fakeStore struct {
	mu    sync.Mutex
	pkgs  map[common.ObjectID]*MovePackage
	loads map[common.ObjectID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pkgs:  make(map[common.ObjectID]*MovePackage),
		loads: make(map[common.ObjectID]int),
	}
}

func (s *fakeStore) GetPackage(id common.ObjectID) (*MovePackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads[id]++
	return s.pkgs[id], nil
}

func (s *fakeStore) add(pkg *MovePackage) *MovePackage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkgs[pkg.StorageID] = pkg
	return pkg
}

func (s *fakeStore) loadCount(id common.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[id]
}

// testModule builds a minimal valid module: one struct and one public
// function.
func testModule(name string, addr common.Address) *bytecode.Module {
	return &bytecode.Module{
		Name:    name,
		Address: addr,
		Structs: []bytecode.StructDef{{
			Name:      "Item",
			Abilities: bytecode.AbilitySet(bytecode.AbilityStore | bytecode.AbilityDrop),
			Fields: []bytecode.Field{
				{Name: "value", Type: bytecode.SigU64Type()},
			},
		}},
		Functions: []bytecode.FnDef{{
			Name:       "noop",
			Visibility: bytecode.Public,
			Code:       []bytecode.Instruction{bytecode.Ins(bytecode.RET)},
		}},
	}
}

// buildPackage builds the stored form of an initial package with the given
// module names.
func buildPackage(id common.ObjectID, deps map[common.ObjectID]UpgradeInfo, names ...string) *MovePackage {
	moduleBytes := make(map[string][]byte, len(names))
	var decoded []*bytecode.Module
	for _, name := range names {
		m := testModule(name, id.Address())
		bz, err := bytecode.EncodeModule(m)
		if err != nil {
			panic(err)
		}
		moduleBytes[name] = bz
		decoded = append(decoded, m)
	}
	return NewInitialPackage(id, moduleBytes, decoded, deps)
}

// buildUpgrade builds the stored form of the next version of prev at a new
// storage address.
func buildUpgrade(prev *MovePackage, id common.ObjectID, deps map[common.ObjectID]UpgradeInfo, names ...string) *MovePackage {
	moduleBytes := make(map[string][]byte, len(names))
	var decoded []*bytecode.Module
	for _, name := range names {
		m := testModule(name, id.Address())
		bz, err := bytecode.EncodeModule(m)
		if err != nil {
			panic(err)
		}
		moduleBytes[name] = bz
		decoded = append(decoded, m)
	}
	return NewUpgradedPackage(prev, id, moduleBytes, decoded, deps)
}
