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

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
)

// VerifiedPackage is the loaded, verified in-memory form of one package
// version. It is immutable after construction and may be shared freely
// across concurrently executing transactions.
type VerifiedPackage struct {
	pkg         *MovePackage
	arena       *ModuleArena
	slot        uint32
	moduleIndex map[string]uint32
	typeOrigins map[[2]string]common.ObjectID
}

// LoadPackage decodes and verifies the modules of a stored package and
// places them into the arena. It is invoked by the cache on first resolution
// of a storage address, and by the Publish/Upgrade commands for packages
// that are not yet durable.
func LoadPackage(pkg *MovePackage, verifier Verifier, arena *ModuleArena) (*VerifiedPackage, error) {
	names := pkg.ModuleNames()
	decoded := make([]*bytecode.Module, 0, len(names))
	index := make(map[string]uint32, len(names))
	for _, name := range names {
		m, err := bytecode.DecodeModule(pkg.Modules[name])
		if err != nil {
			return nil, fmt.Errorf("package %s module %s: %w", pkg.StorageID.ShortString(), name, err)
		}
		if m.Name != name {
			return nil, fmt.Errorf("package %s: module stored under %q declares name %q",
				pkg.StorageID.ShortString(), name, m.Name)
		}
		if err := verifier.Verify(m); err != nil {
			return nil, fmt.Errorf("package %s module %s: %w", pkg.StorageID.ShortString(), name, err)
		}
		index[name] = uint32(len(decoded))
		decoded = append(decoded, m)
	}
	return &VerifiedPackage{
		pkg:         pkg,
		arena:       arena,
		slot:        arena.AllocSlot(decoded),
		moduleIndex: index,
		typeOrigins: pkg.TypeOriginMap(),
	}, nil
}

// StorageID returns the address of this package version.
func (p *VerifiedPackage) StorageID() common.ObjectID { return p.pkg.StorageID }

// OriginalID returns the stable address of the package across upgrades.
func (p *VerifiedPackage) OriginalID() common.ObjectID { return p.pkg.OriginalID }

// Version returns the package version number.
func (p *VerifiedPackage) Version() uint64 { return p.pkg.Version }

// Stored returns the underlying stored form.
func (p *VerifiedPackage) Stored() *MovePackage { return p.pkg }

// Linkage returns the package's pinned dependency versions.
func (p *VerifiedPackage) Linkage() map[common.ObjectID]UpgradeInfo { return p.pkg.Linkage }

// Handle returns the arena handle of the named module.
func (p *VerifiedPackage) Handle(name string) (ModuleHandle, bool) {
	idx, ok := p.moduleIndex[name]
	if !ok {
		return ModuleHandle{}, false
	}
	return ModuleHandle{Slot: p.slot, Index: idx}, true
}

// Module returns the named decoded module.
func (p *VerifiedPackage) Module(name string) (*bytecode.Module, bool) {
	h, ok := p.Handle(name)
	if !ok {
		return nil, false
	}
	return p.arena.Module(h), true
}

// ModuleNames returns the package's module names in sorted order.
func (p *VerifiedPackage) ModuleNames() []string { return p.pkg.ModuleNames() }

// TypeOrigin returns the original package address that first defined the
// named type, preserving type identity across upgrades.
func (p *VerifiedPackage) TypeOrigin(module, name string) (common.ObjectID, bool) {
	origin, ok := p.typeOrigins[[2]string{module, name}]
	return origin, ok
}

// release frees the package's arena slot. Called by the cache on eviction;
// callers still holding the package must not resolve handles afterwards.
func (p *VerifiedPackage) release() {
	p.arena.FreeSlot(p.slot)
}
