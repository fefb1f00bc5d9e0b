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

// Package packages implements the package layer of the execution core: the
// stored and loaded forms of Move packages, the process wide verified
// package cache and the per transaction linkage resolution.
package packages

import (
	"sort"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
)

// Store is the read only package backend. GetPackage returns (nil, nil) when
// no package lives at the given storage address; errors are reserved for
// backend faults.
type Store interface {
	GetPackage(id common.ObjectID) (*MovePackage, error)
}

// Verifier checks a decoded module before it may enter the cache. The real
// bytecode verifier lives upstream; the execution core consumes it as a
// black box.
type Verifier interface {
	Verify(m *bytecode.Module) error
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(m *bytecode.Module) error

// Verify implements Verifier.
func (f VerifierFunc) Verify(m *bytecode.Module) error { return f(m) }

// StructuralVerifier verifies the structural invariants the loader depends
// on. It is the default verifier of the cache.
func StructuralVerifier() Verifier { return VerifierFunc(bytecode.VerifyModule) }

// TypeOrigin records which original package address first defined a type.
// The set of type origins of a package grows monotonically across upgrades.
type TypeOrigin struct {
	Module string          `cbor:"1,keyasint"`
	Name   string          `cbor:"2,keyasint"`
	Origin common.ObjectID `cbor:"3,keyasint"`
}

// UpgradeInfo pins the version of a dependency a package was linked against.
type UpgradeInfo struct {
	StorageID common.ObjectID `cbor:"1,keyasint"`
	Version   uint64          `cbor:"2,keyasint"`
}

// MovePackage is the stored form of a package: an immutable object holding
// serialized modules, the type origin table and the linkage table pinning
// its dependencies.
type MovePackage struct {
	// StorageID is the on-chain address of this version of the package.
	StorageID common.ObjectID `cbor:"1,keyasint"`
	// OriginalID is the address of the first version; module runtime IDs
	// point here, stable across upgrades.
	OriginalID common.ObjectID `cbor:"2,keyasint"`
	Version    uint64          `cbor:"3,keyasint"`
	// Modules maps module name to its canonical byte encoding.
	Modules     map[string][]byte `cbor:"4,keyasint"`
	TypeOrigins []TypeOrigin      `cbor:"5,keyasint,omitempty"`
	// Linkage maps each dependency's original ID to the version this
	// package was linked against.
	Linkage map[common.ObjectID]UpgradeInfo `cbor:"6,keyasint,omitempty"`
}

// TypeOriginMap returns the type origin table as a lookup map.
func (p *MovePackage) TypeOriginMap() map[[2]string]common.ObjectID {
	m := make(map[[2]string]common.ObjectID, len(p.TypeOrigins))
	for _, origin := range p.TypeOrigins {
		m[[2]string{origin.Module, origin.Name}] = origin.Origin
	}
	return m
}

// ModuleNames returns the package's module names in sorted order.
func (p *MovePackage) ModuleNames() []string {
	names := make([]string, 0, len(p.Modules))
	for name := range p.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewInitialPackage builds the stored form of a first published package: the
// storage address doubles as the original address and every declared type
// originates here.
func NewInitialPackage(id common.ObjectID, moduleBytes map[string][]byte, decoded []*bytecode.Module, deps map[common.ObjectID]UpgradeInfo) *MovePackage {
	pkg := &MovePackage{
		StorageID:  id,
		OriginalID: id,
		Version:    1,
		Modules:    moduleBytes,
		Linkage:    deps,
	}
	for _, m := range decoded {
		for _, s := range m.Structs {
			pkg.TypeOrigins = append(pkg.TypeOrigins, TypeOrigin{
				Module: m.Name, Name: s.Name, Origin: id,
			})
		}
	}
	return pkg
}

// NewUpgradedPackage builds the stored form of an upgraded package: a new
// storage address, the original address carried over, origins of
// pre-existing types retained and newly introduced types originating at the
// new storage address.
func NewUpgradedPackage(prev *MovePackage, id common.ObjectID, moduleBytes map[string][]byte, decoded []*bytecode.Module, deps map[common.ObjectID]UpgradeInfo) *MovePackage {
	pkg := &MovePackage{
		StorageID:  id,
		OriginalID: prev.OriginalID,
		Version:    prev.Version + 1,
		Modules:    moduleBytes,
		Linkage:    deps,
	}
	prevOrigins := prev.TypeOriginMap()
	for _, m := range decoded {
		for _, s := range m.Structs {
			origin := id
			if prevOrigin, ok := prevOrigins[[2]string{m.Name, s.Name}]; ok {
				origin = prevOrigin
			}
			pkg.TypeOrigins = append(pkg.TypeOrigins, TypeOrigin{
				Module: m.Name, Name: s.Name, Origin: origin,
			})
		}
	}
	return pkg
}
