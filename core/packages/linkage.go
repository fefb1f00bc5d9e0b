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
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// Linkage errors surfaced to the user.
var (
	ErrPackageNotFound = errors.New("package not found")
	ErrLinkageConflict = errors.New("conflicting package versions in linkage")
)

// Linkage is the per transaction mapping from a package's original address
// to the storage address whose version is effective for this execution. It
// is constructed once before interpretation and immutable afterwards: every
// type and function resolution during execution goes through it.
type Linkage struct {
	table map[common.ObjectID]UpgradeInfo
	// reverse maps every storage address seen during analysis back to its
	// original address; its domain is a superset of the table's range.
	reverse map[common.ObjectID]common.ObjectID
}

// NewLinkage builds a linkage from an explicit resolution table. Intended
// for tests and for callers that precompute linkage externally.
func NewLinkage(table map[common.ObjectID]UpgradeInfo) *Linkage {
	reverse := make(map[common.ObjectID]common.ObjectID, len(table))
	for original, info := range table {
		reverse[info.StorageID] = original
	}
	return &Linkage{table: table, reverse: reverse}
}

// ResolveToStorageID returns the storage address chosen for an original
// address.
func (l *Linkage) ResolveToStorageID(original common.ObjectID) (common.ObjectID, bool) {
	info, ok := l.table[original]
	return info.StorageID, ok
}

// ResolveToOriginalID returns the original address of any package version
// seen during analysis.
func (l *Linkage) ResolveToOriginalID(storage common.ObjectID) (common.ObjectID, bool) {
	original, ok := l.reverse[storage]
	return original, ok
}

// Version returns the version pinned for an original address.
func (l *Linkage) Version(original common.ObjectID) (uint64, bool) {
	info, ok := l.table[original]
	return info.Version, ok
}

// Len returns the number of original addresses resolved.
func (l *Linkage) Len() int { return len(l.table) }

// resolution is one unification constraint: the version chosen so far for an
// original address and whether it is exact (top level call targets) or a
// lower bound (transitive dependencies).
type resolution struct {
	exact bool
	info  UpgradeInfo
}

// Analyzer computes the linkage of a transaction by unifying the version
// constraints contributed by each command: exact constraints for directly
// targeted packages, at-least constraints for their transitive dependency
// closure. Package metadata fetched during analysis is held in a bounded
// lru cache so a long run of transactions cannot pin unbounded metadata.
type Analyzer struct {
	cfg   *params.ProtocolConfig
	store Store
	meta  *lru.Cache // common.ObjectID -> *MovePackage
}

// NewAnalyzer creates a linkage analyzer over the given package backend.
func NewAnalyzer(cfg *params.ProtocolConfig, store Store) *Analyzer {
	meta, _ := lru.New(cfg.MaxLinkagePackages)
	return &Analyzer{cfg: cfg, store: store, meta: meta}
}

func (a *Analyzer) packageAt(id common.ObjectID) (*MovePackage, error) {
	if v, ok := a.meta.Get(id); ok {
		return v.(*MovePackage), nil
	}
	pkg, err := a.store.GetPackage(id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, id.ShortString())
	}
	a.meta.Add(id, pkg)
	return pkg, nil
}

// AnalyzeTransaction derives the unified linkage of the whole transaction.
// A version conflict (two commands demanding incompatible versions of the
// same original package) is a user error.
func (a *Analyzer) AnalyzeTransaction(ptb *types.ProgrammableTransaction) (*Linkage, error) {
	table := make(map[common.ObjectID]resolution)
	reverse := make(map[common.ObjectID]common.ObjectID)

	for _, cmd := range ptb.Commands {
		if err := a.addCommand(cmd, table, reverse); err != nil {
			return nil, err
		}
	}
	// Framework packages are implicitly linkable by every transaction.
	for _, id := range a.cfg.Framework.List() {
		pkg, err := a.store.GetPackage(id)
		if err != nil {
			return nil, err
		}
		if pkg == nil {
			continue // genesis-less test stores
		}
		if err := a.addConstraint(pkg, false, table, reverse); err != nil {
			return nil, err
		}
	}

	final := make(map[common.ObjectID]UpgradeInfo, len(table))
	for original, res := range table {
		final[original] = res.info
	}
	l := &Linkage{table: final, reverse: reverse}
	return l, nil
}

func (a *Analyzer) addCommand(cmd types.Command, table map[common.ObjectID]resolution, reverse map[common.ObjectID]common.ObjectID) error {
	switch c := cmd.(type) {
	case types.MoveCall:
		pkg, err := a.packageAt(c.Package)
		if err != nil {
			return err
		}
		if err := a.addConstraint(pkg, true, table, reverse); err != nil {
			return err
		}
		for _, targ := range c.TypeArguments {
			if err := a.addTypeTag(targ, table, reverse); err != nil {
				return err
			}
		}
	case types.MakeMoveVec:
		if c.ElementType != nil {
			if err := a.addTypeTag(*c.ElementType, table, reverse); err != nil {
				return err
			}
		}
	case types.Publish:
		return a.addDeps(c.Dependencies, table, reverse)
	case types.Upgrade:
		return a.addDeps(c.Dependencies, table, reverse)
	}
	return nil
}

// addDeps contributes at-least constraints for the declared dependencies of
// a Publish or Upgrade command. A dependency absent from the store is not an
// analysis error: it may be published by an earlier command of the same
// transaction, in which case execution resolves it against the transaction
// local packages. Genuinely missing dependencies fail the command at run
// time instead.
func (a *Analyzer) addDeps(deps []common.ObjectID, table map[common.ObjectID]resolution, reverse map[common.ObjectID]common.ObjectID) error {
	for _, dep := range deps {
		pkg, err := a.packageAt(dep)
		if errors.Is(err, ErrPackageNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := a.addConstraint(pkg, false, table, reverse); err != nil {
			return err
		}
	}
	return nil
}

// addTypeTag contributes at-least constraints for every package named in a
// type tag.
func (a *Analyzer) addTypeTag(tag types.TypeTag, table map[common.ObjectID]resolution, reverse map[common.ObjectID]common.ObjectID) error {
	switch tag.Kind {
	case types.TagVector:
		return a.addTypeTag(*tag.Elem, table, reverse)
	case types.TagStruct:
		pkg, err := a.packageAt(common.ObjectID(tag.Struct.Address))
		if err != nil {
			return err
		}
		if err := a.addConstraint(pkg, false, table, reverse); err != nil {
			return err
		}
		for _, param := range tag.Struct.TypeParams {
			if err := a.addTypeTag(param, table, reverse); err != nil {
				return err
			}
		}
	}
	return nil
}

// addConstraint unifies one package version constraint into the table and
// recursively contributes the package's pinned dependencies as at-least
// constraints.
func (a *Analyzer) addConstraint(pkg *MovePackage, exact bool, table map[common.ObjectID]resolution, reverse map[common.ObjectID]common.ObjectID) error {
	reverse[pkg.StorageID] = pkg.OriginalID
	next := resolution{exact: exact, info: UpgradeInfo{StorageID: pkg.StorageID, Version: pkg.Version}}
	prev, seen := table[pkg.OriginalID]
	if !seen {
		table[pkg.OriginalID] = next
	} else {
		unified, err := unify(pkg.OriginalID, prev, next)
		if err != nil {
			return err
		}
		table[pkg.OriginalID] = unified
		if unified == prev && prev.info.StorageID == pkg.StorageID {
			// Same version already walked; the dependency closure below is
			// idempotent, but skipping it bounds the recursion.
			return nil
		}
	}
	for _, dep := range pkg.Linkage {
		depPkg, err := a.packageAt(dep.StorageID)
		if err != nil {
			return err
		}
		if err := a.addConstraint(depPkg, false, table, reverse); err != nil {
			return err
		}
	}
	return nil
}

// unify merges two constraints on the same original address:
//
//	exact ~ exact     : identical storage IDs required
//	exact ~ at-least  : the exact version must satisfy the lower bound
//	at-least ~ at-least: the greater version wins
func unify(original common.ObjectID, a, b resolution) (resolution, error) {
	switch {
	case a.exact && b.exact:
		if a.info.StorageID != b.info.StorageID {
			return resolution{}, fmt.Errorf("%w: package %s pinned to both %s and %s",
				ErrLinkageConflict, original.ShortString(),
				a.info.StorageID.ShortString(), b.info.StorageID.ShortString())
		}
		return a, nil
	case a.exact:
		if a.info.Version < b.info.Version {
			return resolution{}, fmt.Errorf("%w: package %s pinned at version %d but version %d required",
				ErrLinkageConflict, original.ShortString(), a.info.Version, b.info.Version)
		}
		return a, nil
	case b.exact:
		if b.info.Version < a.info.Version {
			return resolution{}, fmt.Errorf("%w: package %s pinned at version %d but version %d required",
				ErrLinkageConflict, original.ShortString(), b.info.Version, a.info.Version)
		}
		return b, nil
	default:
		if b.info.Version > a.info.Version {
			return b, nil
		}
		return a, nil
	}
}
