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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
)

func TestLoadPackage(t *testing.T) {
	id := common.HexToObjectID("0xaa")
	stored := buildPackage(id, nil, "alpha", "beta")

	pkg, err := LoadPackage(stored, StructuralVerifier(), NewModuleArena())
	require.NoError(t, err)
	require.Equal(t, id, pkg.StorageID())
	require.Equal(t, id, pkg.OriginalID())
	require.Equal(t, uint64(1), pkg.Version())
	require.Equal(t, []string{"alpha", "beta"}, pkg.ModuleNames())

	m, ok := pkg.Module("alpha")
	require.True(t, ok)
	require.Equal(t, "alpha", m.Name)
	_, ok = pkg.Module("missing")
	require.False(t, ok)

	origin, ok := pkg.TypeOrigin("beta", "Item")
	require.True(t, ok)
	require.Equal(t, id, origin)
}

func TestLoadPackageNameMismatch(t *testing.T) {
	id := common.HexToObjectID("0xaa")
	m := testModule("actual", id.Address())
	bz, err := bytecode.EncodeModule(m)
	require.NoError(t, err)
	stored := NewInitialPackage(id, map[string][]byte{"declared": bz}, []*bytecode.Module{m}, nil)

	_, err = LoadPackage(stored, StructuralVerifier(), NewModuleArena())
	require.Error(t, err)
	require.Contains(t, err.Error(), "declares name")
}

func TestLoadPackageCorruptModule(t *testing.T) {
	id := common.HexToObjectID("0xaa")
	stored := NewInitialPackage(id, map[string][]byte{"m": {0xff, 0x00, 0xff}}, nil, nil)

	_, err := LoadPackage(stored, StructuralVerifier(), NewModuleArena())
	require.Error(t, err)
}

func TestUpgradedPackageTypeOrigins(t *testing.T) {
	id := common.HexToObjectID("0xaa")
	next := common.HexToObjectID("0xab")
	v1 := buildPackage(id, nil, "m")
	v2 := buildUpgrade(v1, next, nil, "m", "extra")

	require.Equal(t, next, v2.StorageID)
	require.Equal(t, id, v2.OriginalID)
	require.Equal(t, uint64(2), v2.Version)

	origins := v2.TypeOriginMap()
	require.Equal(t, id, origins[[2]string{"m", "Item"}], "surviving types keep their origin")
	require.Equal(t, next, origins[[2]string{"extra", "Item"}], "new types originate at the new address")
}

func TestArenaSlotReuse(t *testing.T) {
	arena := NewModuleArena()
	id := common.HexToObjectID("0xaa")

	pkg, err := LoadPackage(buildPackage(id, nil, "m"), StructuralVerifier(), arena)
	require.NoError(t, err)
	require.Equal(t, 1, arena.Len())

	h, ok := pkg.Handle("m")
	require.True(t, ok)
	require.NotNil(t, arena.Module(h))

	pkg.release()
	require.Zero(t, arena.Len())
	require.Nil(t, arena.Module(h), "handles into a freed slot resolve to nil")

	// the freed slot is reused by the next load
	other, err := LoadPackage(buildPackage(common.HexToObjectID("0xbb"), nil, "n"), StructuralVerifier(), arena)
	require.NoError(t, err)
	h2, _ := other.Handle("n")
	require.Equal(t, h.Slot, h2.Slot)
}
