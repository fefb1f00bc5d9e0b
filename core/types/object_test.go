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

package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MystenLabs/sui-sub065/common"
)

var testFramework = common.HexToObjectID("0x2")

func TestCoinStructTagString(t *testing.T) {
	tag := CoinStructTag(testFramework)
	require.Equal(t, "0x2::coin::Coin<0x2::sui::SUI>", tag.String())
}

func TestStructTagEqual(t *testing.T) {
	tag := CoinStructTag(testFramework)
	require.True(t, tag.Equal(CoinStructTag(testFramework)))

	other := CoinStructTag(common.HexToObjectID("0x3"))
	require.False(t, tag.Equal(other), "defining address is part of the identity")

	bare := StructTag{Address: testFramework.Address(), Module: "coin", Name: "Coin"}
	require.False(t, tag.Equal(bare), "type parameters are part of the identity")
}

func TestTypeTagEqual(t *testing.T) {
	require.True(t, U64TypeTag().Equal(U64TypeTag()))
	require.False(t, U64TypeTag().Equal(U8TypeTag()))
	require.True(t, VectorTypeTag(U8TypeTag()).Equal(VectorTypeTag(U8TypeTag())))
	require.False(t, VectorTypeTag(U8TypeTag()).Equal(VectorTypeTag(U64TypeTag())))
	require.Equal(t, "vector<u8>", VectorTypeTag(U8TypeTag()).String())
}

func TestNewCoinObject(t *testing.T) {
	id := common.HexToObjectID("0xc1")
	owner := common.HexToAddress("0xa11ce")
	obj, err := NewCoinObject(id, testFramework, owner, 3, 900)
	require.NoError(t, err)
	require.Equal(t, id, obj.ID)
	require.Equal(t, uint64(3), obj.Version)
	require.Equal(t, NewAddressOwner(owner), obj.Owner)
	require.True(t, obj.Type.Equal(CoinStructTag(testFramework)))

	balance, err := CoinBalance(obj)
	require.NoError(t, err)
	require.Equal(t, uint64(900), balance)
}

func TestCoinBalanceRejectsGarbage(t *testing.T) {
	_, err := CoinBalance(&Object{Contents: []byte{0xff}})
	require.Error(t, err)
}

func TestOwnerKinds(t *testing.T) {
	addr := common.HexToAddress("0xa11ce")
	require.Equal(t, AddressOwner, NewAddressOwner(addr).Kind)
	require.Equal(t, addr, NewAddressOwner(addr).Address)

	shared := NewSharedOwner(5)
	require.Equal(t, SharedOwner, shared.Kind)
	require.Equal(t, uint64(5), shared.InitialSharedVersion)

	frozen := Object{Owner: NewImmutableOwner()}
	require.True(t, frozen.IsImmutable())
	require.False(t, frozen.IsShared())

	pool := Object{Owner: shared}
	require.True(t, pool.IsShared())
}
