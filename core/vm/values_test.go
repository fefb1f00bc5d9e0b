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

package vm

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// coinValueType builds the resolved Coin<SUI> datatype directly, bypassing
// the resolver.
func coinValueType(framework common.ObjectID) *Datatype {
	sui := &Datatype{
		DefiningID: framework,
		RuntimeID:  framework,
		Module:     "sui",
		Name:       "SUI",
		abilities:  bytecode.AbilitySet(bytecode.AbilityStore | bytecode.AbilityDrop),
	}
	return &Datatype{
		DefiningID: framework,
		RuntimeID:  framework,
		Module:     "coin",
		Name:       "Coin",
		TypeArgs:   []Type{{Kind: TDatatype, Datatype: sui}},
		abilities:  bytecode.AbilitySet(bytecode.AbilityKey | bytecode.AbilityStore),
		fields: []DatatypeField{
			{Name: "id", Type: addressType()},
			{Name: "balance", Type: u64Type()},
		},
	}
}

func TestValueRoundTrip(t *testing.T) {
	payload := &Datatype{
		DefiningID: common.HexToObjectID("0x42"),
		RuntimeID:  common.HexToObjectID("0x42"),
		Module:     "m",
		Name:       "Payload",
		abilities:  bytecode.AbilitySet(bytecode.AbilityCopy | bytecode.AbilityDrop),
		fields: []DatatypeField{
			{Name: "flag", Type: boolType()},
			{Name: "amounts", Type: vectorType(u64Type())},
			{Name: "big", Type: Type{Kind: TU128}},
			{Name: "who", Type: addressType()},
		},
	}
	v := &StructValue{
		Type: payload,
		Fields: []Value{
			BoolValue(true),
			&VectorValue{Elem: u64Type(), Elems: []Value{U64Value(1), U64Value(2), U64Value(3)}},
			U128Value{Int: uint256.NewInt(1).Lsh(uint256.NewInt(1), 100)},
			AddressValue(common.HexToAddress("0xa11ce")),
		},
	}

	data, err := EncodeValue(v)
	require.NoError(t, err)

	back, err := DecodeValue(data, Type{Kind: TDatatype, Datatype: payload})
	require.NoError(t, err)
	require.Equal(t, v, back)
}

func TestValueEncodingDeterministic(t *testing.T) {
	build := func() Value {
		dt := coinValueType(common.HexToObjectID("0x2"))
		return &StructValue{Type: dt, Fields: []Value{
			AddressValue(common.HexToAddress("0xc0")),
			U64Value(500),
		}}
	}
	a, err := EncodeValue(build())
	require.NoError(t, err)
	b, err := EncodeValue(build())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestCoinValueMatchesContentsCodec(t *testing.T) {
	framework := common.HexToObjectID("0x2")
	coinID := common.HexToObjectID("0xc0")
	dt := coinValueType(framework)

	// runtime value -> stored contents -> hand written decoder
	v := &StructValue{Type: dt, Fields: []Value{
		AddressValue(coinID.Address()),
		U64Value(777),
	}}
	data, err := EncodeValue(v)
	require.NoError(t, err)

	var contents types.CoinContents
	require.NoError(t, cbor.Unmarshal(data, &contents))
	require.Equal(t, coinID, contents.ID)
	require.Equal(t, uint64(777), contents.Balance)

	// stored contents -> runtime value
	obj, err := types.NewCoinObject(coinID, framework, testSender, 1, 777)
	require.NoError(t, err)
	back, err := DecodeValue(obj.Contents, Type{Kind: TDatatype, Datatype: dt})
	require.NoError(t, err)
	sv, ok := back.(*StructValue)
	require.True(t, ok)
	require.Equal(t, U64Value(777), sv.Fields[1])

	addr, err := sv.ObjectAddress()
	require.NoError(t, err)
	require.Equal(t, coinID, addr)
}

func TestCopyValueIsDeep(t *testing.T) {
	orig := &VectorValue{Elem: Type{Kind: TU128}, Elems: []Value{
		U128Value{Int: uint256.NewInt(9)},
	}}
	clone, ok := CopyValue(orig).(*VectorValue)
	require.True(t, ok)

	clone.Elems[0].(U128Value).Int.SetUint64(1000)
	require.Equal(t, uint64(9), orig.Elems[0].(U128Value).Int.Uint64())

	clone.Elems = append(clone.Elems, U128Value{Int: uint256.NewInt(1)})
	require.Len(t, orig.Elems, 1)
}

func TestSizeOf(t *testing.T) {
	require.Equal(t, uint64(1), SizeOf(BoolValue(true)))
	require.Equal(t, uint64(8), SizeOf(U64Value(0)))
	require.Equal(t, uint64(32), SizeOf(AddressValue{}))
	vec := &VectorValue{Elem: u64Type(), Elems: []Value{U64Value(0), U64Value(1)}}
	require.Equal(t, uint64(4+2*8), SizeOf(vec))
	s := &StructValue{Fields: []Value{AddressValue{}, U64Value(0)}}
	require.Equal(t, uint64(40), SizeOf(s))
}

func TestEncodeReferenceFails(t *testing.T) {
	var cell Value = U64Value(1)
	_, err := EncodeValue(&RefValue{Cell: &cell, Mutable: true})
	require.ErrorIs(t, err, ErrInvariantViolation)
}

func TestDecodeValueRejectsGarbage(t *testing.T) {
	_, err := DecodeValue([]byte{0xff, 0xff}, u64Type())
	require.ErrorIs(t, err, ErrPureDecode)
}

func TestTypeOfReference(t *testing.T) {
	var cell Value = U64Value(7)
	got := TypeOf(&RefValue{Cell: &cell, Mutable: true})
	require.Equal(t, TReference, got.Kind)
	require.True(t, got.Mutable)
	require.Equal(t, TU64, got.Elem.Kind)
}
