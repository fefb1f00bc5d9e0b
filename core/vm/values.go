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
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"

	"github.com/MystenLabs/sui-sub065/common"
)

// Value is one runtime Move value. Small integers use native widths; u128
// and u256 use 256-bit arithmetic words.
type Value interface {
	isValue()
}

type (
	// BoolValue is a Move bool.
	BoolValue bool
	// U8Value through U64Value are the native width integers.
	U8Value  uint8
	U16Value uint16
	U32Value uint32
	U64Value uint64
	// U128Value and U256Value hold wide integers. The pointer is never nil.
	U128Value struct{ Int *uint256.Int }
	U256Value struct{ Int *uint256.Int }
	// AddressValue is a 32 byte account or object address.
	AddressValue common.Address
)

// VectorValue is a homogeneous Move vector.
type VectorValue struct {
	Elem  Type
	Elems []Value
}

// StructValue is an instantiated datatype value. Fields are positional,
// matching the declared layout.
type StructValue struct {
	Type   *Datatype
	Fields []Value
}

// RefValue is a reference into a live value cell. WriteRef mutates the cell
// in place, so aliases observe the write.
type RefValue struct {
	Cell    *Value
	Mutable bool
}

func (BoolValue) isValue()    {}
func (U8Value) isValue()      {}
func (U16Value) isValue()     {}
func (U32Value) isValue()     {}
func (U64Value) isValue()     {}
func (U128Value) isValue()    {}
func (U256Value) isValue()    {}
func (AddressValue) isValue() {}
func (*VectorValue) isValue() {}
func (*StructValue) isValue() {}
func (*RefValue) isValue()    {}

// ObjectAddress returns the ID of an object value. The first field of every
// key struct is its address.
func (s *StructValue) ObjectAddress() (common.ObjectID, error) {
	if len(s.Fields) == 0 {
		return common.ObjectID{}, fmt.Errorf("%w: key struct with no fields", ErrInvariantViolation)
	}
	addr, ok := s.Fields[0].(AddressValue)
	if !ok {
		return common.ObjectID{}, fmt.Errorf("%w: key struct first field is not an address", ErrInvariantViolation)
	}
	return common.ObjectID(addr), nil
}

// SizeOf returns the abstract byte size of a value, used for copy and write
// gas accounting.
func SizeOf(v Value) uint64 {
	switch x := v.(type) {
	case BoolValue, U8Value:
		return 1
	case U16Value:
		return 2
	case U32Value:
		return 4
	case U64Value:
		return 8
	case U128Value:
		return 16
	case U256Value:
		return 32
	case AddressValue:
		return 32
	case *VectorValue:
		n := uint64(4)
		for _, e := range x.Elems {
			n += SizeOf(e)
		}
		return n
	case *StructValue:
		var n uint64
		for _, f := range x.Fields {
			n += SizeOf(f)
		}
		return n
	case *RefValue:
		return 8
	}
	return 0
}

// CopyValue deep-copies a value. Wide integers and aggregates are cloned so
// the copy shares no mutable state with the original.
func CopyValue(v Value) Value {
	switch x := v.(type) {
	case U128Value:
		return U128Value{Int: new(uint256.Int).Set(x.Int)}
	case U256Value:
		return U256Value{Int: new(uint256.Int).Set(x.Int)}
	case *VectorValue:
		elems := make([]Value, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = CopyValue(e)
		}
		return &VectorValue{Elem: x.Elem, Elems: elems}
	case *StructValue:
		fields := make([]Value, len(x.Fields))
		for i, f := range x.Fields {
			fields[i] = CopyValue(f)
		}
		return &StructValue{Type: x.Type, Fields: fields}
	case *RefValue:
		return &RefValue{Cell: x.Cell, Mutable: x.Mutable}
	default:
		// value kinds above this point are immutable
		return v
	}
}

// TypeOf reconstructs the runtime type of a value. References resolve to
// the type of their target.
func TypeOf(v Value) Type {
	switch x := v.(type) {
	case BoolValue:
		return Type{Kind: TBool}
	case U8Value:
		return Type{Kind: TU8}
	case U16Value:
		return Type{Kind: TU16}
	case U32Value:
		return Type{Kind: TU32}
	case U64Value:
		return Type{Kind: TU64}
	case U128Value:
		return Type{Kind: TU128}
	case U256Value:
		return Type{Kind: TU256}
	case AddressValue:
		return Type{Kind: TAddress}
	case *VectorValue:
		elem := x.Elem
		return Type{Kind: TVector, Elem: &elem}
	case *StructValue:
		return Type{Kind: TDatatype, Datatype: x.Type}
	case *RefValue:
		t := TypeOf(*x.Cell)
		return Type{Kind: TReference, Elem: &t, Mutable: x.Mutable}
	}
	panic("unreachable value kind")
}

// Object contents and event payloads must encode identically across
// re-executions of the same transaction, so value serialization goes through
// a canonical encoding mode with sorted map keys.
var canonicalEnc, _ = cbor.CanonicalEncOptions().EncMode()

// EncodeValue serializes a value to its canonical byte encoding. Structs
// become integer-keyed maps so hand written contents decoders agree with
// the generic codec.
func EncodeValue(v Value) ([]byte, error) {
	raw, err := encodeRaw(v)
	if err != nil {
		return nil, err
	}
	return canonicalEnc.Marshal(raw)
}

func encodeRaw(v Value) (interface{}, error) {
	switch x := v.(type) {
	case BoolValue:
		return bool(x), nil
	case U8Value:
		return uint64(x), nil
	case U16Value:
		return uint64(x), nil
	case U32Value:
		return uint64(x), nil
	case U64Value:
		return uint64(x), nil
	case U128Value:
		return x.Int.Bytes(), nil
	case U256Value:
		return x.Int.Bytes(), nil
	case AddressValue:
		return common.Address(x), nil
	case *VectorValue:
		elems := make([]interface{}, len(x.Elems))
		for i, e := range x.Elems {
			raw, err := encodeRaw(e)
			if err != nil {
				return nil, err
			}
			elems[i] = raw
		}
		return elems, nil
	case *StructValue:
		fields := make(map[int]interface{}, len(x.Fields))
		for i, f := range x.Fields {
			raw, err := encodeRaw(f)
			if err != nil {
				return nil, err
			}
			fields[i+1] = raw
		}
		return fields, nil
	case *RefValue:
		return nil, fmt.Errorf("%w: cannot serialize a reference", ErrInvariantViolation)
	}
	return nil, fmt.Errorf("%w: unknown value kind %T", ErrInvariantViolation, v)
}

// DecodeValue deserializes bytes against an expected type. Used both for
// pure transaction inputs and for object contents.
func DecodeValue(data []byte, t Type) (Value, error) {
	var raw interface{}
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPureDecode, err)
	}
	return decodeRaw(raw, t)
}

func decodeRaw(raw interface{}, t Type) (Value, error) {
	switch t.Kind {
	case TBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected bool", ErrPureDecode)
		}
		return BoolValue(b), nil
	case TU8, TU16, TU32, TU64:
		n, ok := asUint64(raw)
		if !ok {
			return nil, fmt.Errorf("%w: expected integer", ErrPureDecode)
		}
		switch t.Kind {
		case TU8:
			if n > 0xff {
				return nil, fmt.Errorf("%w: u8 out of range", ErrPureDecode)
			}
			return U8Value(n), nil
		case TU16:
			if n > 0xffff {
				return nil, fmt.Errorf("%w: u16 out of range", ErrPureDecode)
			}
			return U16Value(n), nil
		case TU32:
			if n > 0xffffffff {
				return nil, fmt.Errorf("%w: u32 out of range", ErrPureDecode)
			}
			return U32Value(n), nil
		default:
			return U64Value(n), nil
		}
	case TU128, TU256:
		b, ok := asBytes(raw)
		if !ok {
			return nil, fmt.Errorf("%w: expected wide integer bytes", ErrPureDecode)
		}
		if len(b) > 32 || (t.Kind == TU128 && len(b) > 16) {
			return nil, fmt.Errorf("%w: wide integer out of range", ErrPureDecode)
		}
		n := new(uint256.Int).SetBytes(b)
		if t.Kind == TU128 {
			return U128Value{Int: n}, nil
		}
		return U256Value{Int: n}, nil
	case TAddress:
		b, ok := asBytes(raw)
		if !ok || len(b) != common.AddressLength {
			return nil, fmt.Errorf("%w: expected a %d byte address", ErrPureDecode, common.AddressLength)
		}
		var a common.Address
		copy(a[:], b)
		return AddressValue(a), nil
	case TVector:
		arr, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: expected array", ErrPureDecode)
		}
		elems := make([]Value, len(arr))
		for i, e := range arr {
			v, err := decodeRaw(e, *t.Elem)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &VectorValue{Elem: *t.Elem, Elems: elems}, nil
	case TDatatype:
		fields, ok := asIntMap(raw)
		if !ok {
			return nil, fmt.Errorf("%w: expected struct fields", ErrPureDecode)
		}
		layout := t.Datatype.Fields()
		vals := make([]Value, len(layout))
		for i, f := range layout {
			fv, present := fields[uint64(i+1)]
			if !present {
				return nil, fmt.Errorf("%w: missing field %s", ErrPureDecode, f.Name)
			}
			v, err := decodeRaw(fv, f.Type)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return &StructValue{Type: t.Datatype, Fields: vals}, nil
	case TReference:
		return nil, fmt.Errorf("%w: cannot deserialize a reference", ErrPureDecode)
	}
	return nil, fmt.Errorf("%w: unknown type kind", ErrPureDecode)
}

func asUint64(raw interface{}) (uint64, bool) {
	switch n := raw.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

func asBytes(raw interface{}) ([]byte, bool) {
	switch b := raw.(type) {
	case []byte:
		return b, true
	case []interface{}:
		out := make([]byte, len(b))
		for i, e := range b {
			n, ok := asUint64(e)
			if !ok || n > 0xff {
				return nil, false
			}
			out[i] = byte(n)
		}
		return out, true
	}
	return nil, false
}

func asIntMap(raw interface{}) (map[uint64]interface{}, bool) {
	m, ok := raw.(map[interface{}]interface{})
	if !ok {
		return nil, false
	}
	out := make(map[uint64]interface{}, len(m))
	for k, v := range m {
		n, ok := asUint64(k)
		if !ok {
			return nil, false
		}
		out[n] = v
	}
	return out, true
}
