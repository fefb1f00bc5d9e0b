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

// Package bytecode defines the in-memory form of verified Move modules: the
// structured instruction stream, declared signatures and datatype layouts.
// Compilation and bytecode verification proper live upstream of this module;
// the decoder here consumes the canonical byte encoding produced by the
// toolchain and VerifyModule performs the structural sanity checks the
// loader depends on.
package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/MystenLabs/sui-sub065/common"
)

// InitFunctionName is the reserved name of a module initialiser, run once
// when the package defining it is first published.
const InitFunctionName = "init"

// Visibility controls who may call a function.
type Visibility byte

const (
	// Private functions are callable within their module only.
	Private Visibility = iota
	// Public functions are callable from anywhere.
	Public
	// Friend functions are callable from declared friend modules.
	Friend
)

// String implements fmt.Stringer.
func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Public:
		return "public"
	case Friend:
		return "friend"
	default:
		return fmt.Sprintf("visibility(%d)", v)
	}
}

// SigKind discriminates the variants of a declared signature type.
type SigKind byte

const (
	SigBool SigKind = iota
	SigU8
	SigU16
	SigU32
	SigU64
	SigU128
	SigU256
	SigAddress
	SigSigner
	SigVector
	SigDatatype
	SigTypeParam
	SigReference
	SigMutReference
)

// SigType is a declared type as it appears in module signatures: it may
// contain type parameters and refers to datatypes by their runtime (original
// package) address.
type SigType struct {
	Kind      SigKind      `cbor:"1,keyasint"`
	Elem      *SigType     `cbor:"2,keyasint,omitempty"` // vector and reference element
	Datatype  *DatatypeRef `cbor:"3,keyasint,omitempty"`
	TypeParam uint16       `cbor:"4,keyasint,omitempty"`
}

// DatatypeRef names a datatype declared in some module, by runtime address.
type DatatypeRef struct {
	Address  common.Address `cbor:"1,keyasint"`
	Module   string         `cbor:"2,keyasint"`
	Name     string         `cbor:"3,keyasint"`
	TypeArgs []SigType      `cbor:"4,keyasint,omitempty"`
}

// Primitive signature constructors.
func SigBoolType() SigType    { return SigType{Kind: SigBool} }
func SigU64Type() SigType     { return SigType{Kind: SigU64} }
func SigAddressType() SigType { return SigType{Kind: SigAddress} }

// SigVectorOf returns the signature vector<elem>.
func SigVectorOf(elem SigType) SigType { return SigType{Kind: SigVector, Elem: &elem} }

// SigRef returns a reference signature over inner.
func SigRef(mutable bool, inner SigType) SigType {
	kind := SigReference
	if mutable {
		kind = SigMutReference
	}
	return SigType{Kind: kind, Elem: &inner}
}

// SigDatatypeOf returns a datatype signature.
func SigDatatypeOf(addr common.Address, module, name string, typeArgs ...SigType) SigType {
	return SigType{Kind: SigDatatype, Datatype: &DatatypeRef{
		Address: addr, Module: module, Name: name, TypeArgs: typeArgs,
	}}
}

// TypeParam declares one datatype type parameter.
type TypeParam struct {
	Constraints AbilitySet `cbor:"1,keyasint"`
	IsPhantom   bool       `cbor:"2,keyasint,omitempty"`
}

// Field is one declared datatype field.
type Field struct {
	Name string  `cbor:"1,keyasint"`
	Type SigType `cbor:"2,keyasint"`
}

// StructDef declares a datatype.
type StructDef struct {
	Name       string      `cbor:"1,keyasint"`
	Abilities  AbilitySet  `cbor:"2,keyasint"`
	TypeParams []TypeParam `cbor:"3,keyasint,omitempty"`
	Fields     []Field     `cbor:"4,keyasint,omitempty"`
}

// Constant is a pooled constant value, encoded the same way as object
// contents.
type Constant struct {
	Type SigType `cbor:"1,keyasint"`
	Data []byte  `cbor:"2,keyasint"`
}

// FunctionRef names a callable function, by runtime address. Instructions
// refer to these through the module's handle pool.
type FunctionRef struct {
	Address  common.Address `cbor:"1,keyasint"`
	Module   string         `cbor:"2,keyasint"`
	Name     string         `cbor:"3,keyasint"`
	TypeArgs []SigType      `cbor:"4,keyasint,omitempty"`
}

// Instruction is one structured bytecode operation. A and B are untyped
// immediates whose meaning depends on the opcode: branch target, local
// index, handle index, field count or a literal value.
type Instruction struct {
	Op OpCode   `cbor:"1,keyasint"`
	A  uint64   `cbor:"2,keyasint,omitempty"`
	B  uint64   `cbor:"3,keyasint,omitempty"`
	Ty *SigType `cbor:"4,keyasint,omitempty"` // type immediate (vector ops)
}

// Ins is a convenience constructor for instructions without immediates.
func Ins(op OpCode) Instruction { return Instruction{Op: op} }

// InsA is a convenience constructor for instructions with one immediate.
func InsA(op OpCode, a uint64) Instruction { return Instruction{Op: op, A: a} }

// FnDef declares a function and carries its code.
type FnDef struct {
	Name       string       `cbor:"1,keyasint"`
	Visibility Visibility   `cbor:"2,keyasint"`
	IsEntry    bool         `cbor:"3,keyasint,omitempty"`
	TypeParams []AbilitySet `cbor:"4,keyasint,omitempty"` // ability constraints per type parameter
	Params     []SigType    `cbor:"5,keyasint,omitempty"`
	Returns    []SigType    `cbor:"6,keyasint,omitempty"`
	// Locals are the declared locals beyond the parameters; local index i
	// addresses Params for i < len(Params) and Locals after.
	Locals []SigType     `cbor:"7,keyasint,omitempty"`
	Code   []Instruction `cbor:"8,keyasint,omitempty"`
}

// LocalCount returns the total number of addressable locals.
func (f *FnDef) LocalCount() int { return len(f.Params) + len(f.Locals) }

// Module is the decoded form of one Move module.
type Module struct {
	Name string `cbor:"1,keyasint"`
	// Address is the runtime address of the package declaring the module;
	// it is stable across upgrades.
	Address common.Address `cbor:"2,keyasint"`
	// Dependencies lists the runtime addresses of packages this module
	// links against.
	Dependencies []common.Address `cbor:"3,keyasint,omitempty"`
	Structs      []StructDef      `cbor:"4,keyasint,omitempty"`
	Functions    []FnDef          `cbor:"5,keyasint,omitempty"`
	Handles      []FunctionRef    `cbor:"6,keyasint,omitempty"`
	Constants    []Constant       `cbor:"7,keyasint,omitempty"`
}

// Function returns the named function definition.
func (m *Module) Function(name string) (*FnDef, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}

// Struct returns the named datatype definition.
func (m *Module) Struct(name string) (*StructDef, bool) {
	for i := range m.Structs {
		if m.Structs[i].Name == name {
			return &m.Structs[i], true
		}
	}
	return nil, false
}

// StructIndex returns the index of the named datatype definition.
func (m *Module) StructIndex(name string) (int, bool) {
	for i := range m.Structs {
		if m.Structs[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// EncodeModule serializes a module into its canonical byte encoding.
func EncodeModule(m *Module) ([]byte, error) {
	bz, err := cbor.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode module %s: %w", m.Name, err)
	}
	return bz, nil
}

// DecodeModule parses the canonical byte encoding of a module.
func DecodeModule(bz []byte) (*Module, error) {
	var m Module
	if err := cbor.Unmarshal(bz, &m); err != nil {
		return nil, fmt.Errorf("decode module: %w", err)
	}
	return &m, nil
}
