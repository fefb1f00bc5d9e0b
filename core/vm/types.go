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
	"strings"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// TypeKind discriminates the fully instantiated runtime type union. Unlike
// module signatures, runtime types carry no type parameters: every type the
// interpreter sees has been substituted.
type TypeKind uint8

const (
	TBool TypeKind = iota
	TU8
	TU16
	TU32
	TU64
	TU128
	TU256
	TAddress
	TVector
	TDatatype
	TReference
)

// Type is a fully instantiated runtime type.
type Type struct {
	Kind     TypeKind
	Elem     *Type // vector element or reference target
	Mutable  bool  // meaningful only for references
	Datatype *Datatype
}

// Datatype is a resolved, instantiated struct type. DefiningID is the
// storage address of the package version that first introduced the type and
// is stable across upgrades; RuntimeID is the storage address holding the
// code under the current linkage.
type Datatype struct {
	DefiningID common.ObjectID
	RuntimeID  common.ObjectID
	Module     string
	Name       string
	TypeArgs   []Type

	abilities bytecode.AbilitySet
	fields    []DatatypeField
}

// DatatypeField is one field of a resolved struct layout, with its type
// instantiated against the struct's type arguments.
type DatatypeField struct {
	Name string
	Type Type
}

// Abilities returns the instantiated ability set of the datatype.
func (d *Datatype) Abilities() bytecode.AbilitySet { return d.abilities }

// Fields returns the instantiated field layout.
func (d *Datatype) Fields() []DatatypeField { return d.fields }

// FieldIndex returns the position of a named field, or -1.
func (d *Datatype) FieldIndex(name string) int {
	for i, f := range d.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func boolType() Type    { return Type{Kind: TBool} }
func u64Type() Type     { return Type{Kind: TU64} }
func addressType() Type { return Type{Kind: TAddress} }

func vectorType(elem Type) Type {
	return Type{Kind: TVector, Elem: &elem}
}

func refType(target Type, mutable bool) Type {
	return Type{Kind: TReference, Elem: &target, Mutable: mutable}
}

// Abilities computes the ability set of a runtime type. Primitives and
// references are copyable and droppable; vectors take the intersection with
// their element; datatypes carry their instantiated set.
func (t Type) Abilities() bytecode.AbilitySet {
	switch t.Kind {
	case TVector:
		return bytecode.VectorAbilities(t.Elem.Abilities())
	case TDatatype:
		return t.Datatype.abilities
	case TReference:
		return bytecode.AbilitySet(bytecode.AbilityCopy | bytecode.AbilityDrop)
	default:
		return bytecode.AbilitiesPrimitive
	}
}

// IsInteger reports whether the type is one of the unsigned integer widths.
func (t Type) IsInteger() bool {
	return t.Kind >= TU8 && t.Kind <= TU256
}

// HasKey reports whether the type is an object type.
func (t Type) HasKey() bool {
	return t.Kind == TDatatype && t.Datatype.abilities.HasKey()
}

// Equal is structural type equality. Datatypes compare by defining ID, so
// two versions of the same package agree on the identity of a type defined
// before the upgrade.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TVector:
		return t.Elem.Equal(*o.Elem)
	case TReference:
		return t.Mutable == o.Mutable && t.Elem.Equal(*o.Elem)
	case TDatatype:
		a, b := t.Datatype, o.Datatype
		if a.DefiningID != b.DefiningID || a.Module != b.Module || a.Name != b.Name {
			return false
		}
		if len(a.TypeArgs) != len(b.TypeArgs) {
			return false
		}
		for i := range a.TypeArgs {
			if !a.TypeArgs[i].Equal(b.TypeArgs[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case TBool:
		return "bool"
	case TU8:
		return "u8"
	case TU16:
		return "u16"
	case TU32:
		return "u32"
	case TU64:
		return "u64"
	case TU128:
		return "u128"
	case TU256:
		return "u256"
	case TAddress:
		return "address"
	case TVector:
		return "vector<" + t.Elem.String() + ">"
	case TReference:
		if t.Mutable {
			return "&mut " + t.Elem.String()
		}
		return "&" + t.Elem.String()
	case TDatatype:
		d := t.Datatype
		s := fmt.Sprintf("%s::%s::%s", common.Address(d.DefiningID).ShortString(), d.Module, d.Name)
		if len(d.TypeArgs) > 0 {
			parts := make([]string, len(d.TypeArgs))
			for i, a := range d.TypeArgs {
				parts[i] = a.String()
			}
			s += "<" + strings.Join(parts, ", ") + ">"
		}
		return s
	}
	return "unknown"
}

// Depth returns the nesting depth of the type, counting vector, reference
// and type-argument nesting.
func (t Type) Depth() int {
	switch t.Kind {
	case TVector, TReference:
		return 1 + t.Elem.Depth()
	case TDatatype:
		max := 0
		for _, a := range t.Datatype.TypeArgs {
			if d := a.Depth(); d > max {
				max = d
			}
		}
		return 1 + max
	default:
		return 1
	}
}

// ToTypeTag renders the runtime type as a user facing type tag. Datatype
// addresses are defining IDs, which is what effects and events report.
func (t Type) ToTypeTag() types.TypeTag {
	switch t.Kind {
	case TBool:
		return types.TypeTag{Kind: types.TagBool}
	case TU8:
		return types.TypeTag{Kind: types.TagU8}
	case TU16:
		return types.TypeTag{Kind: types.TagU16}
	case TU32:
		return types.TypeTag{Kind: types.TagU32}
	case TU64:
		return types.TypeTag{Kind: types.TagU64}
	case TU128:
		return types.TypeTag{Kind: types.TagU128}
	case TU256:
		return types.TypeTag{Kind: types.TagU256}
	case TAddress:
		return types.TypeTag{Kind: types.TagAddress}
	case TVector:
		elem := t.Elem.ToTypeTag()
		return types.TypeTag{Kind: types.TagVector, Elem: &elem}
	case TDatatype:
		d := t.Datatype
		params := make([]types.TypeTag, len(d.TypeArgs))
		for i, a := range d.TypeArgs {
			params[i] = a.ToTypeTag()
		}
		return types.TypeTag{Kind: types.TagStruct, Struct: &types.StructTag{
			Address:    common.Address(d.DefiningID),
			Module:     d.Module,
			Name:       d.Name,
			TypeParams: params,
		}}
	}
	panic("reference type has no type tag")
}

// Well known framework module and type names.
const (
	txContextModule = "tx_context"
	txContextName   = "TxContext"
	coinModule      = "coin"
	coinName        = "Coin"
	gasCoinModule   = "sui"
	gasCoinName     = "SUI"
	packageModule   = "package"
	upgradeTicket   = "UpgradeTicket"
	upgradeReceipt  = "UpgradeReceipt"
	upgradeCapName  = "UpgradeCap"
)

// isTxContext reports whether the type is the framework transaction context
// struct, by value or behind a reference.
func isTxContext(framework common.ObjectID, t Type) bool {
	if t.Kind == TReference {
		t = *t.Elem
	}
	return t.Kind == TDatatype &&
		t.Datatype.DefiningID == framework &&
		t.Datatype.Module == txContextModule &&
		t.Datatype.Name == txContextName
}

// txContextKind classifies the last parameter of an entry function.
func txContextKind(framework common.ObjectID, params []Type) types.TxContextKind {
	if len(params) == 0 {
		return types.TxContextNone
	}
	last := params[len(params)-1]
	if !isTxContext(framework, last) {
		return types.TxContextNone
	}
	if last.Kind == TReference && last.Mutable {
		return types.TxContextMutable
	}
	return types.TxContextImmutable
}

// isCoin reports whether the type is 0x2::coin::Coin with any balance type.
func isCoin(framework common.ObjectID, t Type) bool {
	return t.Kind == TDatatype &&
		t.Datatype.DefiningID == framework &&
		t.Datatype.Module == coinModule &&
		t.Datatype.Name == coinName
}

func isUpgradeTicket(framework common.ObjectID, t Type) bool {
	return t.Kind == TDatatype &&
		t.Datatype.DefiningID == framework &&
		t.Datatype.Module == packageModule &&
		t.Datatype.Name == upgradeTicket
}
