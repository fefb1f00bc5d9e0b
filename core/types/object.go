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

// Package types contains the data types of the object model and the raw
// (untyped) programmable transaction model consumed by the execution core.
package types

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/MystenLabs/sui-sub065/common"
)

// OwnerKind discriminates the ownership variants of an object.
type OwnerKind byte

const (
	// AddressOwner marks an object exclusively owned by an account address.
	AddressOwner OwnerKind = iota
	// ObjectOwner marks a child object owned by another object.
	ObjectOwner
	// SharedOwner marks an object usable by any transaction.
	SharedOwner
	// ImmutableOwner marks a frozen object. Packages are immutable.
	ImmutableOwner
)

// Owner describes who may use an object and how.
type Owner struct {
	Kind OwnerKind `cbor:"1,keyasint"`
	// Address holds the owning account for AddressOwner and the parent
	// object ID (as an address) for ObjectOwner. Unused otherwise.
	Address common.Address `cbor:"2,keyasint,omitempty"`
	// InitialSharedVersion is the version at which the object became shared.
	InitialSharedVersion uint64 `cbor:"3,keyasint,omitempty"`
}

// NewAddressOwner returns an Owner for an account owned object.
func NewAddressOwner(addr common.Address) Owner {
	return Owner{Kind: AddressOwner, Address: addr}
}

// NewObjectOwner returns an Owner for a child object owned by parent.
func NewObjectOwner(parent common.ObjectID) Owner {
	return Owner{Kind: ObjectOwner, Address: parent.Address()}
}

// NewSharedOwner returns an Owner for a shared object.
func NewSharedOwner(initialVersion uint64) Owner {
	return Owner{Kind: SharedOwner, InitialSharedVersion: initialVersion}
}

// NewImmutableOwner returns an Owner for a frozen object.
func NewImmutableOwner() Owner { return Owner{Kind: ImmutableOwner} }

// String implements fmt.Stringer.
func (o Owner) String() string {
	switch o.Kind {
	case AddressOwner:
		return fmt.Sprintf("Account(%s)", o.Address.ShortString())
	case ObjectOwner:
		return fmt.Sprintf("Object(%s)", o.Address.ShortString())
	case SharedOwner:
		return fmt.Sprintf("Shared(%d)", o.InitialSharedVersion)
	case ImmutableOwner:
		return "Immutable"
	default:
		return fmt.Sprintf("Owner(%d)", o.Kind)
	}
}

// TypeTagKind discriminates the variants of a TypeTag.
type TypeTagKind byte

const (
	TagBool TypeTagKind = iota
	TagU8
	TagU16
	TagU32
	TagU64
	TagU128
	TagU256
	TagAddress
	TagSigner
	TagVector
	TagStruct
)

// TypeTag is the storage level identity of a Move type. Struct addresses in a
// tag are always defining (original) package addresses; the execution core is
// responsible for resolving user supplied addresses into defining addresses
// before a tag is ever persisted.
type TypeTag struct {
	Kind   TypeTagKind `cbor:"1,keyasint"`
	Elem   *TypeTag    `cbor:"2,keyasint,omitempty"`
	Struct *StructTag  `cbor:"3,keyasint,omitempty"`
}

// StructTag identifies an instantiated datatype.
type StructTag struct {
	Address    common.Address `cbor:"1,keyasint"`
	Module     string         `cbor:"2,keyasint"`
	Name       string         `cbor:"3,keyasint"`
	TypeParams []TypeTag      `cbor:"4,keyasint,omitempty"`
}

// Primitive tag constructors.
func BoolTypeTag() TypeTag    { return TypeTag{Kind: TagBool} }
func U8TypeTag() TypeTag      { return TypeTag{Kind: TagU8} }
func U16TypeTag() TypeTag     { return TypeTag{Kind: TagU16} }
func U32TypeTag() TypeTag     { return TypeTag{Kind: TagU32} }
func U64TypeTag() TypeTag     { return TypeTag{Kind: TagU64} }
func U128TypeTag() TypeTag    { return TypeTag{Kind: TagU128} }
func U256TypeTag() TypeTag    { return TypeTag{Kind: TagU256} }
func AddressTypeTag() TypeTag { return TypeTag{Kind: TagAddress} }

// VectorTypeTag returns the tag of vector<elem>.
func VectorTypeTag(elem TypeTag) TypeTag {
	return TypeTag{Kind: TagVector, Elem: &elem}
}

// StructTypeTag wraps a struct tag into a TypeTag.
func StructTypeTag(tag StructTag) TypeTag {
	return TypeTag{Kind: TagStruct, Struct: &tag}
}

// String renders the tag in source syntax, e.g. 0x2::coin::Coin<0x2::sui::SUI>.
func (t TypeTag) String() string {
	switch t.Kind {
	case TagBool:
		return "bool"
	case TagU8:
		return "u8"
	case TagU16:
		return "u16"
	case TagU32:
		return "u32"
	case TagU64:
		return "u64"
	case TagU128:
		return "u128"
	case TagU256:
		return "u256"
	case TagAddress:
		return "address"
	case TagSigner:
		return "signer"
	case TagVector:
		return fmt.Sprintf("vector<%s>", t.Elem)
	case TagStruct:
		return t.Struct.String()
	default:
		return fmt.Sprintf("type(%d)", t.Kind)
	}
}

// Equal reports structural equality of two tags.
func (t TypeTag) Equal(other TypeTag) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TagVector:
		return t.Elem.Equal(*other.Elem)
	case TagStruct:
		return t.Struct.Equal(*other.Struct)
	default:
		return true
	}
}

// String implements fmt.Stringer.
func (s StructTag) String() string {
	base := fmt.Sprintf("%s::%s::%s", s.Address.ShortString(), s.Module, s.Name)
	if len(s.TypeParams) == 0 {
		return base
	}
	parts := make([]string, len(s.TypeParams))
	for i, p := range s.TypeParams {
		parts[i] = p.String()
	}
	return base + "<" + strings.Join(parts, ", ") + ">"
}

// Equal reports structural equality of two struct tags.
func (s StructTag) Equal(other StructTag) bool {
	if s.Address != other.Address || s.Module != other.Module || s.Name != other.Name {
		return false
	}
	if len(s.TypeParams) != len(other.TypeParams) {
		return false
	}
	for i := range s.TypeParams {
		if !s.TypeParams[i].Equal(other.TypeParams[i]) {
			return false
		}
	}
	return true
}

// Object is one versioned entry of the object store. Contents hold the
// canonical byte encoding of the object's Move value.
type Object struct {
	ID       common.ObjectID `cbor:"1,keyasint"`
	Version  uint64          `cbor:"2,keyasint"`
	Owner    Owner           `cbor:"3,keyasint"`
	Type     *StructTag      `cbor:"4,keyasint,omitempty"`
	Contents []byte          `cbor:"5,keyasint,omitempty"`
}

// IsShared reports whether the object is shared.
func (o *Object) IsShared() bool { return o.Owner.Kind == SharedOwner }

// IsImmutable reports whether the object is frozen.
func (o *Object) IsImmutable() bool { return o.Owner.Kind == ImmutableOwner }

// CoinContents is the decoded form of a coin object's contents.
type CoinContents struct {
	ID      common.ObjectID `cbor:"1,keyasint"`
	Balance uint64          `cbor:"2,keyasint"`
}

// CoinStructTag returns the struct tag of the gas coin type defined in the
// framework package.
func CoinStructTag(framework common.ObjectID) StructTag {
	gasTag := StructTag{Address: framework.Address(), Module: "sui", Name: "SUI"}
	return StructTag{
		Address:    framework.Address(),
		Module:     "coin",
		Name:       "Coin",
		TypeParams: []TypeTag{StructTypeTag(gasTag)},
	}
}

// NewCoinObject builds a coin object with the given balance, owned by owner.
func NewCoinObject(id common.ObjectID, framework common.ObjectID, owner common.Address, version, balance uint64) (*Object, error) {
	contents, err := cbor.Marshal(CoinContents{ID: id, Balance: balance})
	if err != nil {
		return nil, fmt.Errorf("encode coin contents: %w", err)
	}
	tag := CoinStructTag(framework)
	return &Object{
		ID:       id,
		Version:  version,
		Owner:    NewAddressOwner(owner),
		Type:     &tag,
		Contents: contents,
	}, nil
}

// CoinBalance decodes the balance of a coin object.
func CoinBalance(o *Object) (uint64, error) {
	var c CoinContents
	if err := cbor.Unmarshal(o.Contents, &c); err != nil {
		return 0, fmt.Errorf("decode coin contents: %w", err)
	}
	return c.Balance, nil
}
