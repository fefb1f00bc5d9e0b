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
	"fmt"

	"github.com/MystenLabs/sui-sub065/common"
)

// CallArgKind discriminates the variants of a raw call argument.
type CallArgKind byte

const (
	// PureArg is a byte encoded primitive or vector value, decoded against
	// the parameter type it is first used at.
	PureArg CallArgKind = iota
	// ObjectArgKind references an on-chain object.
	ObjectArgKind
)

// CallArg is one raw transaction input.
type CallArg struct {
	Kind   CallArgKind
	Pure   []byte
	Object *ObjectArg
}

// PureCallArg wraps encoded bytes into a pure call argument.
func PureCallArg(bz []byte) CallArg { return CallArg{Kind: PureArg, Pure: bz} }

// ObjectCallArg wraps an object reference into a call argument.
func ObjectCallArg(arg ObjectArg) CallArg {
	return CallArg{Kind: ObjectArgKind, Object: &arg}
}

// ObjectRefKind discriminates the ways an object can be referenced as input.
type ObjectRefKind byte

const (
	// ImmOrOwnedObject references an owned or immutable object at an exact
	// version.
	ImmOrOwnedObject ObjectRefKind = iota
	// SharedObject references a shared object; the version is the initial
	// shared version, consensus supplies the execution version.
	SharedObject
	// ReceivingObject references an object sent to an object owned by the
	// transaction, to be received during execution.
	ReceivingObject
)

// ObjectArg is a raw reference to an on-chain object.
type ObjectArg struct {
	Kind    ObjectRefKind
	ID      common.ObjectID
	Version uint64
	// Mutable applies to shared objects only: whether the transaction may
	// mutate the object.
	Mutable bool
}

// ArgumentKind discriminates the variants of a command argument.
type ArgumentKind byte

const (
	// GasCoinArg refers to the coin paying for gas.
	GasCoinArg ArgumentKind = iota
	// InputArg refers to a transaction input by index.
	InputArg
	// ResultArg refers to the sole result of a prior command.
	ResultArg
	// NestedResultArg refers to one of several results of a prior command.
	NestedResultArg
)

// Argument refers to a transaction input or to the result of a strictly
// earlier command. The typing pass rejects forward references.
type Argument struct {
	Kind ArgumentKind
	// Index is the input index for InputArg and the command index for
	// ResultArg/NestedResultArg.
	Index uint16
	// SubIndex selects a result within a command for NestedResultArg.
	SubIndex uint16
}

// GasCoin returns the gas coin argument.
func GasCoin() Argument { return Argument{Kind: GasCoinArg} }

// Input returns an argument referring to input i.
func Input(i uint16) Argument { return Argument{Kind: InputArg, Index: i} }

// Result returns an argument referring to the single result of command i.
func Result(i uint16) Argument { return Argument{Kind: ResultArg, Index: i} }

// NestedResult returns an argument referring to result j of command i.
func NestedResult(i, j uint16) Argument {
	return Argument{Kind: NestedResultArg, Index: i, SubIndex: j}
}

// String implements fmt.Stringer.
func (a Argument) String() string {
	switch a.Kind {
	case GasCoinArg:
		return "GasCoin"
	case InputArg:
		return fmt.Sprintf("Input(%d)", a.Index)
	case ResultArg:
		return fmt.Sprintf("Result(%d)", a.Index)
	case NestedResultArg:
		return fmt.Sprintf("NestedResult(%d,%d)", a.Index, a.SubIndex)
	default:
		return fmt.Sprintf("Argument(%d)", a.Kind)
	}
}

// Command is the raw, untyped form of one programmable transaction command.
// The concrete variants below are the only implementations.
type Command interface {
	// Kind returns a short name for diagnostics.
	Kind() string
}

// MoveCall invokes an entry or public Move function.
type MoveCall struct {
	Package       common.ObjectID
	Module        string
	Function      string
	TypeArguments []TypeTag
	Arguments     []Argument
}

// TransferObjects sends the objects to the recipient address.
type TransferObjects struct {
	Objects []Argument
	Address Argument
}

// SplitCoins splits off new coins of the given amounts from a source coin.
type SplitCoins struct {
	Coin    Argument
	Amounts []Argument
}

// MergeCoins merges the balances of the source coins into the destination,
// destroying the sources.
type MergeCoins struct {
	Destination Argument
	Sources     []Argument
}

// MakeMoveVec builds a Move vector from the elements. ElementType may be nil
// when all elements are objects, in which case it is inferred from the first.
type MakeMoveVec struct {
	ElementType *TypeTag
	Elements    []Argument
}

// Publish registers the modules as a new package.
type Publish struct {
	Modules      [][]byte
	Dependencies []common.ObjectID
}

// Upgrade replaces the modules of an existing package with a new version,
// authorised by an upgrade ticket.
type Upgrade struct {
	Modules      [][]byte
	Dependencies []common.ObjectID
	Package      common.ObjectID
	Ticket       Argument
}

func (MoveCall) Kind() string        { return "MoveCall" }
func (TransferObjects) Kind() string { return "TransferObjects" }
func (SplitCoins) Kind() string      { return "SplitCoins" }
func (MergeCoins) Kind() string      { return "MergeCoins" }
func (MakeMoveVec) Kind() string     { return "MakeMoveVec" }
func (Publish) Kind() string         { return "Publish" }
func (Upgrade) Kind() string         { return "Upgrade" }

// ProgrammableTransaction is the raw command sequence of one transaction,
// already deserialized by the surrounding system.
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []Command
}
