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
	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// UsageKind is how a command consumes one argument, decided by the typing
// pass: move takes the value out of its location, copy duplicates it, and
// borrows hand out a reference.
type UsageKind uint8

const (
	UsageMove UsageKind = iota
	UsageCopy
	UsageBorrowImm
	UsageBorrowMut
)

func (u UsageKind) String() string {
	switch u {
	case UsageMove:
		return "move"
	case UsageCopy:
		return "copy"
	case UsageBorrowImm:
		return "borrow"
	case UsageBorrowMut:
		return "borrow-mut"
	}
	return "usage(?)"
}

// TypedArgument is one argument use with its resolved location, usage and
// expected type.
type TypedArgument struct {
	Arg   types.Argument
	Usage UsageKind
	Type  Type
}

// TypedInputKind discriminates the typed transaction inputs.
type TypedInputKind uint8

const (
	// InputPure is a byte encoded primitive value whose type is fixed by
	// its first use.
	InputPure TypedInputKind = iota
	// InputObject is an owned or shared object loaded from storage.
	InputObject
	// InputReceiving is an object sent to another object, to be claimed
	// during execution.
	InputReceiving
)

// TypedInput is one transaction input after typing.
type TypedInput struct {
	Kind TypedInputKind
	// Pure holds the raw bytes for InputPure.
	Pure []byte
	// Object describes the referenced object for the object kinds.
	Object types.ObjectArg
	// Type is the type the input was fixed to. For pure inputs it is set
	// at the first use; for objects it is the resolved object type.
	Type *Type
	// Mutable reports whether the input may be mutated (owned objects, and
	// shared objects taken mutably).
	Mutable bool
}

// TypedCommand is one command after the typing pass. Every argument has a
// resolved usage and type; execution performs no further type inference.
type TypedCommand interface {
	isTypedCommand()
}

// TMoveCall invokes a loaded Move function.
type TMoveCall struct {
	Function  *LoadedFunction
	Arguments []TypedArgument
}

// TTransferObjects sends objects to an address.
type TTransferObjects struct {
	Objects []TypedArgument
	Address TypedArgument
}

// TSplitCoins splits amounts off a coin.
type TSplitCoins struct {
	Coin     TypedArgument
	Amounts  []TypedArgument
	CoinType Type
}

// TMergeCoins merges source coins into a destination.
type TMergeCoins struct {
	Destination TypedArgument
	Sources     []TypedArgument
	CoinType    Type
}

// TMakeMoveVec packs elements into a vector.
type TMakeMoveVec struct {
	ElemType Type
	Elements []TypedArgument
}

// TPublish publishes a new package.
type TPublish struct {
	Modules      [][]byte
	Dependencies []common.ObjectID
}

// TUpgrade publishes a new version of an existing package.
type TUpgrade struct {
	Modules      [][]byte
	Dependencies []common.ObjectID
	Package      common.ObjectID
	Ticket       TypedArgument
}

func (*TMoveCall) isTypedCommand()        {}
func (*TTransferObjects) isTypedCommand() {}
func (*TSplitCoins) isTypedCommand()      {}
func (*TMergeCoins) isTypedCommand()      {}
func (*TMakeMoveVec) isTypedCommand()     {}
func (*TPublish) isTypedCommand()         {}
func (*TUpgrade) isTypedCommand()         {}

// TypedTransaction is the fully typed form of a programmable transaction,
// ready for interpretation.
type TypedTransaction struct {
	Inputs   []*TypedInput
	Commands []TypedCommand
	// ResultTypes records, per command, the types of the values it leaves
	// on the result stack.
	ResultTypes [][]Type
}
