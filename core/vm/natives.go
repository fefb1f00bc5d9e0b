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

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// nativeFunc implements a framework function whose semantics live in the
// runtime rather than in bytecode: transfers, events and ID lifecycle.
type nativeFunc func(m *machine, fn *LoadedFunction, args []Value) ([]Value, error)

// nativeFunctions keys framework natives by module and function name. The
// framework package declares matching signatures with placeholder bodies;
// dispatch happens before any body executes.
var nativeFunctions = map[[2]string]nativeFunc{
	{"event", "emit"}:               nativeEmit,
	{"transfer", "public_transfer"}: nativePublicTransfer,
	{"transfer", "share_object"}:    nativeShareObject,
	{"transfer", "freeze_object"}:   nativeFreezeObject,
	{"object", "delete_id"}:         nativeDeleteID,
	{"tx_context", "fresh_address"}: nativeFreshAddress,
}

func (m *machine) nativeFor(fn *LoadedFunction) (nativeFunc, bool) {
	if fn.Package.OriginalID() != m.cfg.Framework.Framework {
		return nil, false
	}
	native, ok := nativeFunctions[[2]string{fn.Module.Name, fn.Def.Name}]
	return native, ok
}

func nativeEmit(m *machine, fn *LoadedFunction, args []Value) ([]Value, error) {
	if len(args) != 1 || len(fn.TypeArgs) != 1 {
		return nil, fmt.Errorf("%w: event::emit", ErrArgumentArity)
	}
	return nil, m.emitEvent(fn.TypeArgs[0], args[0])
}

func transferWith(m *machine, fn *LoadedFunction, value Value, owner types.Owner) error {
	sv, ok := value.(*StructValue)
	if !ok {
		return fmt.Errorf("%w: transferred value is not an object", ErrArgumentType)
	}
	if len(fn.TypeArgs) != 1 || !fn.TypeArgs[0].HasKey() {
		return fmt.Errorf("%w: transferred type must have key", ErrAbilityConstraint)
	}
	return m.objrt.Transfer(fn.TypeArgs[0], sv, owner)
}

func nativePublicTransfer(m *machine, fn *LoadedFunction, args []Value) ([]Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: transfer::public_transfer", ErrArgumentArity)
	}
	addr, ok := args[1].(AddressValue)
	if !ok {
		return nil, fmt.Errorf("%w: recipient is not an address", ErrArgumentType)
	}
	return nil, transferWith(m, fn, args[0], types.NewAddressOwner(common.Address(addr)))
}

func nativeShareObject(m *machine, fn *LoadedFunction, args []Value) ([]Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: transfer::share_object", ErrArgumentArity)
	}
	// the commit layer stamps the initial shared version when it assigns
	// the object's first version
	return nil, transferWith(m, fn, args[0], types.NewSharedOwner(0))
}

func nativeFreezeObject(m *machine, fn *LoadedFunction, args []Value) ([]Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: transfer::freeze_object", ErrArgumentArity)
	}
	return nil, transferWith(m, fn, args[0], types.NewImmutableOwner())
}

func nativeDeleteID(m *machine, fn *LoadedFunction, args []Value) ([]Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: object::delete_id", ErrArgumentArity)
	}
	addr, ok := args[0].(AddressValue)
	if !ok {
		return nil, fmt.Errorf("%w: deleted ID is not an address", ErrArgumentType)
	}
	m.objrt.DeleteID(common.ObjectID(addr))
	return nil, nil
}

func nativeFreshAddress(m *machine, fn *LoadedFunction, args []Value) ([]Value, error) {
	id, err := m.objrt.FreshID()
	if err != nil {
		return nil, err
	}
	return []Value{AddressValue(id.Address())}, nil
}
