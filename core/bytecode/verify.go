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

package bytecode

import (
	"errors"
	"fmt"
)

// Structural verification errors.
var (
	ErrEmptyModuleName = errors.New("module has no name")
	ErrNoCode          = errors.New("function has no code")
	ErrBadBranch       = errors.New("branch target out of range")
	ErrBadLocal        = errors.New("local index out of range")
	ErrBadHandle       = errors.New("function handle index out of range")
	ErrBadConstant     = errors.New("constant index out of range")
	ErrBadStructIndex  = errors.New("struct index out of range")
	ErrMissingReturn   = errors.New("code does not end in RET or ABORT or BRANCH")
	ErrUndefinedOp     = errors.New("undefined opcode")
)

// VerifyModule performs the structural checks the loader relies on before a
// module may enter the package cache: every instruction is defined and its
// immediates address valid entities. Full bytecode verification (type and
// reference safety) happens upstream in the toolchain; a module failing the
// checks here indicates corrupted or hand-forged input.
func VerifyModule(m *Module) error {
	if m.Name == "" {
		return ErrEmptyModuleName
	}
	for fi := range m.Functions {
		f := &m.Functions[fi]
		if err := verifyCode(m, f); err != nil {
			return fmt.Errorf("module %s function %s: %w", m.Name, f.Name, err)
		}
	}
	return nil
}

func verifyCode(m *Module, f *FnDef) error {
	if len(f.Code) == 0 {
		// Declared-only functions (natives handled by the runtime) are not
		// part of this format.
		return ErrNoCode
	}
	locals := f.LocalCount()
	for pc, ins := range f.Code {
		if !ins.Op.IsDefined() {
			return fmt.Errorf("%w: %#x at pc %d", ErrUndefinedOp, byte(ins.Op), pc)
		}
		switch ins.Op {
		case BRTRUE, BRFALSE, BRANCH:
			if ins.A >= uint64(len(f.Code)) {
				return fmt.Errorf("%w: %d at pc %d", ErrBadBranch, ins.A, pc)
			}
		case COPYLOC, MOVELOC, STLOC, BORROWLOC, MUTBORROWLOC:
			if ins.A >= uint64(locals) {
				return fmt.Errorf("%w: %d at pc %d", ErrBadLocal, ins.A, pc)
			}
		case CALL:
			if ins.A >= uint64(len(m.Handles)) {
				return fmt.Errorf("%w: %d at pc %d", ErrBadHandle, ins.A, pc)
			}
		case LDCONST:
			if ins.A >= uint64(len(m.Constants)) {
				return fmt.Errorf("%w: %d at pc %d", ErrBadConstant, ins.A, pc)
			}
		case PACK, UNPACK:
			if ins.A >= uint64(len(m.Structs)) {
				return fmt.Errorf("%w: %d at pc %d", ErrBadStructIndex, ins.A, pc)
			}
		}
	}
	switch f.Code[len(f.Code)-1].Op {
	case RET, ABORT, BRANCH:
	default:
		return ErrMissingReturn
	}
	return nil
}
