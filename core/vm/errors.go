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
	"errors"
	"fmt"
)

// List of execution errors. These abort the failing command but leave the
// effects of earlier commands standing.
var (
	ErrOutOfGas             = errors.New("out of gas")
	ErrCommandLimit         = errors.New("too many commands")
	ErrCallDepth            = errors.New("maximum call depth exceeded")
	ErrTypeDepth            = errors.New("maximum type depth exceeded")
	ErrTypeArity            = errors.New("wrong number of type arguments")
	ErrArgumentArity        = errors.New("wrong number of arguments")
	ErrArgumentType         = errors.New("argument type mismatch")
	ErrArgumentOutOfRange   = errors.New("argument index out of range")
	ErrArgumentForward      = errors.New("argument refers to a later command result")
	ErrValueMoved           = errors.New("value was already moved")
	ErrValueNotCopyable     = errors.New("value does not have the copy ability")
	ErrValueNotDroppable    = errors.New("unused value without the drop ability")
	ErrFunctionNotFound     = errors.New("function not found")
	ErrModuleNotFound       = errors.New("module not found")
	ErrTypeNotFound         = errors.New("type not found")
	ErrNotPublic            = errors.New("function is not public")
	ErrNotEntry             = errors.New("function is not an entry point")
	ErrAbilityConstraint    = errors.New("type argument ability constraint not satisfied")
	ErrPureDecode           = errors.New("invalid pure argument encoding")
	ErrPureSize             = errors.New("pure argument too large")
	ErrObjectNotFound       = errors.New("object not found")
	ErrObjectVersion        = errors.New("object version mismatch")
	ErrObjectImmutable      = errors.New("immutable object used mutably")
	ErrNotACoin             = errors.New("expected a coin object")
	ErrCoinBalance          = errors.New("insufficient coin balance")
	ErrCoinOverflow         = errors.New("coin balance overflow")
	ErrEmptyVector          = errors.New("cannot infer type of empty vector")
	ErrVectorLimit          = errors.New("vector length limit exceeded")
	ErrNewObjectLimit       = errors.New("too many objects created")
	ErrEventSize            = errors.New("event payload too large")
	ErrPackageTooLarge      = errors.New("published package too large")
	ErrUpgradeTicket        = errors.New("invalid upgrade ticket")
	ErrUpgradePolicy        = errors.New("upgrade violates declared policy")
	ErrSharedObjectDeleted  = errors.New("shared object no longer exists")
	ErrReceivingNotMatched  = errors.New("receiving object not addressed to parent")
	ErrInvariantViolation   = errors.New("runtime invariant violation")
	ErrArithmeticOverflow   = errors.New("arithmetic overflow")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrVectorOutOfBounds    = errors.New("vector index out of bounds")
	ErrCastTruncated        = errors.New("integer cast out of range")
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// AbortError is a Move-level abort raised by the ABORT instruction, carrying
// the aborting module's defining location and the user abort code.
type AbortError struct {
	Module string
	Code   uint64
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("move abort in %s: code %d", e.Module, e.Code)
}

// ExecutionError wraps the failure of one command with the index of the
// command that raised it. The index is what effects report to the user.
type ExecutionError struct {
	CommandIndex int
	Err          error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %d: %v", e.CommandIndex, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// commandError tags err with the failing command index, preserving an
// existing tag if err already carries one.
func commandError(idx int, err error) error {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	return &ExecutionError{CommandIndex: idx, Err: err}
}
