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

import "fmt"

// OpCode is a Move bytecode operation.
type OpCode byte

// Flow control and stack operations.
const (
	NOP OpCode = iota
	POP
	RET
	ABORT
	BRTRUE
	BRFALSE
	BRANCH
)

// Constants and locals.
const (
	LDTRUE OpCode = 0x10 + iota
	LDFALSE
	LDU8
	LDU16
	LDU32
	LDU64
	LDCONST
	COPYLOC
	MOVELOC
	STLOC
)

// Calls, datatypes and references.
const (
	CALL OpCode = 0x20 + iota
	PACK
	UNPACK
	BORROWLOC
	MUTBORROWLOC
	READREF
	WRITEREF
	FREEZEREF
)

// Arithmetic, bitwise, logical and comparison operations.
const (
	ADD OpCode = 0x30 + iota
	SUB
	MUL
	DIV
	MOD
	BITOR
	BITAND
	XOR
	SHL
	SHR
	OR
	AND
	NOT
	EQ
	NEQ
	LT
	GT
	LE
	GE
)

// Casts.
const (
	CASTU8 OpCode = 0x50 + iota
	CASTU16
	CASTU32
	CASTU64
	CASTU128
	CASTU256
)

// Vector operations.
const (
	VECPACK OpCode = 0x60 + iota
	VECLEN
	VECPUSHBACK
	VECPOPBACK
	VECUNPACK
)

var opCodeToString = map[OpCode]string{
	NOP:     "NOP",
	POP:     "POP",
	RET:     "RET",
	ABORT:   "ABORT",
	BRTRUE:  "BRTRUE",
	BRFALSE: "BRFALSE",
	BRANCH:  "BRANCH",

	LDTRUE:  "LDTRUE",
	LDFALSE: "LDFALSE",
	LDU8:    "LDU8",
	LDU16:   "LDU16",
	LDU32:   "LDU32",
	LDU64:   "LDU64",
	LDCONST: "LDCONST",
	COPYLOC: "COPYLOC",
	MOVELOC: "MOVELOC",
	STLOC:   "STLOC",

	CALL:         "CALL",
	PACK:         "PACK",
	UNPACK:       "UNPACK",
	BORROWLOC:    "BORROWLOC",
	MUTBORROWLOC: "MUTBORROWLOC",
	READREF:      "READREF",
	WRITEREF:     "WRITEREF",
	FREEZEREF:    "FREEZEREF",

	ADD:    "ADD",
	SUB:    "SUB",
	MUL:    "MUL",
	DIV:    "DIV",
	MOD:    "MOD",
	BITOR:  "BITOR",
	BITAND: "BITAND",
	XOR:    "XOR",
	SHL:    "SHL",
	SHR:    "SHR",
	OR:     "OR",
	AND:    "AND",
	NOT:    "NOT",
	EQ:     "EQ",
	NEQ:    "NEQ",
	LT:     "LT",
	GT:     "GT",
	LE:     "LE",
	GE:     "GE",

	CASTU8:   "CASTU8",
	CASTU16:  "CASTU16",
	CASTU32:  "CASTU32",
	CASTU64:  "CASTU64",
	CASTU128: "CASTU128",
	CASTU256: "CASTU256",

	VECPACK:     "VECPACK",
	VECLEN:      "VECLEN",
	VECPUSHBACK: "VECPUSHBACK",
	VECPOPBACK:  "VECPOPBACK",
	VECUNPACK:   "VECUNPACK",
}

// String implements fmt.Stringer.
func (op OpCode) String() string {
	if s, ok := opCodeToString[op]; ok {
		return s
	}
	return fmt.Sprintf("opcode %#x not defined", byte(op))
}

// IsDefined reports whether op is a defined operation.
func (op OpCode) IsDefined() bool {
	_, ok := opCodeToString[op]
	return ok
}
