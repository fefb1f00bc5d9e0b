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

	"github.com/holiman/uint256"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// machine evaluates Move bytecode. One machine serves one transaction; its
// only state is the configuration and meters it threads through frames.
type machine struct {
	env   *Env
	gas   *GasCharger
	cfg   *params.ProtocolConfig
	objrt *ObjectRuntime
}

// frame is one activation record: the executing function, its locals and
// operand stack.
type frame struct {
	pkg      *packages.VerifiedPackage
	module   *bytecode.Module
	def      *bytecode.FnDef
	typeArgs []Type
	locals   []Value
	stack    []Value
	pc       int
}

func (f *frame) push(v Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return nil, fmt.Errorf("%w: operand stack underflow", ErrInvariantViolation)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) popRef() (*RefValue, error) {
	v, err := f.pop()
	if err != nil {
		return nil, err
	}
	r, ok := v.(*RefValue)
	if !ok {
		return nil, fmt.Errorf("%w: expected a reference operand", ErrInvariantViolation)
	}
	return r, nil
}

func (f *frame) popBool() (bool, error) {
	v, err := f.pop()
	if err != nil {
		return false, err
	}
	b, ok := v.(BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: expected a bool operand", ErrInvariantViolation)
	}
	return bool(b), nil
}

// call executes fn with the given arguments and returns its results.
// Framework functions with native semantics short circuit here instead of
// running their placeholder bodies.
func (m *machine) call(fn *LoadedFunction, args []Value, depth uint64) ([]Value, error) {
	if depth > m.cfg.MaxCallDepth {
		return nil, ErrCallDepth
	}
	if native, ok := m.nativeFor(fn); ok {
		return native(m, fn, args)
	}
	def := fn.Def
	if len(args) != len(def.Params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArgumentArity, def.Name, len(def.Params), len(args))
	}
	f := &frame{
		pkg:      fn.Package,
		module:   fn.Module,
		def:      def,
		typeArgs: fn.TypeArgs,
		locals:   make([]Value, def.LocalCount()),
	}
	copy(f.locals, args)

	for {
		if f.pc >= len(def.Code) {
			return nil, fmt.Errorf("%w: fell off code of %s", ErrInvariantViolation, def.Name)
		}
		if err := m.gas.ChargeInstructions(1); err != nil {
			return nil, err
		}
		ins := def.Code[f.pc]
		jumped, done, err := m.step(f, ins, depth)
		if err != nil {
			return nil, err
		}
		if done {
			return m.returns(f)
		}
		if !jumped {
			f.pc++
		}
	}
}

// returns harvests the declared return values off the operand stack.
func (m *machine) returns(f *frame) ([]Value, error) {
	n := len(f.def.Returns)
	if len(f.stack) < n {
		return nil, fmt.Errorf("%w: %s returned %d of %d values", ErrInvariantViolation, f.def.Name, len(f.stack), n)
	}
	out := make([]Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	return out, nil
}

// step executes one instruction. It reports whether the pc already moved
// (branches) and whether the frame returned.
func (m *machine) step(f *frame, ins bytecode.Instruction, depth uint64) (jumped, done bool, err error) {
	switch ins.Op {
	case bytecode.NOP:
	case bytecode.POP:
		_, err = f.pop()
	case bytecode.RET:
		return false, true, nil
	case bytecode.ABORT:
		v, perr := f.pop()
		if perr != nil {
			return false, false, perr
		}
		code, ok := v.(U64Value)
		if !ok {
			return false, false, fmt.Errorf("%w: abort code must be u64", ErrInvariantViolation)
		}
		loc := fmt.Sprintf("%s::%s", common.Address(f.pkg.OriginalID()).ShortString(), f.module.Name)
		return false, false, &AbortError{Module: loc, Code: uint64(code)}
	case bytecode.BRTRUE, bytecode.BRFALSE:
		b, perr := f.popBool()
		if perr != nil {
			return false, false, perr
		}
		if b == (ins.Op == bytecode.BRTRUE) {
			f.pc = int(ins.A)
			return true, false, nil
		}
	case bytecode.BRANCH:
		f.pc = int(ins.A)
		return true, false, nil

	case bytecode.LDTRUE:
		f.push(BoolValue(true))
	case bytecode.LDFALSE:
		f.push(BoolValue(false))
	case bytecode.LDU8:
		f.push(U8Value(ins.A))
	case bytecode.LDU16:
		f.push(U16Value(ins.A))
	case bytecode.LDU32:
		f.push(U32Value(ins.A))
	case bytecode.LDU64:
		f.push(U64Value(ins.A))
	case bytecode.LDCONST:
		err = m.loadConstant(f, int(ins.A))
	case bytecode.COPYLOC:
		v := f.locals[ins.A]
		if v == nil {
			return false, false, fmt.Errorf("%w: local %d", ErrValueMoved, ins.A)
		}
		if err = m.gas.ChargeCopy(SizeOf(v)); err == nil {
			f.push(CopyValue(v))
		}
	case bytecode.MOVELOC:
		v := f.locals[ins.A]
		if v == nil {
			return false, false, fmt.Errorf("%w: local %d", ErrValueMoved, ins.A)
		}
		f.locals[ins.A] = nil
		f.push(v)
	case bytecode.STLOC:
		var v Value
		if v, err = f.pop(); err == nil {
			f.locals[ins.A] = v
		}

	case bytecode.CALL:
		err = m.callHandle(f, int(ins.A), depth)
	case bytecode.PACK:
		err = m.pack(f, ins)
	case bytecode.UNPACK:
		err = m.unpack(f)
	case bytecode.BORROWLOC, bytecode.MUTBORROWLOC:
		if f.locals[ins.A] == nil {
			return false, false, fmt.Errorf("%w: local %d", ErrValueMoved, ins.A)
		}
		f.push(&RefValue{Cell: &f.locals[ins.A], Mutable: ins.Op == bytecode.MUTBORROWLOC})
	case bytecode.READREF:
		var r *RefValue
		if r, err = f.popRef(); err == nil {
			if err = m.gas.ChargeCopy(SizeOf(*r.Cell)); err == nil {
				f.push(CopyValue(*r.Cell))
			}
		}
	case bytecode.WRITEREF:
		var r *RefValue
		if r, err = f.popRef(); err != nil {
			break
		}
		if !r.Mutable {
			return false, false, fmt.Errorf("%w: write through immutable reference", ErrInvariantViolation)
		}
		var v Value
		if v, err = f.pop(); err == nil {
			*r.Cell = v
		}
	case bytecode.FREEZEREF:
		var r *RefValue
		if r, err = f.popRef(); err == nil {
			f.push(&RefValue{Cell: r.Cell})
		}

	case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD,
		bytecode.BITOR, bytecode.BITAND, bytecode.XOR:
		err = m.binaryArith(f, ins.Op)
	case bytecode.SHL, bytecode.SHR:
		err = m.shift(f, ins.Op)
	case bytecode.OR, bytecode.AND:
		var a, b bool
		if b, err = f.popBool(); err != nil {
			break
		}
		if a, err = f.popBool(); err != nil {
			break
		}
		if ins.Op == bytecode.OR {
			f.push(BoolValue(a || b))
		} else {
			f.push(BoolValue(a && b))
		}
	case bytecode.NOT:
		var b bool
		if b, err = f.popBool(); err == nil {
			f.push(BoolValue(!b))
		}
	case bytecode.EQ, bytecode.NEQ:
		var a, b Value
		if b, err = f.pop(); err != nil {
			break
		}
		if a, err = f.pop(); err != nil {
			break
		}
		eq := valueEq(a, b)
		f.push(BoolValue(eq == (ins.Op == bytecode.EQ)))
	case bytecode.LT, bytecode.GT, bytecode.LE, bytecode.GE:
		err = m.compare(f, ins.Op)

	case bytecode.CASTU8, bytecode.CASTU16, bytecode.CASTU32,
		bytecode.CASTU64, bytecode.CASTU128, bytecode.CASTU256:
		err = m.cast(f, ins.Op)

	case bytecode.VECPACK:
		err = m.vecPack(f, ins)
	case bytecode.VECLEN:
		var r *RefValue
		if r, err = f.popRef(); err != nil {
			break
		}
		vec, ok := (*r.Cell).(*VectorValue)
		if !ok {
			return false, false, fmt.Errorf("%w: VECLEN on non-vector", ErrInvariantViolation)
		}
		f.push(U64Value(len(vec.Elems)))
	case bytecode.VECPUSHBACK:
		var v Value
		if v, err = f.pop(); err != nil {
			break
		}
		var r *RefValue
		if r, err = f.popRef(); err != nil {
			break
		}
		vec, ok := (*r.Cell).(*VectorValue)
		if !ok {
			return false, false, fmt.Errorf("%w: VECPUSHBACK on non-vector", ErrInvariantViolation)
		}
		if uint64(len(vec.Elems))+1 > m.cfg.MaxMoveVectorLen {
			return false, false, ErrVectorLimit
		}
		vec.Elems = append(vec.Elems, v)
	case bytecode.VECPOPBACK:
		var r *RefValue
		if r, err = f.popRef(); err != nil {
			break
		}
		vec, ok := (*r.Cell).(*VectorValue)
		if !ok {
			return false, false, fmt.Errorf("%w: VECPOPBACK on non-vector", ErrInvariantViolation)
		}
		if len(vec.Elems) == 0 {
			return false, false, ErrVectorOutOfBounds
		}
		v := vec.Elems[len(vec.Elems)-1]
		vec.Elems = vec.Elems[:len(vec.Elems)-1]
		f.push(v)
	case bytecode.VECUNPACK:
		var v Value
		if v, err = f.pop(); err != nil {
			break
		}
		vec, ok := v.(*VectorValue)
		if !ok {
			return false, false, fmt.Errorf("%w: VECUNPACK on non-vector", ErrInvariantViolation)
		}
		if uint64(len(vec.Elems)) != ins.A {
			return false, false, fmt.Errorf("%w: unpacking %d elements from vector of %d", ErrVectorOutOfBounds, ins.A, len(vec.Elems))
		}
		for _, e := range vec.Elems {
			f.push(e)
		}

	default:
		return false, false, fmt.Errorf("%w: %s", ErrUnsupportedOperation, ins.Op)
	}
	return false, false, err
}

func (m *machine) loadConstant(f *frame, idx int) error {
	c := f.module.Constants[idx]
	t, err := m.env.sigToType(f.module, c.Type, nil)
	if err != nil {
		return err
	}
	v, err := DecodeValue(c.Data, t)
	if err != nil {
		return err
	}
	return pushAfterCharge(m, f, v)
}

func pushAfterCharge(m *machine, f *frame, v Value) error {
	if err := m.gas.ChargeCopy(SizeOf(v)); err != nil {
		return err
	}
	f.push(v)
	return nil
}

// callHandle resolves a function handle and invokes it, consuming its
// arguments from the operand stack.
func (m *machine) callHandle(f *frame, idx int, depth uint64) error {
	h := f.module.Handles[idx]
	typeArgs := make([]Type, len(h.TypeArgs))
	for i, sig := range h.TypeArgs {
		t, err := m.env.sigToType(f.module, sig, f.typeArgs)
		if err != nil {
			return err
		}
		typeArgs[i] = t
	}
	callee, err := m.env.loadFunctionWith(common.ObjectID(h.Address), h.Module, h.Name, typeArgs)
	if err != nil {
		return err
	}
	// cross-package calls go through declared visibility; within a package
	// anything is callable
	if callee.Def.Visibility != bytecode.Public && callee.Package.StorageID() != f.pkg.StorageID() {
		return fmt.Errorf("%w: %s::%s", ErrNotPublic, h.Module, h.Name)
	}
	if err := m.gas.ChargeMoveCall(); err != nil {
		return err
	}
	args := make([]Value, len(callee.Def.Params))
	for i := len(args) - 1; i >= 0; i-- {
		v, err := f.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	rets, err := m.call(callee, args, depth+1)
	if err != nil {
		return err
	}
	for _, r := range rets {
		f.push(r)
	}
	return nil
}

func (m *machine) pack(f *frame, ins bytecode.Instruction) error {
	sd := f.module.Structs[ins.A]
	var (
		dt  *Datatype
		err error
	)
	if ins.Ty != nil {
		t, terr := m.env.sigToType(f.module, *ins.Ty, f.typeArgs)
		if terr != nil {
			return terr
		}
		if t.Kind != TDatatype {
			return fmt.Errorf("%w: PACK type immediate is not a datatype", ErrInvariantViolation)
		}
		dt = t.Datatype
	} else {
		dt, err = m.env.resolveDatatype(common.ObjectID(f.module.Address), f.module.Name, sd.Name, nil)
		if err != nil {
			return err
		}
	}
	n := len(sd.Fields)
	fields := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := f.pop()
		if err != nil {
			return err
		}
		fields[i] = v
	}
	f.push(&StructValue{Type: dt, Fields: fields})
	return nil
}

func (m *machine) unpack(f *frame) error {
	v, err := f.pop()
	if err != nil {
		return err
	}
	s, ok := v.(*StructValue)
	if !ok {
		return fmt.Errorf("%w: UNPACK on non-struct", ErrInvariantViolation)
	}
	for _, field := range s.Fields {
		f.push(field)
	}
	return nil
}

func (m *machine) vecPack(f *frame, ins bytecode.Instruction) error {
	if ins.Ty == nil {
		return fmt.Errorf("%w: VECPACK without element type", ErrInvariantViolation)
	}
	elemType, err := m.env.sigToType(f.module, *ins.Ty, f.typeArgs)
	if err != nil {
		return err
	}
	n := int(ins.A)
	if uint64(n) > m.cfg.MaxMoveVectorLen {
		return ErrVectorLimit
	}
	elems := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := f.pop()
		if err != nil {
			return err
		}
		elems[i] = v
	}
	f.push(&VectorValue{Elem: elemType, Elems: elems})
	return nil
}

// wide converts any integer value into a 256-bit word plus its width kind.
func wide(v Value) (*uint256.Int, TypeKind, bool) {
	switch x := v.(type) {
	case U8Value:
		return uint256.NewInt(uint64(x)), TU8, true
	case U16Value:
		return uint256.NewInt(uint64(x)), TU16, true
	case U32Value:
		return uint256.NewInt(uint64(x)), TU32, true
	case U64Value:
		return uint256.NewInt(uint64(x)), TU64, true
	case U128Value:
		return x.Int, TU128, true
	case U256Value:
		return x.Int, TU256, true
	}
	return nil, TBool, false
}

// narrow re-wraps a 256-bit word into kind, reporting overflow.
func narrow(n *uint256.Int, kind TypeKind) (Value, error) {
	switch kind {
	case TU8:
		if n.BitLen() > 8 {
			return nil, ErrArithmeticOverflow
		}
		return U8Value(n.Uint64()), nil
	case TU16:
		if n.BitLen() > 16 {
			return nil, ErrArithmeticOverflow
		}
		return U16Value(n.Uint64()), nil
	case TU32:
		if n.BitLen() > 32 {
			return nil, ErrArithmeticOverflow
		}
		return U32Value(n.Uint64()), nil
	case TU64:
		if n.BitLen() > 64 {
			return nil, ErrArithmeticOverflow
		}
		return U64Value(n.Uint64()), nil
	case TU128:
		if n.BitLen() > 128 {
			return nil, ErrArithmeticOverflow
		}
		return U128Value{Int: n}, nil
	default:
		return U256Value{Int: n}, nil
	}
}

func (m *machine) binaryArith(f *frame, op bytecode.OpCode) error {
	bv, err := f.pop()
	if err != nil {
		return err
	}
	av, err := f.pop()
	if err != nil {
		return err
	}
	a, ka, ok := wide(av)
	if !ok {
		return fmt.Errorf("%w: arithmetic on non-integer", ErrInvariantViolation)
	}
	b, kb, ok := wide(bv)
	if !ok || ka != kb {
		return fmt.Errorf("%w: arithmetic on mismatched integers", ErrInvariantViolation)
	}
	out := new(uint256.Int)
	switch op {
	case bytecode.ADD:
		if _, overflow := out.AddOverflow(a, b); overflow {
			return ErrArithmeticOverflow
		}
	case bytecode.SUB:
		if _, underflow := out.SubOverflow(a, b); underflow {
			return ErrArithmeticOverflow
		}
	case bytecode.MUL:
		if _, overflow := out.MulOverflow(a, b); overflow {
			return ErrArithmeticOverflow
		}
	case bytecode.DIV:
		if b.IsZero() {
			return ErrDivisionByZero
		}
		out.Div(a, b)
	case bytecode.MOD:
		if b.IsZero() {
			return ErrDivisionByZero
		}
		out.Mod(a, b)
	case bytecode.BITOR:
		out.Or(a, b)
	case bytecode.BITAND:
		out.And(a, b)
	case bytecode.XOR:
		out.Xor(a, b)
	}
	v, err := narrow(out, ka)
	if err != nil {
		return err
	}
	f.push(v)
	return nil
}

func (m *machine) shift(f *frame, op bytecode.OpCode) error {
	sv, err := f.pop()
	if err != nil {
		return err
	}
	shift, ok := sv.(U8Value)
	if !ok {
		return fmt.Errorf("%w: shift amount must be u8", ErrInvariantViolation)
	}
	av, err := f.pop()
	if err != nil {
		return err
	}
	a, kind, ok := wide(av)
	if !ok {
		return fmt.Errorf("%w: shift on non-integer", ErrInvariantViolation)
	}
	if uint64(shift) >= widthOf(kind) {
		return ErrArithmeticOverflow
	}
	out := new(uint256.Int)
	if op == bytecode.SHL {
		out.Lsh(a, uint(shift))
		out.And(out, maskOf(kind))
	} else {
		out.Rsh(a, uint(shift))
	}
	switch kind {
	case TU128:
		f.push(U128Value{Int: out})
	case TU256:
		f.push(U256Value{Int: out})
	default:
		v, err := narrow(out, kind)
		if err != nil {
			return err
		}
		f.push(v)
	}
	return nil
}

func widthOf(kind TypeKind) uint64 {
	switch kind {
	case TU8:
		return 8
	case TU16:
		return 16
	case TU32:
		return 32
	case TU64:
		return 64
	case TU128:
		return 128
	default:
		return 256
	}
}

func maskOf(kind TypeKind) *uint256.Int {
	width := widthOf(kind)
	if width == 256 {
		return new(uint256.Int).Not(new(uint256.Int))
	}
	mask := uint256.NewInt(1)
	mask.Lsh(mask, uint(width))
	return mask.SubUint64(mask, 1)
}

func (m *machine) compare(f *frame, op bytecode.OpCode) error {
	bv, err := f.pop()
	if err != nil {
		return err
	}
	av, err := f.pop()
	if err != nil {
		return err
	}
	a, ka, ok := wide(av)
	if !ok {
		return fmt.Errorf("%w: comparison on non-integer", ErrInvariantViolation)
	}
	b, kb, ok := wide(bv)
	if !ok || ka != kb {
		return fmt.Errorf("%w: comparison on mismatched integers", ErrInvariantViolation)
	}
	c := a.Cmp(b)
	var res bool
	switch op {
	case bytecode.LT:
		res = c < 0
	case bytecode.GT:
		res = c > 0
	case bytecode.LE:
		res = c <= 0
	case bytecode.GE:
		res = c >= 0
	}
	f.push(BoolValue(res))
	return nil
}

func (m *machine) cast(f *frame, op bytecode.OpCode) error {
	v, err := f.pop()
	if err != nil {
		return err
	}
	n, _, ok := wide(v)
	if !ok {
		return fmt.Errorf("%w: cast on non-integer", ErrInvariantViolation)
	}
	var target TypeKind
	switch op {
	case bytecode.CASTU8:
		target = TU8
	case bytecode.CASTU16:
		target = TU16
	case bytecode.CASTU32:
		target = TU32
	case bytecode.CASTU64:
		target = TU64
	case bytecode.CASTU128:
		target = TU128
	default:
		target = TU256
	}
	out, err := narrow(new(uint256.Int).Set(n), target)
	if err != nil {
		return ErrCastTruncated
	}
	f.push(out)
	return nil
}

// valueEq is deep structural equality, the semantics of the EQ instruction.
// References compare their targets.
func valueEq(a, b Value) bool {
	if ra, ok := a.(*RefValue); ok {
		a = *ra.Cell
	}
	if rb, ok := b.(*RefValue); ok {
		b = *rb.Cell
	}
	switch x := a.(type) {
	case U128Value:
		y, ok := b.(U128Value)
		return ok && x.Int.Eq(y.Int)
	case U256Value:
		y, ok := b.(U256Value)
		return ok && x.Int.Eq(y.Int)
	case *VectorValue:
		y, ok := b.(*VectorValue)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !valueEq(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *StructValue:
		y, ok := b.(*StructValue)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			if !valueEq(x.Fields[i], y.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// emitEvent serializes a struct value into a user event.
func (m *machine) emitEvent(t Type, v Value) error {
	contents, err := EncodeValue(v)
	if err != nil {
		return err
	}
	tag := t.ToTypeTag()
	if tag.Struct == nil {
		return fmt.Errorf("%w: events must be struct values", ErrArgumentType)
	}
	return m.objrt.EmitEvent(types.Event{Type: *tag.Struct, Contents: contents})
}
