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

	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// locKey identifies one value location: the gas coin, an input, or one
// result slot of an earlier command.
type locKey struct {
	kind types.ArgumentKind
	cmd  uint16
	sub  uint16
}

func keyOf(arg types.Argument) locKey {
	switch arg.Kind {
	case types.GasCoinArg:
		return locKey{kind: types.GasCoinArg}
	case types.InputArg:
		return locKey{kind: types.InputArg, cmd: arg.Index}
	default:
		// Result(i) is the whole-result shorthand for single result
		// commands; it shares a location with NestedResult(i, 0).
		return locKey{kind: types.ResultArg, cmd: arg.Index, sub: arg.SubIndex}
	}
}

// locState tracks what typing knows about a location: its type (fixed
// lazily for pure inputs) and whether its value has been moved out.
type locState struct {
	typ     *Type
	pure    bool
	mutable bool
	moved   bool
}

// typeChecker turns a raw programmable transaction into a TypedTransaction,
// enforcing argument validity, acyclicity, ability rules and per command
// signatures.
type typeChecker struct {
	env     *Env
	cfg     *params.ProtocolConfig
	objects ObjectResolver

	inputs  []*TypedInput
	states  map[locKey]*locState
	results [][]Type
	// lastUse maps a location to the last command index that names it,
	// so a copyable value can be moved on its final use.
	lastUse map[locKey]int
}

// CheckTransaction runs the typing pass over a raw transaction. The
// resulting TypedTransaction is what the interpreter executes; no type
// inference remains at run time.
func CheckTransaction(env *Env, cfg *params.ProtocolConfig, objects ObjectResolver, ptb *types.ProgrammableTransaction) (*TypedTransaction, error) {
	if uint64(len(ptb.Commands)) > cfg.MaxCommands {
		return nil, fmt.Errorf("%w: %d", ErrCommandLimit, len(ptb.Commands))
	}
	c := &typeChecker{
		env:     env,
		cfg:     cfg,
		objects: objects,
		states:  make(map[locKey]*locState),
		lastUse: make(map[locKey]int),
	}
	if err := c.loadInputs(ptb.Inputs); err != nil {
		return nil, err
	}
	gasType, err := env.GasCoinType()
	if err != nil {
		return nil, err
	}
	c.states[locKey{kind: types.GasCoinArg}] = &locState{typ: &gasType, mutable: true}

	for idx, cmd := range ptb.Commands {
		for _, arg := range commandArgs(cmd) {
			c.lastUse[keyOf(arg)] = idx
		}
	}

	out := &TypedTransaction{Inputs: c.inputs}
	for idx, cmd := range ptb.Commands {
		typed, resultTypes, err := c.checkCommand(idx, cmd)
		if err != nil {
			return nil, commandError(idx, err)
		}
		out.Commands = append(out.Commands, typed)
		c.results = append(c.results, resultTypes)
		for sub, rt := range resultTypes {
			t := rt
			c.states[locKey{kind: types.ResultArg, cmd: uint16(idx), sub: uint16(sub)}] = &locState{typ: &t}
		}
	}
	out.ResultTypes = c.results
	return out, nil
}

func (c *typeChecker) loadInputs(inputs []types.CallArg) error {
	for i, in := range inputs {
		key := locKey{kind: types.InputArg, cmd: uint16(i)}
		switch in.Kind {
		case types.PureArg:
			if uint64(len(in.Pure)) > c.cfg.MaxPureArgumentSize {
				return fmt.Errorf("%w: input %d is %d bytes", ErrPureSize, i, len(in.Pure))
			}
			c.inputs = append(c.inputs, &TypedInput{Kind: InputPure, Pure: in.Pure})
			c.states[key] = &locState{pure: true, mutable: true}
		case types.ObjectArgKind:
			ti, st, err := c.loadObjectInput(i, in.Object)
			if err != nil {
				return err
			}
			c.inputs = append(c.inputs, ti)
			c.states[key] = st
		default:
			return fmt.Errorf("%w: input %d has unknown kind", ErrArgumentType, i)
		}
	}
	return nil
}

func (c *typeChecker) loadObjectInput(i int, arg *types.ObjectArg) (*TypedInput, *locState, error) {
	obj, err := c.objects.GetObject(arg.ID)
	if err != nil {
		return nil, nil, err
	}
	if obj == nil {
		if arg.Kind == types.SharedObject {
			return nil, nil, fmt.Errorf("%w: input %d (%s)", ErrSharedObjectDeleted, i, arg.ID.ShortString())
		}
		return nil, nil, fmt.Errorf("%w: input %d (%s)", ErrObjectNotFound, i, arg.ID.ShortString())
	}
	if obj.Type == nil {
		return nil, nil, fmt.Errorf("%w: input %d is a package", ErrArgumentType, i)
	}
	if arg.Kind == types.ImmOrOwnedObject && obj.Version != arg.Version {
		return nil, nil, fmt.Errorf("%w: input %d at version %d, expected %d", ErrObjectVersion, i, obj.Version, arg.Version)
	}
	t, err := c.env.ResolveTypeTag(types.StructTypeTag(*obj.Type))
	if err != nil {
		return nil, nil, err
	}
	mutable := true
	switch {
	case obj.IsImmutable():
		mutable = false
	case arg.Kind == types.SharedObject:
		mutable = arg.Mutable
	}
	kind := InputObject
	if arg.Kind == types.ReceivingObject {
		kind = InputReceiving
	}
	ti := &TypedInput{Kind: kind, Object: *arg, Type: &t, Mutable: mutable}
	return ti, &locState{typ: &t, mutable: mutable}, nil
}

// use consumes one argument reference. expected constrains the location's
// type when non-nil; pure inputs are fixed to it on first use. byValue
// selects between move/copy (decided here) and the given borrow usage.
func (c *typeChecker) use(idx int, arg types.Argument, expected *Type, usage UsageKind) (TypedArgument, error) {
	st, err := c.lookup(idx, arg)
	if err != nil {
		return TypedArgument{}, err
	}
	if st.moved {
		return TypedArgument{}, fmt.Errorf("%w: %s", ErrValueMoved, describeArg(arg))
	}
	if st.typ == nil {
		// unfixed pure input
		if expected == nil {
			return TypedArgument{}, fmt.Errorf("%w: cannot infer type of pure argument %s", ErrArgumentType, describeArg(arg))
		}
		if !isValidPureType(*expected) {
			return TypedArgument{}, fmt.Errorf("%w: %s is not a pure value type", ErrArgumentType, expected)
		}
		t := *expected
		st.typ = &t
		c.fixPureInput(arg, t)
	} else if expected != nil && !st.typ.Equal(*expected) {
		return TypedArgument{}, fmt.Errorf("%w: %s is %s, expected %s", ErrArgumentType, describeArg(arg), st.typ, expected)
	}
	t := *st.typ

	switch usage {
	case UsageBorrowMut:
		if !st.mutable {
			return TypedArgument{}, fmt.Errorf("%w: %s", ErrObjectImmutable, describeArg(arg))
		}
	case UsageBorrowImm:
		// always fine
	case UsageMove, UsageCopy:
		hasCopy := t.Abilities().HasCopy()
		if usage == UsageCopy && !hasCopy {
			return TypedArgument{}, fmt.Errorf("%w: %s", ErrValueNotCopyable, describeArg(arg))
		}
		// A copyable value is copied unless this is its final use.
		if hasCopy && c.lastUse[keyOf(arg)] > idx {
			usage = UsageCopy
		} else if !hasCopy || usage == UsageMove {
			usage = UsageMove
			st.moved = true
		}
	}
	return TypedArgument{Arg: arg, Usage: usage, Type: t}, nil
}

func (c *typeChecker) lookup(idx int, arg types.Argument) (*locState, error) {
	switch arg.Kind {
	case types.GasCoinArg:
		return c.states[locKey{kind: types.GasCoinArg}], nil
	case types.InputArg:
		if int(arg.Index) >= len(c.inputs) {
			return nil, fmt.Errorf("%w: input %d of %d", ErrArgumentOutOfRange, arg.Index, len(c.inputs))
		}
		return c.states[keyOf(arg)], nil
	case types.ResultArg, types.NestedResultArg:
		if int(arg.Index) >= idx {
			return nil, fmt.Errorf("%w: result of command %d used in command %d", ErrArgumentForward, arg.Index, idx)
		}
		rs := c.results[arg.Index]
		if arg.Kind == types.ResultArg && len(rs) != 1 {
			return nil, fmt.Errorf("%w: command %d has %d results, use a nested result", ErrArgumentOutOfRange, arg.Index, len(rs))
		}
		if int(arg.SubIndex) >= len(rs) {
			return nil, fmt.Errorf("%w: result %d.%d of %d", ErrArgumentOutOfRange, arg.Index, arg.SubIndex, len(rs))
		}
		return c.states[keyOf(arg)], nil
	}
	return nil, fmt.Errorf("%w: unknown argument kind", ErrArgumentType)
}

func (c *typeChecker) fixPureInput(arg types.Argument, t Type) {
	if arg.Kind == types.InputArg {
		in := c.inputs[arg.Index]
		if in.Kind == InputPure && in.Type == nil {
			in.Type = &t
		}
	}
}

func (c *typeChecker) checkCommand(idx int, cmd types.Command) (TypedCommand, []Type, error) {
	switch v := cmd.(type) {
	case types.MoveCall:
		return c.checkMoveCall(idx, v)
	case types.TransferObjects:
		return c.checkTransferObjects(idx, v)
	case types.SplitCoins:
		return c.checkSplitCoins(idx, v)
	case types.MergeCoins:
		return c.checkMergeCoins(idx, v)
	case types.MakeMoveVec:
		return c.checkMakeMoveVec(idx, v)
	case types.Publish:
		return c.checkPublish(v)
	case types.Upgrade:
		return c.checkUpgrade(idx, v)
	}
	return nil, nil, fmt.Errorf("%w: unknown command %T", ErrUnsupportedOperation, cmd)
}

func (c *typeChecker) checkMoveCall(idx int, v types.MoveCall) (TypedCommand, []Type, error) {
	if v.Function == bytecode.InitFunctionName {
		return nil, nil, fmt.Errorf("%w: %s::%s runs only at publish", ErrNotEntry, v.Module, v.Function)
	}
	fn, err := c.env.LoadFunction(v.Package, v.Module, v.Function, v.TypeArguments)
	if err != nil {
		return nil, nil, err
	}
	if fn.Def.Visibility != bytecode.Public && !fn.Def.IsEntry {
		return nil, nil, fmt.Errorf("%w: %s::%s", ErrNotPublic, v.Module, v.Function)
	}
	explicit := fn.ExplicitParams()
	if len(v.Arguments) != len(explicit) {
		return nil, nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrArgumentArity, v.Function, len(explicit), len(v.Arguments))
	}
	args := make([]TypedArgument, len(v.Arguments))
	for i, raw := range v.Arguments {
		param := explicit[i]
		var (
			expected Type
			usage    UsageKind
		)
		if param.Kind == TReference {
			expected = *param.Elem
			usage = UsageBorrowImm
			if param.Mutable {
				usage = UsageBorrowMut
			}
		} else {
			expected = param
			usage = UsageMove
		}
		if raw.Kind == types.GasCoinArg && usage == UsageMove {
			return nil, nil, fmt.Errorf("%w: gas coin can only be moved by TransferObjects", ErrArgumentType)
		}
		ta, err := c.use(idx, raw, &expected, usage)
		if err != nil {
			return nil, nil, err
		}
		args[i] = ta
	}
	for _, ret := range fn.Returns {
		if ret.Kind == TReference {
			return nil, nil, fmt.Errorf("%w: functions returning references", ErrUnsupportedOperation)
		}
	}
	return &TMoveCall{Function: fn, Arguments: args}, fn.Returns, nil
}

func (c *typeChecker) checkTransferObjects(idx int, v types.TransferObjects) (TypedCommand, []Type, error) {
	if len(v.Objects) == 0 {
		return nil, nil, fmt.Errorf("%w: no objects to transfer", ErrArgumentArity)
	}
	objects := make([]TypedArgument, len(v.Objects))
	for i, raw := range v.Objects {
		ta, err := c.use(idx, raw, nil, UsageMove)
		if err != nil {
			return nil, nil, err
		}
		abs := ta.Type.Abilities()
		if !abs.HasKey() || !abs.HasStore() {
			return nil, nil, fmt.Errorf("%w: %s cannot be transferred", ErrArgumentType, ta.Type)
		}
		objects[i] = ta
	}
	addrType := addressType()
	addr, err := c.use(idx, v.Address, &addrType, UsageMove)
	if err != nil {
		return nil, nil, err
	}
	return &TTransferObjects{Objects: objects, Address: addr}, nil, nil
}

func (c *typeChecker) checkSplitCoins(idx int, v types.SplitCoins) (TypedCommand, []Type, error) {
	coin, err := c.use(idx, v.Coin, nil, UsageBorrowMut)
	if err != nil {
		return nil, nil, err
	}
	if !isCoin(c.cfg.Framework.Framework, coin.Type) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotACoin, coin.Type)
	}
	amountType := u64Type()
	amounts := make([]TypedArgument, len(v.Amounts))
	for i, raw := range v.Amounts {
		ta, err := c.use(idx, raw, &amountType, UsageMove)
		if err != nil {
			return nil, nil, err
		}
		amounts[i] = ta
	}
	results := make([]Type, len(v.Amounts))
	for i := range results {
		results[i] = coin.Type
	}
	return &TSplitCoins{Coin: coin, Amounts: amounts, CoinType: coin.Type}, results, nil
}

func (c *typeChecker) checkMergeCoins(idx int, v types.MergeCoins) (TypedCommand, []Type, error) {
	dest, err := c.use(idx, v.Destination, nil, UsageBorrowMut)
	if err != nil {
		return nil, nil, err
	}
	if !isCoin(c.cfg.Framework.Framework, dest.Type) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotACoin, dest.Type)
	}
	sources := make([]TypedArgument, len(v.Sources))
	for i, raw := range v.Sources {
		if raw.Kind == types.GasCoinArg {
			return nil, nil, fmt.Errorf("%w: gas coin can only be moved by TransferObjects", ErrArgumentType)
		}
		expected := dest.Type
		ta, err := c.use(idx, raw, &expected, UsageMove)
		if err != nil {
			return nil, nil, err
		}
		sources[i] = ta
	}
	return &TMergeCoins{Destination: dest, Sources: sources, CoinType: dest.Type}, nil, nil
}

func (c *typeChecker) checkMakeMoveVec(idx int, v types.MakeMoveVec) (TypedCommand, []Type, error) {
	if uint64(len(v.Elements)) > c.cfg.MaxMoveVectorLen {
		return nil, nil, fmt.Errorf("%w: %d elements", ErrVectorLimit, len(v.Elements))
	}
	var elemType Type
	switch {
	case v.ElementType != nil:
		t, err := c.env.ResolveTypeTag(*v.ElementType)
		if err != nil {
			return nil, nil, err
		}
		elemType = t
	case len(v.Elements) == 0:
		return nil, nil, ErrEmptyVector
	default:
		// infer from the first element's location
		st, err := c.lookup(idx, v.Elements[0])
		if err != nil {
			return nil, nil, err
		}
		if st.typ == nil {
			return nil, nil, fmt.Errorf("%w: cannot infer vector type from a pure argument", ErrArgumentType)
		}
		elemType = *st.typ
	}
	elems := make([]TypedArgument, len(v.Elements))
	for i, raw := range v.Elements {
		expected := elemType
		ta, err := c.use(idx, raw, &expected, UsageMove)
		if err != nil {
			return nil, nil, err
		}
		elems[i] = ta
	}
	return &TMakeMoveVec{ElemType: elemType, Elements: elems}, []Type{vectorType(elemType)}, nil
}

func (c *typeChecker) checkPublish(v types.Publish) (TypedCommand, []Type, error) {
	var total uint64
	for _, m := range v.Modules {
		total += uint64(len(m))
	}
	if total > c.cfg.MaxPackageSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrPackageTooLarge, total)
	}
	capType, err := c.upgradeCapType()
	if err != nil {
		return nil, nil, err
	}
	return &TPublish{Modules: v.Modules, Dependencies: v.Dependencies}, []Type{capType}, nil
}

func (c *typeChecker) checkUpgrade(idx int, v types.Upgrade) (TypedCommand, []Type, error) {
	var total uint64
	for _, m := range v.Modules {
		total += uint64(len(m))
	}
	if total > c.cfg.MaxPackageSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrPackageTooLarge, total)
	}
	framework := c.cfg.Framework.Framework
	ticket, err := c.use(idx, v.Ticket, nil, UsageMove)
	if err != nil {
		return nil, nil, err
	}
	if !isUpgradeTicket(framework, ticket.Type) {
		return nil, nil, fmt.Errorf("%w: got %s", ErrUpgradeTicket, ticket.Type)
	}
	receiptDT, err := c.env.resolveDatatype(framework, packageModule, upgradeReceipt, nil)
	if err != nil {
		return nil, nil, err
	}
	tu := &TUpgrade{Modules: v.Modules, Dependencies: v.Dependencies, Package: v.Package, Ticket: ticket}
	return tu, []Type{{Kind: TDatatype, Datatype: receiptDT}}, nil
}

func (c *typeChecker) upgradeCapType() (Type, error) {
	d, err := c.env.resolveDatatype(c.cfg.Framework.Framework, packageModule, upgradeCapName, nil)
	if err != nil {
		return Type{}, err
	}
	return Type{Kind: TDatatype, Datatype: d}, nil
}

// isValidPureType reports whether a type may be produced by deserializing
// raw transaction bytes: primitives and vectors of them, never datatypes.
func isValidPureType(t Type) bool {
	switch t.Kind {
	case TVector:
		return isValidPureType(*t.Elem)
	case TDatatype, TReference:
		return false
	default:
		return true
	}
}

// commandArgs enumerates every argument reference of a raw command, for the
// last use prepass.
func commandArgs(cmd types.Command) []types.Argument {
	switch v := cmd.(type) {
	case types.MoveCall:
		return v.Arguments
	case types.TransferObjects:
		return append(append([]types.Argument{}, v.Objects...), v.Address)
	case types.SplitCoins:
		return append([]types.Argument{v.Coin}, v.Amounts...)
	case types.MergeCoins:
		return append([]types.Argument{v.Destination}, v.Sources...)
	case types.MakeMoveVec:
		return v.Elements
	case types.Upgrade:
		return []types.Argument{v.Ticket}
	}
	return nil
}

func describeArg(arg types.Argument) string {
	switch arg.Kind {
	case types.GasCoinArg:
		return "gas coin"
	case types.InputArg:
		return fmt.Sprintf("input %d", arg.Index)
	case types.ResultArg:
		return fmt.Sprintf("result %d", arg.Index)
	default:
		return fmt.Sprintf("result %d.%d", arg.Index, arg.SubIndex)
	}
}
