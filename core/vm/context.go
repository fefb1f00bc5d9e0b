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

	"github.com/inconshreveable/log15"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// slot is one value location at run time. A nil value means the slot is
// empty: never filled, or moved out.
type slot struct {
	value Value
	// objectID is set for slots holding an input object's value.
	objectID *common.ObjectID
	// filled distinguishes a lazily unmaterialized input from a moved one.
	filled bool
	moved  bool
}

// ExecutionContext owns the value state of one executing transaction: the
// gas coin, input slots, per command result slots, the packages it
// published, and the machinery to turn all of it into transaction effects.
type ExecutionContext struct {
	cfg   *params.ProtocolConfig
	env   *Env
	gas   *GasCharger
	objrt *ObjectRuntime
	tx    *types.TxContext
	txn   *TypedTransaction
	log   log15.Logger

	gasCoinID common.ObjectID
	gasSlot   slot
	inputs    []slot
	results   [][]slot

	// consumed tracks input objects taken by value, for wrap detection.
	consumed map[common.ObjectID]struct{}
	// newPackages go to effects as immutable package objects on success.
	newPackages []*packages.VerifiedPackage
	arena       *packages.ModuleArena
	verifier    packages.Verifier
}

// NewExecutionContext assembles the context for one typed transaction.
// gasCoinID names the coin backing the GasCoin argument.
func NewExecutionContext(cfg *params.ProtocolConfig, env *Env, gas *GasCharger, objrt *ObjectRuntime, tx *types.TxContext, txn *TypedTransaction, gasCoinID common.ObjectID) *ExecutionContext {
	return &ExecutionContext{
		cfg:       cfg,
		env:       env,
		gas:       gas,
		objrt:     objrt,
		tx:        tx,
		txn:       txn,
		log:       log15.New("module", "vm"),
		gasCoinID: gasCoinID,
		inputs:    make([]slot, len(txn.Inputs)),
		consumed:  make(map[common.ObjectID]struct{}),
		arena:     packages.NewModuleArena(),
		verifier:  packages.StructuralVerifier(),
	}
}

// slotFor materializes and returns the slot behind an argument. Inputs are
// decoded on first touch; results were filled by earlier commands.
func (ctx *ExecutionContext) slotFor(arg types.Argument) (*slot, error) {
	switch arg.Kind {
	case types.GasCoinArg:
		if !ctx.gasSlot.filled {
			if err := ctx.fillObjectSlot(&ctx.gasSlot, ctx.gasCoinID, false); err != nil {
				return nil, err
			}
		}
		return &ctx.gasSlot, nil
	case types.InputArg:
		s := &ctx.inputs[arg.Index]
		if !s.filled {
			if err := ctx.fillInputSlot(s, ctx.txn.Inputs[arg.Index]); err != nil {
				return nil, err
			}
		}
		return s, nil
	default:
		return &ctx.results[arg.Index][arg.SubIndex], nil
	}
}

func (ctx *ExecutionContext) fillInputSlot(s *slot, in *TypedInput) error {
	switch in.Kind {
	case InputPure:
		if err := ctx.gas.ChargePureDecode(uint64(len(in.Pure))); err != nil {
			return err
		}
		v, err := DecodeValue(in.Pure, *in.Type)
		if err != nil {
			return err
		}
		s.value = v
		s.filled = true
		return nil
	case InputReceiving:
		return ctx.fillObjectSlot(s, in.Object.ID, true)
	default:
		return ctx.fillObjectSlot(s, in.Object.ID, false)
	}
}

func (ctx *ExecutionContext) fillObjectSlot(s *slot, id common.ObjectID, receiving bool) error {
	var (
		obj *types.Object
		err error
	)
	if receiving {
		obj, err = ctx.objrt.Receive(id, ctx.receivingParent())
	} else {
		obj, err = ctx.objrt.LoadObject(id)
	}
	if err != nil {
		return err
	}
	if err := ctx.gas.ChargeObjectRead(uint64(len(obj.Contents))); err != nil {
		return err
	}
	t, err := ctx.env.ResolveTypeTag(types.StructTypeTag(*obj.Type))
	if err != nil {
		return err
	}
	v, err := DecodeValue(obj.Contents, t)
	if err != nil {
		return err
	}
	oid := id
	s.value = v
	s.objectID = &oid
	s.filled = true
	return nil
}

// receivingParent is the address objects must be addressed to in order to
// be received: the transaction sender.
func (ctx *ExecutionContext) receivingParent() common.ObjectID {
	return common.ObjectID(ctx.tx.Sender())
}

// Argument resolves one typed argument into a runtime value according to
// its usage.
func (ctx *ExecutionContext) Argument(ta TypedArgument) (Value, error) {
	s, err := ctx.slotFor(ta.Arg)
	if err != nil {
		return nil, err
	}
	if s.moved || s.value == nil {
		return nil, fmt.Errorf("%w: %s", ErrValueMoved, describeArg(ta.Arg))
	}
	switch ta.Usage {
	case UsageMove:
		v := s.value
		s.value = nil
		s.moved = true
		if s.objectID != nil {
			ctx.consumed[*s.objectID] = struct{}{}
		}
		return v, nil
	case UsageCopy:
		if err := ctx.gas.ChargeCopy(SizeOf(s.value)); err != nil {
			return nil, err
		}
		return CopyValue(s.value), nil
	case UsageBorrowMut:
		if s.objectID != nil {
			ctx.objrt.MarkModified(*s.objectID)
		}
		if ta.Arg.Kind == types.GasCoinArg {
			ctx.objrt.MarkModified(ctx.gasCoinID)
		}
		return &RefValue{Cell: &s.value, Mutable: true}, nil
	default:
		return &RefValue{Cell: &s.value}, nil
	}
}

// PushResults appends the result values of the command at index idx.
func (ctx *ExecutionContext) PushResults(idx int, values []Value) {
	for len(ctx.results) <= idx {
		ctx.results = append(ctx.results, nil)
	}
	slots := make([]slot, len(values))
	for i, v := range values {
		slots[i] = slot{value: v, filled: true}
	}
	ctx.results[idx] = slots
}

// RegisterPackage records a package published or upgraded by this
// transaction and makes it visible to subsequent resolution.
func (ctx *ExecutionContext) RegisterPackage(vp *packages.VerifiedPackage) {
	ctx.newPackages = append(ctx.newPackages, vp)
	ctx.env.AddPackage(vp)
}

// Arena returns the transaction local module arena used for freshly
// published packages.
func (ctx *ExecutionContext) Arena() *packages.ModuleArena { return ctx.arena }

// Verifier returns the verifier applied to published modules.
func (ctx *ExecutionContext) Verifier() packages.Verifier { return ctx.verifier }

// lamportVersion computes the version stamped on every object written by
// this transaction: one past the newest version it read.
func (ctx *ExecutionContext) lamportVersion() uint64 {
	max := uint64(0)
	for _, lo := range ctx.objrt.Loaded() {
		if lo.Version > max {
			max = lo.Version
		}
	}
	return max + 1
}

// Finish extracts transaction effects. It runs on success and on failure
// alike: a failing command keeps the writes of the commands before it, and
// the gas spent stays spent.
func (ctx *ExecutionContext) Finish(failure error) (*types.TransactionEffects, error) {
	res, err := ctx.objrt.Finish()
	if err != nil {
		return nil, err
	}
	out := types.NewExecutionResults()
	out.UserEvents = res.Events
	version := ctx.lamportVersion()

	for _, id := range res.TransferOrder {
		rec := res.Transfers[id]
		contents, err := EncodeValue(rec.Value)
		if err != nil {
			return nil, err
		}
		tag := rec.Type.ToTypeTag().Struct
		out.WrittenObjects[id] = &types.Object{
			ID:       id,
			Version:  version,
			Owner:    rec.Owner,
			Type:     tag,
			Contents: contents,
		}
		ctx.gas.AccrueStorage(uint64(len(contents)))
		if _, loaded := ctx.objrt.Loaded()[id]; !loaded && !ctx.objrt.WasCreated(id) {
			out.UnwrappedObjectIDs[id] = struct{}{}
		}
	}
	for _, id := range res.Created {
		out.CreatedObjectIDs[id] = struct{}{}
	}
	for _, id := range res.Deleted {
		out.DeletedObjectIDs[id] = struct{}{}
		if obj, ok := ctx.objrt.inputs[id]; ok {
			ctx.gas.AccrueRebate(uint64(len(obj.Contents)))
		}
	}

	// mutated borrow targets write back in place with their original owner
	ctx.writeBackSlot(&ctx.gasSlot, out, version)
	for i := range ctx.inputs {
		ctx.writeBackSlot(&ctx.inputs[i], out, version)
	}

	// an input object moved into some container and never placed again is
	// wrapped
	for id := range ctx.consumed {
		if _, written := out.WrittenObjects[id]; written {
			continue
		}
		if _, deleted := out.DeletedObjectIDs[id]; deleted {
			continue
		}
		out.WrappedObjectIDs[id] = struct{}{}
	}
	wrapContainers := ctx.wrapContainers(out, res)

	// packages publish as immutable objects
	for _, vp := range ctx.newPackages {
		if failure != nil {
			break
		}
		contents, err := canonicalEnc.Marshal(vp.Stored())
		if err != nil {
			return nil, err
		}
		id := vp.StorageID()
		out.WrittenObjects[id] = &types.Object{
			ID:       id,
			Version:  vp.Version(),
			Owner:    types.NewImmutableOwner(),
			Contents: contents,
		}
		out.CreatedObjectIDs[id] = struct{}{}
		ctx.gas.AccrueStorage(uint64(len(contents)))
	}

	effects := &types.TransactionEffects{
		Status:                  statusOf(failure),
		Gas:                     ctx.gas.Summary(),
		Results:                 out,
		LoadedRuntimeObjects:    ctx.objrt.Loaded(),
		WrappedObjectContainers: wrapContainers,
	}
	ctx.log.Debug("Execution finished", "status", effects.Status.String(),
		"written", len(out.WrittenObjects), "gasUsed", ctx.gas.Used())
	return effects, nil
}

// wrapContainers attributes each wrapped object to the written object whose
// value embeds its ID. Attribution happens here, at write back, where both
// the wrapped ID and the containing value are in hand.
func (ctx *ExecutionContext) wrapContainers(out *types.ExecutionResults, res *RuntimeResults) map[common.ObjectID]common.ObjectID {
	containers := make(map[common.ObjectID]common.ObjectID)
	if len(out.WrappedObjectIDs) == 0 {
		return containers
	}
	type candidate struct {
		id    common.ObjectID
		value Value
	}
	var cands []candidate
	for _, id := range res.TransferOrder {
		cands = append(cands, candidate{id, res.Transfers[id].Value})
	}
	addSlot := func(s *slot) {
		if s.objectID == nil || s.value == nil || s.moved {
			return
		}
		if _, written := out.WrittenObjects[*s.objectID]; written {
			cands = append(cands, candidate{*s.objectID, s.value})
		}
	}
	addSlot(&ctx.gasSlot)
	for i := range ctx.inputs {
		addSlot(&ctx.inputs[i])
	}
	for wrapped := range out.WrappedObjectIDs {
		for _, c := range cands {
			if c.id == wrapped {
				continue
			}
			if valueHoldsAddress(c.value, wrapped.Address()) {
				containers[wrapped] = c.id
				break
			}
		}
	}
	return containers
}

// valueHoldsAddress reports whether an address occurs anywhere in a value
// tree. Object IDs live as address fields inside their struct values, so an
// embedded object is found by its ID.
func valueHoldsAddress(v Value, addr common.Address) bool {
	switch x := v.(type) {
	case AddressValue:
		return common.Address(x) == addr
	case *StructValue:
		for _, f := range x.Fields {
			if valueHoldsAddress(f, addr) {
				return true
			}
		}
	case *VectorValue:
		for _, e := range x.Elems {
			if valueHoldsAddress(e, addr) {
				return true
			}
		}
	case *RefValue:
		return valueHoldsAddress(*x.Cell, addr)
	}
	return false
}

func (ctx *ExecutionContext) writeBackSlot(s *slot, out *types.ExecutionResults, version uint64) {
	if s.objectID == nil || s.value == nil || s.moved {
		return
	}
	id := *s.objectID
	lo, ok := ctx.objrt.Loaded()[id]
	if !ok || !lo.IsModified {
		return
	}
	if _, already := out.WrittenObjects[id]; already {
		return
	}
	obj, ok := ctx.objrt.inputs[id]
	if !ok {
		return
	}
	contents, err := EncodeValue(s.value)
	if err != nil {
		ctx.log.Error("Failed to encode mutated object", "id", id.ShortString(), "err", err)
		return
	}
	out.WrittenObjects[id] = &types.Object{
		ID:       id,
		Version:  version,
		Owner:    obj.Owner,
		Type:     obj.Type,
		Contents: contents,
	}
	ctx.gas.AccrueStorage(uint64(len(contents)))
}

// statusOf classifies a failure into the effects status record.
func statusOf(failure error) types.ExecutionStatus {
	if failure == nil {
		return types.ExecutionStatus{Success: true, CommandIndex: -1}
	}
	st := types.ExecutionStatus{CommandIndex: -1, Message: failure.Error()}
	var ee *ExecutionError
	if errors.As(failure, &ee) {
		st.CommandIndex = ee.CommandIndex
	}
	var abort *AbortError
	switch {
	case errors.As(failure, &abort):
		st.Kind = "MoveAbort"
	case errors.Is(failure, ErrOutOfGas):
		st.Kind = "OutOfGas"
	case errors.Is(failure, ErrInvariantViolation):
		st.Kind = "InvariantViolation"
	default:
		st.Kind = "CommandFailure"
	}
	return st
}
