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

// Package vm implements the execution core: the per transaction resolver
// environment, the typing pass over programmable transactions, and the
// interpreter that runs typed commands against the object runtime under a
// gas meter.
package vm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/inconshreveable/log15"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// ExecutionRequest carries everything needed to execute one programmable
// transaction.
type ExecutionRequest struct {
	Tx          *types.TxContext
	GasCoin     common.ObjectID
	GasBudget   uint64
	GasPrice    uint64
	Transaction *types.ProgrammableTransaction
}

// Executor runs programmable transactions. It is safe for concurrent use:
// all per transaction state lives in the Env, ObjectRuntime and
// ExecutionContext created inside Execute.
type Executor struct {
	cfg      *params.ProtocolConfig
	cache    *packages.Cache
	analyzer *packages.Analyzer
	objects  ObjectResolver
	log      log15.Logger
}

// NewExecutor creates an executor over the given package cache and object
// store.
func NewExecutor(cfg *params.ProtocolConfig, cache *packages.Cache, analyzer *packages.Analyzer, objects ObjectResolver) *Executor {
	return &Executor{
		cfg:      cfg,
		cache:    cache,
		analyzer: analyzer,
		objects:  objects,
		log:      log15.New("module", "vm"),
	}
}

// Execute runs one transaction end to end: linkage analysis, typing,
// command interpretation and effects extraction. Effects are produced on
// every path; the returned error is reserved for invariant violations that
// make effects themselves impossible.
func (ex *Executor) Execute(req *ExecutionRequest) (*types.TransactionEffects, error) {
	gas := NewGasCharger(ex.cfg.Gas, req.GasBudget, req.GasPrice)
	objrt := NewObjectRuntime(ex.cfg, ex.objects, req.Tx)

	linkage, err := ex.analyzer.AnalyzeTransaction(req.Transaction)
	if err != nil {
		env := NewEnv(ex.cfg, ex.cache, packages.NewLinkage(nil))
		ctx := NewExecutionContext(ex.cfg, env, gas, objrt, req.Tx, &TypedTransaction{}, req.GasCoin)
		return ctx.Finish(err)
	}
	env := NewEnv(ex.cfg, ex.cache, linkage)

	typed, err := CheckTransaction(env, ex.cfg, ex.objects, req.Transaction)
	if err != nil {
		ctx := NewExecutionContext(ex.cfg, env, gas, objrt, req.Tx, &TypedTransaction{}, req.GasCoin)
		return ctx.Finish(err)
	}
	ctx := NewExecutionContext(ex.cfg, env, gas, objrt, req.Tx, typed, req.GasCoin)
	m := &machine{env: env, gas: gas, cfg: ex.cfg, objrt: objrt}

	for idx, cmd := range typed.Commands {
		if err := gas.ChargeCommand(); err != nil {
			return ctx.Finish(commandError(idx, err))
		}
		if err := ex.runCommand(m, ctx, objrt, idx, cmd); err != nil {
			return ctx.Finish(commandError(idx, err))
		}
	}
	if err := ex.checkUnusedValues(ctx, typed); err != nil {
		return ctx.Finish(err)
	}
	return ctx.Finish(nil)
}

// checkUnusedValues rejects transactions that leave a value without the
// drop ability dangling in a result slot.
func (ex *Executor) checkUnusedValues(ctx *ExecutionContext, typed *TypedTransaction) error {
	for cmdIdx, slots := range ctx.results {
		for sub, s := range slots {
			if s.value == nil || s.moved {
				continue
			}
			t := typed.ResultTypes[cmdIdx][sub]
			if !t.Abilities().HasDrop() {
				return commandError(cmdIdx, fmt.Errorf("%w: result %d.%d of type %s", ErrValueNotDroppable, cmdIdx, sub, t))
			}
		}
	}
	return nil
}

func (ex *Executor) runCommand(m *machine, ctx *ExecutionContext, objrt *ObjectRuntime, idx int, cmd TypedCommand) error {
	switch c := cmd.(type) {
	case *TMoveCall:
		return ex.runMoveCall(m, ctx, idx, c)
	case *TTransferObjects:
		return ex.runTransferObjects(ctx, objrt, c)
	case *TSplitCoins:
		return ex.runSplitCoins(ctx, objrt, idx, c)
	case *TMergeCoins:
		return ex.runMergeCoins(ctx, objrt, c)
	case *TMakeMoveVec:
		return ex.runMakeMoveVec(ctx, idx, c)
	case *TPublish:
		return ex.runPublish(m, ctx, objrt, idx, c)
	case *TUpgrade:
		return ex.runUpgrade(ctx, objrt, idx, c)
	}
	return fmt.Errorf("%w: unknown typed command %T", ErrInvariantViolation, cmd)
}

func (ex *Executor) runMoveCall(m *machine, ctx *ExecutionContext, idx int, c *TMoveCall) error {
	if err := ctx.gas.ChargeMoveCall(); err != nil {
		return err
	}
	fn := c.Function
	args := make([]Value, 0, len(fn.Params))
	for _, ta := range c.Arguments {
		v, err := ctx.Argument(ta)
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	if fn.TxContext != types.TxContextNone {
		tcv, err := ex.txContextValue(ctx)
		if err != nil {
			return err
		}
		if fn.Params[len(fn.Params)-1].Kind == TReference {
			var cell Value = tcv
			args = append(args, &RefValue{Cell: &cell, Mutable: fn.TxContext == types.TxContextMutable})
		} else {
			args = append(args, tcv)
		}
	}
	results, err := m.call(fn, args, 1)
	if err != nil {
		return err
	}
	ctx.PushResults(idx, results)
	return nil
}

// txContextValue materializes the framework transaction context struct from
// the native transaction state.
func (ex *Executor) txContextValue(ctx *ExecutionContext) (*StructValue, error) {
	dt, err := ctx.env.resolveDatatype(ex.cfg.Framework.Framework, txContextModule, txContextName, nil)
	if err != nil {
		return nil, err
	}
	return buildStruct(dt, map[string]Value{
		"sender":             AddressValue(ctx.tx.Sender()),
		"epoch":              U64Value(ctx.tx.Epoch()),
		"epoch_timestamp_ms": U64Value(ctx.tx.EpochTimestamp()),
		"ids_created":        U64Value(ctx.tx.IDsCreated()),
	})
}

func (ex *Executor) runTransferObjects(ctx *ExecutionContext, objrt *ObjectRuntime, c *TTransferObjects) error {
	addrVal, err := ctx.Argument(c.Address)
	if err != nil {
		return err
	}
	addr, ok := addrVal.(AddressValue)
	if !ok {
		return fmt.Errorf("%w: transfer recipient is not an address", ErrInvariantViolation)
	}
	for _, ta := range c.Objects {
		if err := ctx.gas.ChargeTransfer(); err != nil {
			return err
		}
		v, err := ctx.Argument(ta)
		if err != nil {
			return err
		}
		sv, ok := v.(*StructValue)
		if !ok {
			return fmt.Errorf("%w: transferred value is not an object", ErrInvariantViolation)
		}
		if err := objrt.Transfer(ta.Type, sv, types.NewAddressOwner(common.Address(addr))); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Executor) runSplitCoins(ctx *ExecutionContext, objrt *ObjectRuntime, idx int, c *TSplitCoins) error {
	ref, err := ctx.Argument(c.Coin)
	if err != nil {
		return err
	}
	coin, err := coinBehind(ref)
	if err != nil {
		return err
	}
	balance := uint64(coin.Fields[1].(U64Value))
	results := make([]Value, 0, len(c.Amounts))
	for _, ta := range c.Amounts {
		if err := ctx.gas.ChargeSplit(); err != nil {
			return err
		}
		av, err := ctx.Argument(ta)
		if err != nil {
			return err
		}
		amtVal, ok := av.(U64Value)
		if !ok {
			return fmt.Errorf("%w: split amount is not u64", ErrInvariantViolation)
		}
		amount := uint64(amtVal)
		if amount > balance {
			return fmt.Errorf("%w: splitting %d from balance %d", ErrCoinBalance, amount, balance)
		}
		balance -= amount
		id, err := objrt.FreshID()
		if err != nil {
			return err
		}
		results = append(results, &StructValue{
			Type:   c.CoinType.Datatype,
			Fields: []Value{AddressValue(id.Address()), U64Value(amount)},
		})
	}
	coin.Fields[1] = U64Value(balance)
	ctx.PushResults(idx, results)
	return nil
}

func (ex *Executor) runMergeCoins(ctx *ExecutionContext, objrt *ObjectRuntime, c *TMergeCoins) error {
	ref, err := ctx.Argument(c.Destination)
	if err != nil {
		return err
	}
	dest, err := coinBehind(ref)
	if err != nil {
		return err
	}
	balance := uint64(dest.Fields[1].(U64Value))
	for _, ta := range c.Sources {
		if err := ctx.gas.ChargeMerge(); err != nil {
			return err
		}
		v, err := ctx.Argument(ta)
		if err != nil {
			return err
		}
		src, ok := v.(*StructValue)
		if !ok || len(src.Fields) < 2 {
			return fmt.Errorf("%w: merge source is not a coin", ErrInvariantViolation)
		}
		srcBal, ok := src.Fields[1].(U64Value)
		if !ok {
			return fmt.Errorf("%w: merge source balance is not u64", ErrInvariantViolation)
		}
		add := uint64(srcBal)
		if balance+add < balance {
			return ErrCoinOverflow
		}
		balance += add
		id, err := src.ObjectAddress()
		if err != nil {
			return err
		}
		objrt.DeleteID(id)
	}
	dest.Fields[1] = U64Value(balance)
	return nil
}

func (ex *Executor) runMakeMoveVec(ctx *ExecutionContext, idx int, c *TMakeMoveVec) error {
	if err := ctx.gas.ChargeMakeVec(uint64(len(c.Elements))); err != nil {
		return err
	}
	elems := make([]Value, len(c.Elements))
	for i, ta := range c.Elements {
		v, err := ctx.Argument(ta)
		if err != nil {
			return err
		}
		elems[i] = v
	}
	ctx.PushResults(idx, []Value{&VectorValue{Elem: c.ElemType, Elems: elems}})
	return nil
}

func (ex *Executor) runPublish(m *machine, ctx *ExecutionContext, objrt *ObjectRuntime, idx int, c *TPublish) error {
	id, err := objrt.FreshID()
	if err != nil {
		return err
	}
	moduleBytes, decoded, err := ex.prepareModules(ctx, c.Modules, id)
	if err != nil {
		return err
	}
	deps, err := ex.resolveDeps(ctx, c.Dependencies)
	if err != nil {
		return err
	}
	pkg := packages.NewInitialPackage(id, moduleBytes, decoded, deps)
	vp, err := packages.LoadPackage(pkg, ctx.Verifier(), ctx.Arena())
	if err != nil {
		return err
	}
	ctx.RegisterPackage(vp)

	if err := ex.runInitFunctions(m, ctx, vp); err != nil {
		return err
	}

	capID, err := objrt.FreshID()
	if err != nil {
		return err
	}
	capDT, err := ctx.env.resolveDatatype(ex.cfg.Framework.Framework, packageModule, upgradeCapName, nil)
	if err != nil {
		return err
	}
	capValue, err := buildStruct(capDT, map[string]Value{
		"id":      AddressValue(capID.Address()),
		"package": AddressValue(id.Address()),
		"version": U64Value(1),
		"policy":  U8Value(types.UpgradePolicyCompatible),
	})
	if err != nil {
		return err
	}
	ctx.PushResults(idx, []Value{capValue})
	ex.log.Info("Published package", "id", id.ShortString(), "modules", len(decoded))
	return nil
}

func (ex *Executor) runUpgrade(ctx *ExecutionContext, objrt *ObjectRuntime, idx int, c *TUpgrade) error {
	if err := ctx.gas.ChargeUpgrade(); err != nil {
		return err
	}
	ticketVal, err := ctx.Argument(c.Ticket)
	if err != nil {
		return err
	}
	ticket, ok := ticketVal.(*StructValue)
	if !ok {
		return fmt.Errorf("%w: ticket is not a struct", ErrUpgradeTicket)
	}
	ticketPkg, err := structField(ticket, "package")
	if err != nil {
		return err
	}
	ticketAddr, ok := ticketPkg.(AddressValue)
	if !ok {
		return fmt.Errorf("%w: ticket package field is not an address", ErrUpgradeTicket)
	}
	if common.ObjectID(ticketAddr) != c.Package {
		return fmt.Errorf("%w: ticket authorizes %s, upgrading %s", ErrUpgradeTicket,
			common.Address(ticketAddr).ShortString(), c.Package.ShortString())
	}
	policyVal, err := structField(ticket, "policy")
	if err != nil {
		return err
	}
	policyU8, ok := policyVal.(U8Value)
	if !ok {
		return fmt.Errorf("%w: ticket policy field is not u8", ErrUpgradeTicket)
	}
	policy := byte(policyU8)
	if !types.ValidUpgradePolicy(policy) {
		return fmt.Errorf("%w: policy %d", ErrUpgradePolicy, policy)
	}

	prev, err := ex.cache.GetPackage(c.Package)
	if err != nil {
		return err
	}
	if prev == nil {
		return fmt.Errorf("%w: package %s", ErrUpgradeTicket, c.Package.ShortString())
	}

	id, err := objrt.FreshID()
	if err != nil {
		return err
	}
	moduleBytes, decoded, err := ex.prepareModules(ctx, c.Modules, id)
	if err != nil {
		return err
	}
	if err := checkUpgradeCompat(prev, decoded, policy); err != nil {
		return err
	}
	deps, err := ex.resolveDeps(ctx, c.Dependencies)
	if err != nil {
		return err
	}
	pkg := packages.NewUpgradedPackage(prev.Stored(), id, moduleBytes, decoded, deps)
	vp, err := packages.LoadPackage(pkg, ctx.Verifier(), ctx.Arena())
	if err != nil {
		return err
	}
	ctx.RegisterPackage(vp)

	capRef, err := structField(ticket, "cap")
	if err != nil {
		return err
	}
	receiptDT, err := ctx.env.resolveDatatype(ex.cfg.Framework.Framework, packageModule, upgradeReceipt, nil)
	if err != nil {
		return err
	}
	receipt, err := buildStruct(receiptDT, map[string]Value{
		"cap":     capRef,
		"package": AddressValue(id.Address()),
	})
	if err != nil {
		return err
	}
	ctx.PushResults(idx, []Value{receipt})
	ex.log.Info("Upgraded package", "from", c.Package.ShortString(), "to", id.ShortString(), "version", vp.Version())
	return nil
}

// prepareModules decodes published module bytes, stamps them with their
// assigned storage address and re-encodes the stored form.
func (ex *Executor) prepareModules(ctx *ExecutionContext, raw [][]byte, id common.ObjectID) (map[string][]byte, []*bytecode.Module, error) {
	moduleBytes := make(map[string][]byte, len(raw))
	decoded := make([]*bytecode.Module, 0, len(raw))
	for _, bz := range raw {
		if err := ctx.gas.ChargePublish(uint64(len(bz))); err != nil {
			return nil, nil, err
		}
		m, err := bytecode.DecodeModule(bz)
		if err != nil {
			return nil, nil, err
		}
		m.Address = id.Address()
		stored, err := bytecode.EncodeModule(m)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := moduleBytes[m.Name]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate module %s", ErrArgumentType, m.Name)
		}
		moduleBytes[m.Name] = stored
		decoded = append(decoded, m)
	}
	return moduleBytes, decoded, nil
}

// resolveDeps pins each declared dependency to the version effective under
// the current linkage (including packages published earlier in this
// transaction).
func (ex *Executor) resolveDeps(ctx *ExecutionContext, deps []common.ObjectID) (map[common.ObjectID]packages.UpgradeInfo, error) {
	out := make(map[common.ObjectID]packages.UpgradeInfo, len(deps))
	for _, dep := range deps {
		vp, err := ctx.env.resolvePackage(dep)
		if err != nil {
			return nil, err
		}
		out[vp.OriginalID()] = packages.UpgradeInfo{StorageID: vp.StorageID(), Version: vp.Version()}
	}
	return out, nil
}

// runInitFunctions executes the init function of every freshly published
// module that declares one.
func (ex *Executor) runInitFunctions(m *machine, ctx *ExecutionContext, vp *packages.VerifiedPackage) error {
	for _, name := range vp.ModuleNames() {
		mod, _ := vp.Module(name)
		def, ok := mod.Function(bytecode.InitFunctionName)
		if !ok {
			continue
		}
		fn, err := ctx.env.loadFunctionWith(vp.StorageID(), name, def.Name, nil)
		if err != nil {
			return err
		}
		var args []Value
		switch fn.TxContext {
		case types.TxContextNone:
			if len(fn.Params) != 0 {
				return fmt.Errorf("%w: init of %s takes unsupported parameters", ErrArgumentType, name)
			}
		default:
			if len(fn.Params) != 1 {
				return fmt.Errorf("%w: init of %s takes unsupported parameters", ErrArgumentType, name)
			}
			tcv, err := ex.txContextValue(ctx)
			if err != nil {
				return err
			}
			if fn.Params[0].Kind == TReference {
				var cell Value = tcv
				args = append(args, &RefValue{Cell: &cell, Mutable: fn.TxContext == types.TxContextMutable})
			} else {
				args = append(args, tcv)
			}
		}
		if _, err := m.call(fn, args, 1); err != nil {
			return err
		}
	}
	return nil
}

// checkUpgradeCompat enforces the declared upgrade policy structurally:
// existing types must survive every policy; additive and dep-only policies
// additionally forbid dropping functions, and dep-only forbids new code.
func checkUpgradeCompat(prev *packages.VerifiedPackage, next []*bytecode.Module, policy byte) error {
	nextByName := make(map[string]*bytecode.Module, len(next))
	for _, m := range next {
		nextByName[m.Name] = m
	}
	for _, name := range prev.ModuleNames() {
		old, _ := prev.Module(name)
		repl, ok := nextByName[name]
		if !ok {
			return fmt.Errorf("%w: module %s removed", ErrUpgradePolicy, name)
		}
		for i := range old.Structs {
			if _, ok := repl.Struct(old.Structs[i].Name); !ok {
				return fmt.Errorf("%w: type %s::%s removed", ErrUpgradePolicy, name, old.Structs[i].Name)
			}
		}
		if policy == types.UpgradePolicyAdditive || policy == types.UpgradePolicyDepOnly {
			for i := range old.Functions {
				if _, ok := repl.Function(old.Functions[i].Name); !ok {
					return fmt.Errorf("%w: function %s::%s removed", ErrUpgradePolicy, name, old.Functions[i].Name)
				}
			}
		}
		if policy == types.UpgradePolicyDepOnly {
			if len(repl.Functions) != len(old.Functions) || len(repl.Structs) != len(old.Structs) {
				return fmt.Errorf("%w: dep-only upgrade changes module %s", ErrUpgradePolicy, name)
			}
		}
	}
	return nil
}

// coinBehind unwraps a coin reference into its struct value.
func coinBehind(v Value) (*StructValue, error) {
	ref, ok := v.(*RefValue)
	if !ok {
		return nil, fmt.Errorf("%w: expected a coin reference", ErrInvariantViolation)
	}
	coin, ok := (*ref.Cell).(*StructValue)
	if !ok {
		return nil, fmt.Errorf("%w: reference does not hold a coin", ErrNotACoin)
	}
	if len(coin.Fields) < 2 {
		return nil, fmt.Errorf("%w: malformed coin value", ErrNotACoin)
	}
	if _, ok := coin.Fields[1].(U64Value); !ok {
		return nil, fmt.Errorf("%w: coin balance is not u64", ErrNotACoin)
	}
	return coin, nil
}

// buildStruct fills a datatype's fields by name, zeroing anything the
// caller does not supply.
func buildStruct(dt *Datatype, fills map[string]Value) (*StructValue, error) {
	fields := make([]Value, len(dt.Fields()))
	for i, fd := range dt.Fields() {
		if v, ok := fills[fd.Name]; ok {
			fields[i] = v
			continue
		}
		fields[i] = zeroValue(fd.Type)
	}
	return &StructValue{Type: dt, Fields: fields}, nil
}

// zeroValue constructs the zero of a type.
func zeroValue(t Type) Value {
	switch t.Kind {
	case TBool:
		return BoolValue(false)
	case TU8:
		return U8Value(0)
	case TU16:
		return U16Value(0)
	case TU32:
		return U32Value(0)
	case TU64:
		return U64Value(0)
	case TU128:
		return U128Value{Int: uint256.NewInt(0)}
	case TU256:
		return U256Value{Int: uint256.NewInt(0)}
	case TAddress:
		return AddressValue{}
	case TVector:
		return &VectorValue{Elem: *t.Elem}
	case TDatatype:
		fields := make([]Value, len(t.Datatype.Fields()))
		for i, fd := range t.Datatype.Fields() {
			fields[i] = zeroValue(fd.Type)
		}
		return &StructValue{Type: t.Datatype, Fields: fields}
	}
	return nil
}

// structField returns the value of a named field.
func structField(s *StructValue, name string) (Value, error) {
	idx := s.Type.FieldIndex(name)
	if idx < 0 || idx >= len(s.Fields) {
		return nil, fmt.Errorf("%w: no field %q on %s", ErrInvariantViolation, name, s.Type.Name)
	}
	return s.Fields[idx], nil
}
