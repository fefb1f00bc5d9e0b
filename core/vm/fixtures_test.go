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
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
	"github.com/MystenLabs/sui-sub065/storage"
)

var (
	testSender    = common.HexToAddress("0xa11ce")
	testRecipient = common.HexToAddress("0xb0b")
	counterPkgID  = common.HexToObjectID("0x7001")
	testGasCoinID = common.HexToObjectID("0x9a5")
	testDigest    = common.HexToDigest("0xd16e57")
)

const testGasBalance = uint64(1_000_000)

func mustEncode(m *bytecode.Module) []byte {
	bz, err := bytecode.EncodeModule(m)
	if err != nil {
		panic(err)
	}
	return bz
}

func makePackage(id common.ObjectID, modules []*bytecode.Module) *packages.MovePackage {
	moduleBytes := make(map[string][]byte, len(modules))
	for _, m := range modules {
		moduleBytes[m.Name] = mustEncode(m)
	}
	return packages.NewInitialPackage(id, moduleBytes, modules, nil)
}

// frameworkTestPackage assembles a minimal framework package: the coin and
// transaction context layouts every transaction depends on, the upgrade
// machinery, and the functions with native semantics. Native bodies are a
// lone RET that never executes; package::authorize_upgrade carries real
// bytecode.
func frameworkTestPackage(cfg *params.ProtocolConfig) *packages.MovePackage {
	fw := cfg.Framework.Framework
	addr := fw.Address()
	txCtxRef := bytecode.SigRef(true, bytecode.SigDatatypeOf(addr, "tx_context", "TxContext"))
	typeParam := func(i uint16) bytecode.SigType {
		return bytecode.SigType{Kind: bytecode.SigTypeParam, TypeParam: i}
	}
	u8 := bytecode.SigType{Kind: bytecode.SigU8}
	placeholder := []bytecode.Instruction{bytecode.Ins(bytecode.RET)}

	sui := &bytecode.Module{
		Name:    "sui",
		Address: addr,
		Structs: []bytecode.StructDef{{
			Name:      "SUI",
			Abilities: bytecode.AbilitySet(bytecode.AbilityStore | bytecode.AbilityDrop),
		}},
	}
	coin := &bytecode.Module{
		Name:    "coin",
		Address: addr,
		Structs: []bytecode.StructDef{{
			Name:       "Coin",
			Abilities:  bytecode.AbilitySet(bytecode.AbilityKey | bytecode.AbilityStore),
			TypeParams: []bytecode.TypeParam{{IsPhantom: true}},
			Fields: []bytecode.Field{
				{Name: "id", Type: bytecode.SigAddressType()},
				{Name: "balance", Type: bytecode.SigU64Type()},
			},
		}},
	}
	txContext := &bytecode.Module{
		Name:    "tx_context",
		Address: addr,
		Structs: []bytecode.StructDef{{
			Name:      "TxContext",
			Abilities: bytecode.AbilitySet(bytecode.AbilityDrop),
			Fields: []bytecode.Field{
				{Name: "sender", Type: bytecode.SigAddressType()},
				{Name: "epoch", Type: bytecode.SigU64Type()},
				{Name: "epoch_timestamp_ms", Type: bytecode.SigU64Type()},
				{Name: "ids_created", Type: bytecode.SigU64Type()},
			},
		}},
		Functions: []bytecode.FnDef{{
			Name:       "fresh_address",
			Visibility: bytecode.Public,
			Params:     []bytecode.SigType{txCtxRef},
			Returns:    []bytecode.SigType{bytecode.SigAddressType()},
			Code:       placeholder,
		}},
	}
	event := &bytecode.Module{
		Name:    "event",
		Address: addr,
		Functions: []bytecode.FnDef{{
			Name:       "emit",
			Visibility: bytecode.Public,
			TypeParams: []bytecode.AbilitySet{bytecode.AbilitySet(bytecode.AbilityCopy | bytecode.AbilityDrop)},
			Params:     []bytecode.SigType{typeParam(0)},
			Code:       placeholder,
		}},
	}
	transfer := &bytecode.Module{
		Name:    "transfer",
		Address: addr,
		Functions: []bytecode.FnDef{
			{
				Name:       "public_transfer",
				Visibility: bytecode.Public,
				TypeParams: []bytecode.AbilitySet{bytecode.AbilitySet(bytecode.AbilityKey | bytecode.AbilityStore)},
				Params:     []bytecode.SigType{typeParam(0), bytecode.SigAddressType()},
				Code:       placeholder,
			},
			{
				Name:       "share_object",
				Visibility: bytecode.Public,
				TypeParams: []bytecode.AbilitySet{bytecode.AbilitySet(bytecode.AbilityKey)},
				Params:     []bytecode.SigType{typeParam(0)},
				Code:       placeholder,
			},
			{
				Name:       "freeze_object",
				Visibility: bytecode.Public,
				TypeParams: []bytecode.AbilitySet{bytecode.AbilitySet(bytecode.AbilityKey)},
				Params:     []bytecode.SigType{typeParam(0)},
				Code:       placeholder,
			},
		},
	}
	object := &bytecode.Module{
		Name:    "object",
		Address: addr,
		Functions: []bytecode.FnDef{{
			Name:       "delete_id",
			Visibility: bytecode.Public,
			Params:     []bytecode.SigType{bytecode.SigAddressType()},
			Code:       placeholder,
		}},
	}

	capSig := bytecode.SigDatatypeOf(addr, "package", "UpgradeCap")
	ticketSig := bytecode.SigDatatypeOf(addr, "package", "UpgradeTicket")
	pkg := &bytecode.Module{
		Name:    "package",
		Address: addr,
		Structs: []bytecode.StructDef{
			{
				Name:      "UpgradeCap",
				Abilities: bytecode.AbilitySet(bytecode.AbilityKey | bytecode.AbilityStore),
				Fields: []bytecode.Field{
					{Name: "id", Type: bytecode.SigAddressType()},
					{Name: "package", Type: bytecode.SigAddressType()},
					{Name: "version", Type: bytecode.SigU64Type()},
					{Name: "policy", Type: u8},
				},
			},
			{
				Name: "UpgradeTicket",
				Fields: []bytecode.Field{
					{Name: "cap", Type: bytecode.SigAddressType()},
					{Name: "package", Type: bytecode.SigAddressType()},
					{Name: "policy", Type: u8},
				},
			},
			{
				Name:      "UpgradeReceipt",
				Abilities: bytecode.AbilitySet(bytecode.AbilityDrop),
				Fields: []bytecode.Field{
					{Name: "cap", Type: bytecode.SigAddressType()},
					{Name: "package", Type: bytecode.SigAddressType()},
				},
			},
		},
		Functions: []bytecode.FnDef{{
			// authorize_upgrade(cap: UpgradeCap): (UpgradeCap, UpgradeTicket)
			Name:       "authorize_upgrade",
			Visibility: bytecode.Public,
			Params:     []bytecode.SigType{capSig},
			Returns:    []bytecode.SigType{capSig, ticketSig},
			Locals: []bytecode.SigType{
				bytecode.SigAddressType(), // id
				bytecode.SigAddressType(), // package
				bytecode.SigU64Type(),     // version
				u8,                        // policy
			},
			Code: []bytecode.Instruction{
				bytecode.InsA(bytecode.MOVELOC, 0),
				bytecode.InsA(bytecode.UNPACK, 0),
				bytecode.InsA(bytecode.STLOC, 4),
				bytecode.InsA(bytecode.STLOC, 3),
				bytecode.InsA(bytecode.STLOC, 2),
				bytecode.InsA(bytecode.STLOC, 1),
				bytecode.InsA(bytecode.COPYLOC, 1),
				bytecode.InsA(bytecode.COPYLOC, 2),
				bytecode.InsA(bytecode.COPYLOC, 3),
				bytecode.InsA(bytecode.COPYLOC, 4),
				bytecode.InsA(bytecode.PACK, 0),
				bytecode.InsA(bytecode.COPYLOC, 1),
				bytecode.InsA(bytecode.COPYLOC, 2),
				bytecode.InsA(bytecode.COPYLOC, 4),
				bytecode.InsA(bytecode.PACK, 1),
				bytecode.Ins(bytecode.RET),
			},
		}},
	}

	return makePackage(fw, []*bytecode.Module{sui, coin, txContext, event, transfer, object, pkg})
}

// counterTestPackage is a user package resident in the store: a Counter
// object type plus entry points exercising natives, arithmetic, events and
// aborts.
func counterTestPackage(cfg *params.ProtocolConfig) *packages.MovePackage {
	fw := cfg.Framework.Framework.Address()
	addr := counterPkgID.Address()
	counterSig := bytecode.SigDatatypeOf(addr, "counter", "Counter")
	bumpedSig := bytecode.SigDatatypeOf(addr, "counter", "Bumped")
	gasCoinSig := bytecode.SigDatatypeOf(fw, "coin", "Coin", bytecode.SigDatatypeOf(fw, "sui", "SUI"))

	counter := &bytecode.Module{
		Name:         "counter",
		Address:      addr,
		Dependencies: []common.Address{fw},
		Structs: []bytecode.StructDef{
			{
				Name:      "Counter",
				Abilities: bytecode.AbilitySet(bytecode.AbilityKey | bytecode.AbilityStore),
				Fields: []bytecode.Field{
					{Name: "id", Type: bytecode.SigAddressType()},
					{Name: "value", Type: bytecode.SigU64Type()},
				},
			},
			{
				Name:      "Bumped",
				Abilities: bytecode.AbilitySet(bytecode.AbilityCopy | bytecode.AbilityDrop),
				Fields: []bytecode.Field{
					{Name: "value", Type: bytecode.SigU64Type()},
				},
			},
			{
				Name:      "Box",
				Abilities: bytecode.AbilitySet(bytecode.AbilityKey | bytecode.AbilityStore),
				Fields: []bytecode.Field{
					{Name: "id", Type: bytecode.SigAddressType()},
					{Name: "inner", Type: counterSig},
				},
			},
		},
		Handles: []bytecode.FunctionRef{
			{Address: fw, Module: "tx_context", Name: "fresh_address"},
			{Address: fw, Module: "transfer", Name: "public_transfer", TypeArgs: []bytecode.SigType{counterSig}},
			{Address: fw, Module: "event", Name: "emit", TypeArgs: []bytecode.SigType{bumpedSig}},
			{Address: fw, Module: "transfer", Name: "share_object", TypeArgs: []bytecode.SigType{counterSig}},
			{Address: fw, Module: "transfer", Name: "public_transfer", TypeArgs: []bytecode.SigType{bytecode.SigDatatypeOf(addr, "counter", "Box")}},
		},
		Functions: []bytecode.FnDef{
			{
				// create(recipient: address, ctx: &mut TxContext)
				Name:       "create",
				Visibility: bytecode.Public,
				IsEntry:    true,
				Params: []bytecode.SigType{
					bytecode.SigAddressType(),
					bytecode.SigRef(true, bytecode.SigDatatypeOf(fw, "tx_context", "TxContext")),
				},
				Locals: []bytecode.SigType{bytecode.SigAddressType()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.MOVELOC, 1),
					bytecode.InsA(bytecode.CALL, 0), // fresh_address
					bytecode.InsA(bytecode.STLOC, 2),
					bytecode.InsA(bytecode.COPYLOC, 2),
					bytecode.InsA(bytecode.LDU64, 0),
					bytecode.InsA(bytecode.PACK, 0), // Counter{id, 0}
					bytecode.InsA(bytecode.COPYLOC, 0),
					bytecode.InsA(bytecode.CALL, 1), // public_transfer
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				// share(ctx: &mut TxContext)
				Name:       "share",
				Visibility: bytecode.Public,
				IsEntry:    true,
				Params: []bytecode.SigType{
					bytecode.SigRef(true, bytecode.SigDatatypeOf(fw, "tx_context", "TxContext")),
				},
				Locals: []bytecode.SigType{bytecode.SigAddressType()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.MOVELOC, 0),
					bytecode.InsA(bytecode.CALL, 0),
					bytecode.InsA(bytecode.STLOC, 1),
					bytecode.InsA(bytecode.COPYLOC, 1),
					bytecode.InsA(bytecode.LDU64, 0),
					bytecode.InsA(bytecode.PACK, 0),
					bytecode.InsA(bytecode.CALL, 3), // share_object
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				// bump(c: Counter): Counter — increments and emits Bumped
				Name:       "bump",
				Visibility: bytecode.Public,
				Params:     []bytecode.SigType{counterSig},
				Returns:    []bytecode.SigType{counterSig},
				Locals:     []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.MOVELOC, 0),
					bytecode.InsA(bytecode.UNPACK, 0),
					bytecode.InsA(bytecode.STLOC, 1),
					bytecode.InsA(bytecode.COPYLOC, 1),
					bytecode.InsA(bytecode.LDU64, 1),
					bytecode.Ins(bytecode.ADD),
					bytecode.InsA(bytecode.STLOC, 1),
					bytecode.InsA(bytecode.COPYLOC, 1),
					bytecode.InsA(bytecode.PACK, 0), // Counter{id, value+1}
					bytecode.InsA(bytecode.COPYLOC, 1),
					bytecode.InsA(bytecode.PACK, 1), // Bumped{value+1}
					bytecode.InsA(bytecode.CALL, 2), // event::emit
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				// abort_with(code: u64)
				Name:       "abort_with",
				Visibility: bytecode.Public,
				IsEntry:    true,
				Params:     []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.MOVELOC, 0),
					bytecode.Ins(bytecode.ABORT),
				},
			},
			{
				// wrap(c: Counter, recipient: address, ctx: &mut TxContext) —
				// packs the counter into a fresh Box and transfers the box
				Name:       "wrap",
				Visibility: bytecode.Public,
				IsEntry:    true,
				Params: []bytecode.SigType{
					counterSig,
					bytecode.SigAddressType(),
					bytecode.SigRef(true, bytecode.SigDatatypeOf(fw, "tx_context", "TxContext")),
				},
				Locals: []bytecode.SigType{bytecode.SigAddressType()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.MOVELOC, 2),
					bytecode.InsA(bytecode.CALL, 0), // fresh_address
					bytecode.InsA(bytecode.STLOC, 3),
					bytecode.InsA(bytecode.COPYLOC, 3),
					bytecode.InsA(bytecode.MOVELOC, 0),
					bytecode.InsA(bytecode.PACK, 2), // Box{id, inner}
					bytecode.InsA(bytecode.COPYLOC, 1),
					bytecode.InsA(bytecode.CALL, 4), // public_transfer<Box>
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				// burn(c: Coin<SUI>) — consumes a coin without placing it
				Name:       "burn",
				Visibility: bytecode.Public,
				Params:     []bytecode.SigType{gasCoinSig},
				Code: []bytecode.Instruction{
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				// checked_div(a: u64, b: u64): u64
				Name:       "checked_div",
				Visibility: bytecode.Public,
				Params:     []bytecode.SigType{bytecode.SigU64Type(), bytecode.SigU64Type()},
				Returns:    []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.MOVELOC, 0),
					bytecode.InsA(bytecode.MOVELOC, 1),
					bytecode.Ins(bytecode.DIV),
					bytecode.Ins(bytecode.RET),
				},
			},
		},
	}
	return makePackage(counterPkgID, []*bytecode.Module{counter})
}

// greeterModules builds the encoded module set of a publishable package.
// answer() distinguishes the versions; v2 adds a function and a type on top
// of v1. The modules avoid naming their own types in signatures: published
// module bytes carry a zero address until publish stamps them.
func greeterModules(cfg *params.ProtocolConfig, version int) [][]byte {
	fw := cfg.Framework.Framework.Address()
	m := &bytecode.Module{
		Name:         "greeter",
		Dependencies: []common.Address{fw},
		Structs: []bytecode.StructDef{{
			Name:      "Thing",
			Abilities: bytecode.AbilitySet(bytecode.AbilityStore),
			Fields:    []bytecode.Field{{Name: "value", Type: bytecode.SigU64Type()}},
		}},
		Functions: []bytecode.FnDef{
			{
				Name:   "init",
				Params: []bytecode.SigType{bytecode.SigRef(true, bytecode.SigDatatypeOf(fw, "tx_context", "TxContext"))},
				Code:   []bytecode.Instruction{bytecode.Ins(bytecode.RET)},
			},
			{
				Name:       "answer",
				Visibility: bytecode.Public,
				Returns:    []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.LDU64, uint64(40+version)),
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				Name:    "hidden",
				Returns: []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.LDU64, 0),
					bytecode.Ins(bytecode.RET),
				},
			},
		},
	}
	if version >= 2 {
		m.Structs = append(m.Structs, bytecode.StructDef{
			Name:      "Widget",
			Abilities: bytecode.AbilitySet(bytecode.AbilityStore),
			Fields:    []bytecode.Field{{Name: "value", Type: bytecode.SigU64Type()}},
		})
		m.Functions = append(m.Functions, bytecode.FnDef{
			Name:       "extra",
			Visibility: bytecode.Public,
			Returns:    []bytecode.SigType{bytecode.SigU64Type()},
			Code: []bytecode.Instruction{
				bytecode.InsA(bytecode.LDU64, 7),
				bytecode.Ins(bytecode.RET),
			},
		})
	}
	return [][]byte{mustEncode(m)}
}

// callerModules builds a publishable package whose init calls straight into
// target::greeter::answer, so publishing it exercises resolution of a
// package that only exists in the transaction so far.
func callerModules(target common.ObjectID) [][]byte {
	m := &bytecode.Module{
		Name:         "caller",
		Dependencies: []common.Address{target.Address()},
		Handles: []bytecode.FunctionRef{
			{Address: target.Address(), Module: "greeter", Name: "answer"},
		},
		Functions: []bytecode.FnDef{
			{
				Name: "init",
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.CALL, 0),
					bytecode.Ins(bytecode.POP),
					bytecode.Ins(bytecode.RET),
				},
			},
			{
				Name:       "relay",
				Visibility: bytecode.Public,
				Returns:    []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.CALL, 0),
					bytecode.Ins(bytecode.RET),
				},
			},
		},
	}
	return [][]byte{mustEncode(m)}
}

// greeterModulesDroppingThing is an upgrade candidate that removes the Thing
// type, violating every upgrade policy.
func greeterModulesDroppingThing(cfg *params.ProtocolConfig) [][]byte {
	fw := cfg.Framework.Framework.Address()
	m := &bytecode.Module{
		Name:         "greeter",
		Dependencies: []common.Address{fw},
		Functions: []bytecode.FnDef{
			{
				Name:   "init",
				Params: []bytecode.SigType{bytecode.SigRef(true, bytecode.SigDatatypeOf(fw, "tx_context", "TxContext"))},
				Code:   []bytecode.Instruction{bytecode.Ins(bytecode.RET)},
			},
			{
				Name:       "answer",
				Visibility: bytecode.Public,
				Returns:    []bytecode.SigType{bytecode.SigU64Type()},
				Code: []bytecode.Instruction{
					bytecode.InsA(bytecode.LDU64, 42),
					bytecode.Ins(bytecode.RET),
				},
			},
		},
	}
	return [][]byte{mustEncode(m)}
}

// counterContents mirrors the generic value codec's layout for Counter.
type counterContents struct {
	ID    common.Address `cbor:"1,keyasint"`
	Value uint64         `cbor:"2,keyasint"`
}

func counterStructTag() types.StructTag {
	return types.StructTag{Address: counterPkgID.Address(), Module: "counter", Name: "Counter"}
}

// testWorld wires a memory store, the fixture packages, a package cache and
// an executor into one harness.
type testWorld struct {
	t        *testing.T
	cfg      *params.ProtocolConfig
	store    *storage.MemStore
	cache    *packages.Cache
	analyzer *packages.Analyzer
	exec     *Executor
}

func newTestWorld(t *testing.T) *testWorld {
	cfg := params.TestProtocolConfig()
	store := storage.NewMemStore()
	store.SetPackage(frameworkTestPackage(cfg))
	store.SetPackage(counterTestPackage(cfg))
	cache := packages.NewCache(cfg, store, nil)
	t.Cleanup(cache.Close)
	analyzer := packages.NewAnalyzer(cfg, store)
	return &testWorld{
		t:        t,
		cfg:      cfg,
		store:    store,
		cache:    cache,
		analyzer: analyzer,
		exec:     NewExecutor(cfg, cache, analyzer, store),
	}
}

func (w *testWorld) addGasCoin() common.ObjectID {
	return w.addCoin(testGasCoinID, testSender, testGasBalance, 1)
}

func (w *testWorld) addCoin(id common.ObjectID, owner common.Address, balance, version uint64) common.ObjectID {
	obj, err := types.NewCoinObject(id, w.cfg.Framework.Framework, owner, version, balance)
	require.NoError(w.t, err)
	w.store.SetObject(obj)
	return id
}

func (w *testWorld) addCounter(id common.ObjectID, owner common.Address, value, version uint64) common.ObjectID {
	contents, err := cbor.Marshal(counterContents{ID: id.Address(), Value: value})
	require.NoError(w.t, err)
	tag := counterStructTag()
	w.store.SetObject(&types.Object{
		ID:       id,
		Version:  version,
		Owner:    types.NewAddressOwner(owner),
		Type:     &tag,
		Contents: contents,
	})
	return id
}

// run executes a transaction with the standard budget and asserts effects
// came out; callers assert on the effects themselves.
func (w *testWorld) run(ptb *types.ProgrammableTransaction) *types.TransactionEffects {
	return w.runWith(ptb, testDigest, 1_000_000)
}

func (w *testWorld) runWith(ptb *types.ProgrammableTransaction, digest common.Digest, budget uint64) *types.TransactionEffects {
	tx := types.NewTxContext(testSender, digest, 5, 1_700_000_000_000)
	effects, err := w.exec.Execute(&ExecutionRequest{
		Tx:          tx,
		GasCoin:     testGasCoinID,
		GasBudget:   budget,
		GasPrice:    1,
		Transaction: ptb,
	})
	require.NoError(w.t, err)
	require.NotNil(w.t, effects)
	return effects
}

// check runs only linkage analysis and the typing pass.
func (w *testWorld) check(ptb *types.ProgrammableTransaction) (*TypedTransaction, error) {
	linkage, err := w.analyzer.AnalyzeTransaction(ptb)
	if err != nil {
		return nil, err
	}
	env := NewEnv(w.cfg, w.cache, linkage)
	return CheckTransaction(env, w.cfg, w.store, ptb)
}

func pureU64(t *testing.T, v uint64) types.CallArg {
	bz, err := cbor.Marshal(v)
	require.NoError(t, err)
	return types.PureCallArg(bz)
}

func pureAddress(t *testing.T, a common.Address) types.CallArg {
	bz, err := cbor.Marshal(a)
	require.NoError(t, err)
	return types.PureCallArg(bz)
}

func ownedInput(id common.ObjectID, version uint64) types.CallArg {
	return types.ObjectCallArg(types.ObjectArg{Kind: types.ImmOrOwnedObject, ID: id, Version: version, Mutable: true})
}

func receivingInput(id common.ObjectID, version uint64) types.CallArg {
	return types.ObjectCallArg(types.ObjectArg{Kind: types.ReceivingObject, ID: id, Version: version})
}

func moveCall(function string, args ...types.Argument) types.MoveCall {
	return types.MoveCall{
		Package:   counterPkgID,
		Module:    "counter",
		Function:  function,
		Arguments: args,
	}
}

func requireSuccess(t *testing.T, effects *types.TransactionEffects) {
	require.True(t, effects.Status.Success, "execution failed: %s", effects.Status)
}

func requireFailureAt(t *testing.T, effects *types.TransactionEffects, cmd int, kind string) {
	require.False(t, effects.Status.Success)
	require.Equal(t, cmd, effects.Status.CommandIndex, "failing command index, status: %s", effects.Status)
	require.Equal(t, kind, effects.Status.Kind, "failure kind, status: %s", effects.Status)
}
