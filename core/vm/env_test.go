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

	"github.com/stretchr/testify/require"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
)

// newTestEnv builds an Env over the fixture store with a linkage pinning the
// framework and counter packages at their stored versions.
func newTestEnv(t *testing.T) (*testWorld, *Env) {
	w := newTestWorld(t)
	fw := w.cfg.Framework.Framework
	linkage := packages.NewLinkage(map[common.ObjectID]packages.UpgradeInfo{
		fw:           {StorageID: fw, Version: 1},
		counterPkgID: {StorageID: counterPkgID, Version: 1},
	})
	return w, NewEnv(w.cfg, w.cache, linkage)
}

func counterTypeTag() types.TypeTag {
	return types.StructTypeTag(counterStructTag())
}

func TestEnvResolvePrimitiveTags(t *testing.T) {
	_, env := newTestEnv(t)

	u64, err := env.ResolveTypeTag(types.U64TypeTag())
	require.NoError(t, err)
	require.Equal(t, TU64, u64.Kind)

	vec, err := env.ResolveTypeTag(types.VectorTypeTag(types.AddressTypeTag()))
	require.NoError(t, err)
	require.Equal(t, TVector, vec.Kind)
	require.Equal(t, TAddress, vec.Elem.Kind)
}

func TestEnvResolveStructTag(t *testing.T) {
	_, env := newTestEnv(t)

	ct, err := env.ResolveTypeTag(counterTypeTag())
	require.NoError(t, err)
	require.Equal(t, TDatatype, ct.Kind)
	require.Equal(t, "counter", ct.Datatype.Module)
	require.Equal(t, "Counter", ct.Datatype.Name)
	require.Equal(t, counterPkgID, ct.Datatype.DefiningID)
	require.Equal(t, counterPkgID, ct.Datatype.RuntimeID)
	require.True(t, ct.Abilities().Has(bytecode.AbilityKey))
	require.False(t, ct.Abilities().Has(bytecode.AbilityDrop))
}

func TestEnvDatatypeMemoized(t *testing.T) {
	_, env := newTestEnv(t)

	first, err := env.ResolveTypeTag(counterTypeTag())
	require.NoError(t, err)
	second, err := env.ResolveTypeTag(counterTypeTag())
	require.NoError(t, err)
	require.Same(t, first.Datatype, second.Datatype)
}

func TestEnvGasCoinType(t *testing.T) {
	w, env := newTestEnv(t)

	coin, err := env.GasCoinType()
	require.NoError(t, err)
	require.Equal(t, TDatatype, coin.Kind)
	require.Equal(t, "coin", coin.Datatype.Module)
	require.Equal(t, "Coin", coin.Datatype.Name)
	require.Equal(t, w.cfg.Framework.Framework, coin.Datatype.DefiningID)
	require.Len(t, coin.Datatype.TypeArgs, 1)
	require.Equal(t, "sui", coin.Datatype.TypeArgs[0].Datatype.Module)

	again, err := env.GasCoinType()
	require.NoError(t, err)
	require.Same(t, coin.Datatype, again.Datatype)
}

func TestEnvLoadFunctionSignature(t *testing.T) {
	_, env := newTestEnv(t)

	fn, err := env.LoadFunction(counterPkgID, "counter", "create", nil)
	require.NoError(t, err)
	require.Equal(t, types.TxContextMutable, fn.TxContext)
	require.Len(t, fn.Params, 2)
	explicit := fn.ExplicitParams()
	require.Len(t, explicit, 1)
	require.Equal(t, TAddress, explicit[0].Kind)

	div, err := env.LoadFunction(counterPkgID, "counter", "checked_div", nil)
	require.NoError(t, err)
	require.Equal(t, types.TxContextNone, div.TxContext)
	require.Len(t, div.ExplicitParams(), 2)
	require.Len(t, div.Returns, 1)
}

func TestEnvLoadFunctionTypeArity(t *testing.T) {
	_, env := newTestEnv(t)

	_, err := env.LoadFunction(counterPkgID, "counter", "bump", []types.TypeTag{types.U64TypeTag()})
	require.ErrorIs(t, err, ErrTypeArity)
}

func TestEnvLoadFunctionAbilityConstraint(t *testing.T) {
	w, env := newTestEnv(t)

	// public_transfer requires key+store; u64 has neither.
	_, err := env.LoadFunction(w.cfg.Framework.Framework, "transfer", "public_transfer",
		[]types.TypeTag{types.U64TypeTag()})
	require.ErrorIs(t, err, ErrAbilityConstraint)
}

func TestEnvLoadFunctionNotFound(t *testing.T) {
	_, env := newTestEnv(t)

	_, err := env.LoadFunction(counterPkgID, "counter", "missing", nil)
	require.ErrorIs(t, err, ErrFunctionNotFound)

	_, err = env.LoadFunction(counterPkgID, "nope", "missing", nil)
	require.ErrorIs(t, err, ErrModuleNotFound)

	_, err = env.LoadFunction(common.HexToObjectID("0xdead"), "counter", "bump", nil)
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestEnvResolveTypeToDefiningID(t *testing.T) {
	_, env := newTestEnv(t)

	origin, err := env.ResolveTypeToDefiningID(counterPkgID, "counter", "Counter")
	require.NoError(t, err)
	require.Equal(t, counterPkgID, origin)

	_, err = env.ResolveTypeToDefiningID(counterPkgID, "counter", "Nope")
	require.ErrorIs(t, err, ErrTypeNotFound)
}
