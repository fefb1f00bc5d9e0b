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
	"strings"

	"github.com/inconshreveable/log15"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/bytecode"
	"github.com/MystenLabs/sui-sub065/core/packages"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// Env resolves packages, modules, functions and types for one transaction.
// It layers the transaction's freshly published packages over the process
// wide package cache: lookups consult new packages first, then follow the
// transaction linkage into the cache. An Env is not safe for concurrent use;
// each transaction gets its own.
type Env struct {
	cfg     *params.ProtocolConfig
	cache   *packages.Cache
	linkage *packages.Linkage
	log     log15.Logger

	newByStorage  map[common.ObjectID]*packages.VerifiedPackage
	newByOriginal map[common.ObjectID]*packages.VerifiedPackage

	datatypes map[string]*Datatype
	gasCoin   *Datatype
}

// NewEnv creates the resolver for one transaction.
func NewEnv(cfg *params.ProtocolConfig, cache *packages.Cache, linkage *packages.Linkage) *Env {
	return &Env{
		cfg:           cfg,
		cache:         cache,
		linkage:       linkage,
		log:           log15.New("module", "vm"),
		newByStorage:  make(map[common.ObjectID]*packages.VerifiedPackage),
		newByOriginal: make(map[common.ObjectID]*packages.VerifiedPackage),
		datatypes:     make(map[string]*Datatype),
	}
}

// Linkage exposes the transaction linkage.
func (e *Env) Linkage() *packages.Linkage { return e.linkage }

// AddPackage registers a package published or upgraded by the current
// transaction. Subsequent resolutions see it before anything in storage.
func (e *Env) AddPackage(vp *packages.VerifiedPackage) {
	e.newByStorage[vp.StorageID()] = vp
	e.newByOriginal[vp.OriginalID()] = vp
	e.log.Debug("Registered transaction-local package",
		"storage", vp.StorageID().ShortString(), "version", vp.Version())
}

// NewPackages returns the packages published by this transaction, keyed by
// storage ID.
func (e *Env) NewPackages() map[common.ObjectID]*packages.VerifiedPackage {
	return e.newByStorage
}

// resolvePackage maps any package address a user or a module handle may
// name, original or storage, to the effective verified package under the
// current linkage.
func (e *Env) resolvePackage(addr common.ObjectID) (*packages.VerifiedPackage, error) {
	if vp, ok := e.newByStorage[addr]; ok {
		return vp, nil
	}
	if vp, ok := e.newByOriginal[addr]; ok {
		return vp, nil
	}
	original := addr
	if o, ok := e.linkage.ResolveToOriginalID(addr); ok {
		original = o
	}
	if vp, ok := e.newByOriginal[original]; ok {
		return vp, nil
	}
	storage, ok := e.linkage.ResolveToStorageID(original)
	if !ok {
		return nil, fmt.Errorf("%w: package %s not in transaction linkage", ErrModuleNotFound, addr.ShortString())
	}
	vp, err := e.cache.GetPackage(storage)
	if err != nil {
		return nil, err
	}
	if vp == nil {
		return nil, fmt.Errorf("%w: package %s", ErrModuleNotFound, storage.ShortString())
	}
	return vp, nil
}

// LoadModule resolves a module by package address and name.
func (e *Env) LoadModule(pkgID common.ObjectID, name string) (*packages.VerifiedPackage, *bytecode.Module, error) {
	vp, err := e.resolvePackage(pkgID)
	if err != nil {
		return nil, nil, err
	}
	m, ok := vp.Module(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s::%s", ErrModuleNotFound, pkgID.ShortString(), name)
	}
	return vp, m, nil
}

// LoadedFunction is a fully instantiated function ready for type checking
// and execution.
type LoadedFunction struct {
	Package  *packages.VerifiedPackage
	Module   *bytecode.Module
	Def      *bytecode.FnDef
	TypeArgs []Type
	Params   []Type
	Returns  []Type
	// TxContext classifies the trailing transaction context parameter, which
	// the caller supplies implicitly.
	TxContext types.TxContextKind
}

// ExplicitParams returns the parameters the transaction must supply, i.e.
// all but an implicit trailing TxContext.
func (f *LoadedFunction) ExplicitParams() []Type {
	if f.TxContext == types.TxContextNone {
		return f.Params
	}
	return f.Params[:len(f.Params)-1]
}

// LoadFunction resolves a call target and instantiates its signature with
// the given type arguments, checking arity, depth and ability constraints.
func (e *Env) LoadFunction(pkgID common.ObjectID, module, function string, typeArgTags []types.TypeTag) (*LoadedFunction, error) {
	if uint64(len(typeArgTags)) > e.cfg.MaxTypeArguments {
		return nil, fmt.Errorf("%w: %d type arguments", ErrTypeArity, len(typeArgTags))
	}
	typeArgs := make([]Type, len(typeArgTags))
	for i, tag := range typeArgTags {
		t, err := e.ResolveTypeTag(tag)
		if err != nil {
			return nil, err
		}
		if uint64(t.Depth()) > e.cfg.MaxTypeDepth {
			return nil, ErrTypeDepth
		}
		typeArgs[i] = t
	}
	return e.loadFunctionWith(pkgID, module, function, typeArgs)
}

// loadFunctionWith is LoadFunction over already resolved type arguments; it
// is also the resolution path of the CALL instruction.
func (e *Env) loadFunctionWith(pkgID common.ObjectID, module, function string, typeArgs []Type) (*LoadedFunction, error) {
	vp, m, err := e.LoadModule(pkgID, module)
	if err != nil {
		return nil, err
	}
	def, ok := m.Function(function)
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s::%s", ErrFunctionNotFound, pkgID.ShortString(), module, function)
	}
	if len(typeArgs) != len(def.TypeParams) {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrTypeArity, function, len(def.TypeParams), len(typeArgs))
	}
	for i, t := range typeArgs {
		if !def.TypeParams[i].IsSubset(t.Abilities()) {
			return nil, fmt.Errorf("%w: type argument %d of %s", ErrAbilityConstraint, i, function)
		}
	}
	params := make([]Type, len(def.Params))
	for i, sig := range def.Params {
		t, err := e.sigToType(m, sig, typeArgs)
		if err != nil {
			return nil, err
		}
		params[i] = t
	}
	returns := make([]Type, len(def.Returns))
	for i, sig := range def.Returns {
		t, err := e.sigToType(m, sig, typeArgs)
		if err != nil {
			return nil, err
		}
		returns[i] = t
	}
	return &LoadedFunction{
		Package:   vp,
		Module:    m,
		Def:       def,
		TypeArgs:  typeArgs,
		Params:    params,
		Returns:   returns,
		TxContext: txContextKind(e.cfg.Framework.Framework, params),
	}, nil
}

// ResolveTypeTag converts a user supplied type tag into a runtime type. The
// addresses in the tag may be any version of a package; they are relinked
// and the resulting datatype carries the defining ID.
func (e *Env) ResolveTypeTag(tag types.TypeTag) (Type, error) {
	switch tag.Kind {
	case types.TagBool:
		return Type{Kind: TBool}, nil
	case types.TagU8:
		return Type{Kind: TU8}, nil
	case types.TagU16:
		return Type{Kind: TU16}, nil
	case types.TagU32:
		return Type{Kind: TU32}, nil
	case types.TagU64:
		return Type{Kind: TU64}, nil
	case types.TagU128:
		return Type{Kind: TU128}, nil
	case types.TagU256:
		return Type{Kind: TU256}, nil
	case types.TagAddress:
		return Type{Kind: TAddress}, nil
	case types.TagVector:
		elem, err := e.ResolveTypeTag(*tag.Elem)
		if err != nil {
			return Type{}, err
		}
		return vectorType(elem), nil
	case types.TagStruct:
		st := tag.Struct
		args := make([]Type, len(st.TypeParams))
		for i, p := range st.TypeParams {
			t, err := e.ResolveTypeTag(p)
			if err != nil {
				return Type{}, err
			}
			args[i] = t
		}
		d, err := e.resolveDatatype(common.ObjectID(st.Address), st.Module, st.Name, args)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: TDatatype, Datatype: d}, nil
	}
	return Type{}, fmt.Errorf("%w: unsupported type tag", ErrTypeNotFound)
}

// ResolveTypeToDefiningID maps a struct named at any package version to the
// storage address of the version that first defined it.
func (e *Env) ResolveTypeToDefiningID(addr common.ObjectID, module, name string) (common.ObjectID, error) {
	vp, err := e.resolvePackage(addr)
	if err != nil {
		return common.ObjectID{}, err
	}
	origin, ok := vp.TypeOrigin(module, name)
	if !ok {
		return common.ObjectID{}, fmt.Errorf("%w: %s::%s::%s", ErrTypeNotFound, addr.ShortString(), module, name)
	}
	return origin, nil
}

// resolveDatatype instantiates a struct type, memoizing by its defining
// identity and argument list.
func (e *Env) resolveDatatype(addr common.ObjectID, module, name string, args []Type) (*Datatype, error) {
	vp, m, err := e.LoadModule(addr, module)
	if err != nil {
		return nil, err
	}
	sd, ok := m.Struct(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s::%s", ErrTypeNotFound, addr.ShortString(), module, name)
	}
	origin, ok := vp.TypeOrigin(module, name)
	if !ok {
		return nil, fmt.Errorf("%w: no type origin for %s::%s", ErrTypeNotFound, module, name)
	}
	key := datatypeKey(origin, module, name, args)
	if d, ok := e.datatypes[key]; ok {
		return d, nil
	}
	if len(args) != len(sd.TypeParams) {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrTypeArity, name, len(sd.TypeParams), len(args))
	}
	argAbilities := make([]bytecode.AbilitySet, len(args))
	for i, a := range args {
		if !sd.TypeParams[i].Constraints.IsSubset(a.Abilities()) {
			return nil, fmt.Errorf("%w: type argument %d of %s", ErrAbilityConstraint, i, name)
		}
		argAbilities[i] = a.Abilities()
	}
	d := &Datatype{
		DefiningID: origin,
		RuntimeID:  vp.StorageID(),
		Module:     module,
		Name:       name,
		TypeArgs:   args,
		abilities:  bytecode.InstantiatedAbilities(sd.Abilities, sd.TypeParams, argAbilities),
	}
	// memoize before fields so a (verifier-rejected) recursive layout cannot
	// loop the resolver
	e.datatypes[key] = d
	fields := make([]DatatypeField, len(sd.Fields))
	for i, f := range sd.Fields {
		ft, err := e.sigToType(m, f.Type, args)
		if err != nil {
			return nil, err
		}
		fields[i] = DatatypeField{Name: f.Name, Type: ft}
	}
	d.fields = fields
	return d, nil
}

// sigToType instantiates a module signature type against concrete type
// arguments. Addresses in datatype references are link-time addresses and
// go through package resolution.
func (e *Env) sigToType(m *bytecode.Module, sig bytecode.SigType, subst []Type) (Type, error) {
	switch sig.Kind {
	case bytecode.SigBool:
		return Type{Kind: TBool}, nil
	case bytecode.SigU8:
		return Type{Kind: TU8}, nil
	case bytecode.SigU16:
		return Type{Kind: TU16}, nil
	case bytecode.SigU32:
		return Type{Kind: TU32}, nil
	case bytecode.SigU64:
		return Type{Kind: TU64}, nil
	case bytecode.SigU128:
		return Type{Kind: TU128}, nil
	case bytecode.SigU256:
		return Type{Kind: TU256}, nil
	case bytecode.SigAddress:
		return Type{Kind: TAddress}, nil
	case bytecode.SigVector:
		elem, err := e.sigToType(m, *sig.Elem, subst)
		if err != nil {
			return Type{}, err
		}
		return vectorType(elem), nil
	case bytecode.SigReference, bytecode.SigMutReference:
		target, err := e.sigToType(m, *sig.Elem, subst)
		if err != nil {
			return Type{}, err
		}
		return refType(target, sig.Kind == bytecode.SigMutReference), nil
	case bytecode.SigTypeParam:
		if int(sig.TypeParam) >= len(subst) {
			return Type{}, fmt.Errorf("%w: type parameter %d unbound", ErrInvariantViolation, sig.TypeParam)
		}
		return subst[sig.TypeParam], nil
	case bytecode.SigDatatype:
		ref := sig.Datatype
		args := make([]Type, len(ref.TypeArgs))
		for i, a := range ref.TypeArgs {
			t, err := e.sigToType(m, a, subst)
			if err != nil {
				return Type{}, err
			}
			args[i] = t
		}
		d, err := e.resolveDatatype(common.ObjectID(ref.Address), ref.Module, ref.Name, args)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: TDatatype, Datatype: d}, nil
	}
	return Type{}, fmt.Errorf("%w: unknown signature kind", ErrInvariantViolation)
}

// GasCoinType returns the framework gas coin type, memoized for the life of
// the Env.
func (e *Env) GasCoinType() (Type, error) {
	if e.gasCoin == nil {
		framework := e.cfg.Framework.Framework
		sui, err := e.resolveDatatype(framework, gasCoinModule, gasCoinName, nil)
		if err != nil {
			return Type{}, err
		}
		coin, err := e.resolveDatatype(framework, coinModule, coinName, []Type{{Kind: TDatatype, Datatype: sui}})
		if err != nil {
			return Type{}, err
		}
		e.gasCoin = coin
	}
	return Type{Kind: TDatatype, Datatype: e.gasCoin}, nil
}

// CoinTypeFor returns 0x2::coin::Coin<balance> for an arbitrary balance type.
func (e *Env) CoinTypeFor(balance Type) (Type, error) {
	d, err := e.resolveDatatype(e.cfg.Framework.Framework, coinModule, coinName, []Type{balance})
	if err != nil {
		return Type{}, err
	}
	return Type{Kind: TDatatype, Datatype: d}, nil
}

func datatypeKey(origin common.ObjectID, module, name string, args []Type) string {
	var b strings.Builder
	b.WriteString(origin.Hex())
	b.WriteByte(':')
	b.WriteString(module)
	b.WriteByte(':')
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte('<')
		b.WriteString(a.String())
	}
	return b.String()
}
