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
	"bytes"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/inconshreveable/log15"

	"github.com/MystenLabs/sui-sub065/common"
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// ObjectResolver reads objects from the backing store. A nil object with a
// nil error means the object does not exist.
type ObjectResolver interface {
	GetObject(id common.ObjectID) (*types.Object, error)
}

// TransferRecord is the final placement decision for one object: its value
// and the owner it ends the transaction with.
type TransferRecord struct {
	Type  Type
	Value *StructValue
	Owner types.Owner
}

// RuntimeResults is the outcome of the object runtime, produced exactly
// once by Finish.
type RuntimeResults struct {
	// Transfers maps object IDs to their final placement.
	Transfers map[common.ObjectID]TransferRecord
	// TransferOrder lists the transfer IDs deterministically.
	TransferOrder []common.ObjectID
	// Created lists fresh IDs that survived to the end of execution.
	Created []common.ObjectID
	// Deleted lists pre-existing IDs destroyed by the transaction.
	Deleted []common.ObjectID
	// Received lists input objects claimed via receiving references.
	Received []common.ObjectID
	// Events are the user events emitted, in emission order.
	Events []types.Event
}

// ObjectRuntime tracks the object state of one executing transaction: which
// objects were loaded and at what versions, the IDs it created and deleted,
// transfer decisions, and emitted events. It is single threaded, like the
// interpreter driving it.
type ObjectRuntime struct {
	cfg      *params.ProtocolConfig
	resolver ObjectResolver
	tx       *types.TxContext
	log      log15.Logger

	loaded     map[common.ObjectID]types.LoadedRuntimeObject
	inputs     map[common.ObjectID]*types.Object
	newIDs     mapset.Set[common.ObjectID]
	deleted    mapset.Set[common.ObjectID]
	received   mapset.Set[common.ObjectID]
	transfers  map[common.ObjectID]TransferRecord
	events     []types.Event
	eventBytes uint64
	finished   bool
}

// NewObjectRuntime creates the runtime for one transaction.
func NewObjectRuntime(cfg *params.ProtocolConfig, resolver ObjectResolver, tx *types.TxContext) *ObjectRuntime {
	return &ObjectRuntime{
		cfg:       cfg,
		resolver:  resolver,
		tx:        tx,
		log:       log15.New("module", "vm"),
		loaded:    make(map[common.ObjectID]types.LoadedRuntimeObject),
		inputs:    make(map[common.ObjectID]*types.Object),
		newIDs:    mapset.NewThreadUnsafeSet[common.ObjectID](),
		deleted:   mapset.NewThreadUnsafeSet[common.ObjectID](),
		received:  mapset.NewThreadUnsafeSet[common.ObjectID](),
		transfers: make(map[common.ObjectID]TransferRecord),
	}
}

// LoadObject reads an object and records the version it was observed at.
func (rt *ObjectRuntime) LoadObject(id common.ObjectID) (*types.Object, error) {
	if obj, ok := rt.inputs[id]; ok {
		return obj, nil
	}
	obj, err := rt.resolver.GetObject(id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id.ShortString())
	}
	rt.inputs[id] = obj
	rt.loaded[id] = types.LoadedRuntimeObject{Version: obj.Version}
	return obj, nil
}

// MarkModified flags a loaded object as mutated, so effects report a write
// even if it is never re-transferred.
func (rt *ObjectRuntime) MarkModified(id common.ObjectID) {
	if lo, ok := rt.loaded[id]; ok {
		lo.IsModified = true
		rt.loaded[id] = lo
	}
}

// Loaded returns the load records accumulated so far.
func (rt *ObjectRuntime) Loaded() map[common.ObjectID]types.LoadedRuntimeObject {
	return rt.loaded
}

// FreshID derives the next object ID from the transaction digest, enforcing
// the per transaction creation limit.
func (rt *ObjectRuntime) FreshID() (common.ObjectID, error) {
	if uint64(rt.newIDs.Cardinality()) >= rt.cfg.MaxNewObjectIDs {
		return common.ObjectID{}, fmt.Errorf("%w: limit %d", ErrNewObjectLimit, rt.cfg.MaxNewObjectIDs)
	}
	id := rt.tx.FreshObjectID()
	rt.newIDs.Add(id)
	return id, nil
}

// WasCreated reports whether the ID was minted by this transaction.
func (rt *ObjectRuntime) WasCreated(id common.ObjectID) bool {
	return rt.newIDs.Contains(id)
}

// DeleteID destroys an object identity. Deleting an ID created in this
// transaction cancels the creation instead of surfacing a delete.
func (rt *ObjectRuntime) DeleteID(id common.ObjectID) {
	delete(rt.transfers, id)
	if rt.newIDs.Contains(id) {
		rt.newIDs.Remove(id)
		return
	}
	rt.deleted.Add(id)
}

// Transfer records the final placement of an object value. A later transfer
// of the same ID overwrites the earlier one.
func (rt *ObjectRuntime) Transfer(t Type, value *StructValue, owner types.Owner) error {
	id, err := value.ObjectAddress()
	if err != nil {
		return err
	}
	rt.deleted.Remove(id)
	rt.transfers[id] = TransferRecord{Type: t, Value: value, Owner: owner}
	return nil
}

// Receive claims a receiving input: the object addressed to parent becomes
// available to the transaction.
func (rt *ObjectRuntime) Receive(id common.ObjectID, parent common.ObjectID) (*types.Object, error) {
	obj, err := rt.LoadObject(id)
	if err != nil {
		return nil, err
	}
	if obj.Owner.Kind != types.AddressOwner && obj.Owner.Kind != types.ObjectOwner {
		return nil, fmt.Errorf("%w: %s", ErrReceivingNotMatched, id.ShortString())
	}
	if obj.Owner.Address != parent.Address() {
		return nil, fmt.Errorf("%w: %s not owned by %s", ErrReceivingNotMatched, id.ShortString(), parent.ShortString())
	}
	rt.received.Add(id)
	return obj, nil
}

// EmitEvent appends a user event, bounded by the accumulated size limit.
func (rt *ObjectRuntime) EmitEvent(ev types.Event) error {
	sz := uint64(len(ev.Contents))
	if rt.eventBytes+sz > rt.cfg.MaxEventEmitSize {
		return fmt.Errorf("%w: %d bytes", ErrEventSize, rt.eventBytes+sz)
	}
	rt.eventBytes += sz
	rt.events = append(rt.events, ev)
	return nil
}

// Finish consumes the runtime and returns its results. Calling it twice is
// an invariant violation: results must be extracted exactly once.
func (rt *ObjectRuntime) Finish() (*RuntimeResults, error) {
	if rt.finished {
		return nil, fmt.Errorf("%w: object runtime finished twice", ErrInvariantViolation)
	}
	rt.finished = true

	res := &RuntimeResults{
		Transfers: rt.transfers,
		Received:  sortedIDs(rt.received.ToSlice()),
		Deleted:   sortedIDs(rt.deleted.ToSlice()),
		Events:    rt.events,
	}
	for id := range rt.transfers {
		res.TransferOrder = append(res.TransferOrder, id)
		if rt.newIDs.Contains(id) {
			res.Created = append(res.Created, id)
		}
	}
	res.TransferOrder = sortedIDs(res.TransferOrder)
	res.Created = sortedIDs(res.Created)
	rt.log.Debug("Object runtime finished",
		"transfers", len(res.Transfers), "created", len(res.Created), "deleted", len(res.Deleted))
	return res, nil
}

func sortedIDs(ids []common.ObjectID) []common.ObjectID {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
