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

package types

import (
	"fmt"

	"github.com/MystenLabs/sui-sub065/common"
)

// LoadedRuntimeObject records an object read during execution: the version it
// was read at and whether execution modified it. The commit layer uses this
// set for conflict detection and storage rebates, on success and on failure
// alike.
type LoadedRuntimeObject struct {
	Version    uint64
	IsModified bool
}

// Event is a user event emitted during execution.
type Event struct {
	Type     StructTag
	Contents []byte
}

// ExecutionResults is the harvested outcome of one transaction execution,
// consumed by the storage commit layer. It is produced exactly once per
// execution, whether the transaction succeeded or aborted partway.
type ExecutionResults struct {
	// WrittenObjects holds the final state of every created or mutated
	// object, keyed by ID.
	WrittenObjects map[common.ObjectID]*Object
	// CreatedObjectIDs are IDs minted by this transaction that survive it.
	CreatedObjectIDs map[common.ObjectID]struct{}
	// DeletedObjectIDs are IDs removed from the store by this transaction.
	DeletedObjectIDs map[common.ObjectID]struct{}
	// WrappedObjectIDs are input objects that became embedded in another
	// object's contents.
	WrappedObjectIDs map[common.ObjectID]struct{}
	// UnwrappedObjectIDs are objects extracted out of a container object.
	UnwrappedObjectIDs map[common.ObjectID]struct{}
	// UserEvents are the events emitted, in emission order.
	UserEvents []Event
}

// NewExecutionResults returns an empty results set.
func NewExecutionResults() *ExecutionResults {
	return &ExecutionResults{
		WrittenObjects:     make(map[common.ObjectID]*Object),
		CreatedObjectIDs:   make(map[common.ObjectID]struct{}),
		DeletedObjectIDs:   make(map[common.ObjectID]struct{}),
		WrappedObjectIDs:   make(map[common.ObjectID]struct{}),
		UnwrappedObjectIDs: make(map[common.ObjectID]struct{}),
	}
}

// ExecutionStatus reports success, or the failing command and error kind.
type ExecutionStatus struct {
	Success bool
	// CommandIndex is the index of the failing command, or -1 when the
	// failure happened outside command dispatch.
	CommandIndex int
	// Kind is the failure classification, empty on success.
	Kind string
	// Message is a human readable description, empty on success.
	Message string
}

// String implements fmt.Stringer.
func (s ExecutionStatus) String() string {
	if s.Success {
		return "success"
	}
	return fmt.Sprintf("failure(command=%d, kind=%s): %s", s.CommandIndex, s.Kind, s.Message)
}

// GasSummary accounts the gas activity of one transaction.
type GasSummary struct {
	Budget          uint64
	Price           uint64
	ComputationCost uint64
	StorageCost     uint64
	StorageRebate   uint64
}

// TransactionEffects is the full commit record of one transaction: status,
// gas, the object delta and the read set. A failed transaction still carries
// the effects of its successfully completed commands and the gas consumed up
// to the failure point.
type TransactionEffects struct {
	Status  ExecutionStatus
	Gas     GasSummary
	Results *ExecutionResults
	// LoadedRuntimeObjects is the read set with versions, populated on every
	// execution path.
	LoadedRuntimeObjects map[common.ObjectID]LoadedRuntimeObject
	// WrappedObjectContainers maps a wrapped object to the object whose
	// contents embed it, for container existence checks.
	WrappedObjectContainers map[common.ObjectID]common.ObjectID
}
