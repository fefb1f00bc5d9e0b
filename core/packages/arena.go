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

package packages

import (
	"sync"

	"github.com/MystenLabs/sui-sub065/core/bytecode"
)

// ModuleHandle addresses one loaded module inside a ModuleArena. Handles are
// cheap, comparable and remain valid until the owning package's slot is
// freed.
type ModuleHandle struct {
	Slot  uint32
	Index uint32
}

// ModuleArena is a growable backing store for the decoded modules of loaded
// packages. Each package occupies one slot holding all of its modules;
// handles into a slot stay stable for the slot's lifetime and the slot is
// freed only when the whole package is evicted.
type ModuleArena struct {
	mu    sync.RWMutex
	slots [][]*bytecode.Module
	free  []uint32
}

// NewModuleArena returns an empty arena.
func NewModuleArena() *ModuleArena {
	return &ModuleArena{}
}

// AllocSlot stores the modules of one package and returns its slot.
func (a *ModuleArena) AllocSlot(modules []*bytecode.Module) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.free); n > 0 {
		slot := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[slot] = modules
		return slot
	}
	a.slots = append(a.slots, modules)
	return uint32(len(a.slots) - 1)
}

// Module resolves a handle. Resolving a handle into a freed slot returns
// nil; callers holding a live package never observe that.
func (a *ModuleArena) Module(h ModuleHandle) *bytecode.Module {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h.Slot) >= len(a.slots) {
		return nil
	}
	slot := a.slots[h.Slot]
	if int(h.Index) >= len(slot) {
		return nil
	}
	return slot[h.Index]
}

// SlotLen returns the number of modules in a slot.
func (a *ModuleArena) SlotLen(slot uint32) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(slot) >= len(a.slots) {
		return 0
	}
	return len(a.slots[slot])
}

// FreeSlot releases a slot for reuse. All handles into the slot become
// invalid.
func (a *ModuleArena) FreeSlot(slot uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(slot) >= len(a.slots) || a.slots[slot] == nil {
		return
	}
	a.slots[slot] = nil
	a.free = append(a.free, slot)
}

// Len returns the number of live slots.
func (a *ModuleArena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots) - len(a.free)
}
