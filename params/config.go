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

// Package params holds the explicit protocol configuration threaded through
// the execution core. There is deliberately no global, lazily initialised
// state here: callers construct a ProtocolConfig once at process start and
// pass it down.
package params

import "github.com/MystenLabs/sui-sub065/common"

// Well known framework package addresses. These are the original (runtime)
// addresses; the storage address of a framework package changes across
// framework upgrade epochs.
var (
	MoveStdlibPackageID = common.HexToObjectID("0x1")
	FrameworkPackageID  = common.HexToObjectID("0x2")
	SystemPackageID     = common.HexToObjectID("0x3")
)

// FrameworkAddresses is the set of system package addresses that are
// implicitly linkable by every transaction and whose cache entries may be
// evicted at epoch boundaries.
type FrameworkAddresses struct {
	MoveStdlib common.ObjectID
	Framework  common.ObjectID
	System     common.ObjectID
}

// DefaultFrameworkAddresses returns the framework address set used by the
// production networks.
func DefaultFrameworkAddresses() FrameworkAddresses {
	return FrameworkAddresses{
		MoveStdlib: MoveStdlibPackageID,
		Framework:  FrameworkPackageID,
		System:     SystemPackageID,
	}
}

// Contains reports whether id is one of the framework package addresses.
func (f FrameworkAddresses) Contains(id common.ObjectID) bool {
	return id == f.MoveStdlib || id == f.Framework || id == f.System
}

// List returns the framework addresses in address order.
func (f FrameworkAddresses) List() []common.ObjectID {
	return []common.ObjectID{f.MoveStdlib, f.Framework, f.System}
}

// ProtocolConfig contains the configuration consumed by the execution core:
// the gas schedule, the framework address set and the execution limits.
//
// ProtocolConfig is immutable once constructed and may be shared between
// concurrently executing transactions.
type ProtocolConfig struct {
	Gas       GasSchedule
	Framework FrameworkAddresses

	MaxCommands         uint64 // maximum commands in one programmable transaction
	MaxCallDepth        uint64 // maximum Move call frame depth
	MaxTypeDepth        uint64 // maximum nesting of type instantiations
	MaxTypeArguments    uint64 // maximum type arguments to one call
	MaxPureArgumentSize uint64 // maximum size of one pure call argument
	MaxPackageSize      uint64 // maximum total module bytes in one package
	MaxMoveVectorLen    uint64 // maximum elements in a MakeMoveVec result
	MaxNewObjectIDs     uint64 // maximum fresh IDs created by one transaction
	MaxEventEmitSize    uint64 // maximum accumulated event bytes

	// MaxLinkagePackages bounds the package metadata retained by linkage
	// analysis before the analysis cache is reset.
	MaxLinkagePackages int
}

// MainnetProtocolConfig returns the protocol configuration of the production
// network.
func MainnetProtocolConfig() *ProtocolConfig {
	return &ProtocolConfig{
		Gas:                 DefaultGasSchedule(),
		Framework:           DefaultFrameworkAddresses(),
		MaxCommands:         1024,
		MaxCallDepth:        1024,
		MaxTypeDepth:        128,
		MaxTypeArguments:    16,
		MaxPureArgumentSize: 16 * 1024,
		MaxPackageSize:      100 * 1024,
		MaxMoveVectorLen:    256 * 1024,
		MaxNewObjectIDs:     2048,
		MaxEventEmitSize:    256 * 1024,
		MaxLinkagePackages:  200,
	}
}

// TestProtocolConfig returns a configuration with limits suitable for unit
// tests: identical shape to mainnet, smaller bounds so limit violations are
// cheap to trigger.
func TestProtocolConfig() *ProtocolConfig {
	cfg := MainnetProtocolConfig()
	cfg.MaxCommands = 64
	cfg.MaxCallDepth = 32
	cfg.MaxNewObjectIDs = 64
	cfg.MaxLinkagePackages = 16
	return cfg
}
