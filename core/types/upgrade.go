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

import "github.com/MystenLabs/sui-sub065/common"

// Upgrade compatibility policies, ordered from most to least permissive.
// A cap's policy may only ever be tightened.
const (
	// UpgradePolicyCompatible allows any layout compatible upgrade.
	UpgradePolicyCompatible byte = 0
	// UpgradePolicyAdditive allows adding new functions and types only.
	UpgradePolicyAdditive byte = 128
	// UpgradePolicyDepOnly allows changing dependencies only.
	UpgradePolicyDepOnly byte = 192
)

// ValidUpgradePolicy reports whether policy is one of the defined policies.
func ValidUpgradePolicy(policy byte) bool {
	return policy == UpgradePolicyCompatible ||
		policy == UpgradePolicyAdditive ||
		policy == UpgradePolicyDepOnly
}

// UpgradeCap is the capability controlling upgrades of one package. It is
// minted when the package is first published.
type UpgradeCap struct {
	ID common.ObjectID `cbor:"1,keyasint"`
	// Package is the storage ID of the latest version of the package.
	Package common.ObjectID `cbor:"2,keyasint"`
	Version uint64          `cbor:"3,keyasint"`
	Policy  byte            `cbor:"4,keyasint"`
}

// UpgradeTicket authorises a single upgrade of the package named in it. It is
// produced by the framework from an UpgradeCap and consumed by the Upgrade
// command.
type UpgradeTicket struct {
	Cap common.ObjectID `cbor:"1,keyasint"`
	// Package is the storage ID of the package version being upgraded.
	Package common.ObjectID `cbor:"2,keyasint"`
	Policy  byte            `cbor:"3,keyasint"`
	// Digest commits to the bytes of the package being published.
	Digest common.Digest `cbor:"4,keyasint"`
}

// UpgradeReceipt proves an upgrade happened, returned by the Upgrade command
// and consumed by the framework to advance the cap.
type UpgradeReceipt struct {
	Cap common.ObjectID `cbor:"1,keyasint"`
	// Package is the storage ID of the newly published version.
	Package common.ObjectID `cbor:"2,keyasint"`
}
