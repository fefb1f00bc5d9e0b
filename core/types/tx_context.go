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
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/MystenLabs/sui-sub065/common"
)

// TxContextKind classifies how a Move function receives the transaction
// context, decided structurally from its last declared parameter.
type TxContextKind byte

const (
	// TxContextNone: the function does not take a transaction context.
	TxContextNone TxContextKind = iota
	// TxContextImmutable: the function takes &TxContext.
	TxContextImmutable
	// TxContextMutable: the function takes &mut TxContext.
	TxContextMutable
)

// TxContext carries the per transaction environment visible to Move code:
// sender, digest, epoch and the fresh object ID counter. It is exclusively
// owned and mutated by one executing transaction.
type TxContext struct {
	sender         common.Address
	digest         common.Digest
	epoch          uint64
	epochTimestamp uint64
	idsCreated     uint64
}

// NewTxContext creates the context for one transaction execution.
func NewTxContext(sender common.Address, digest common.Digest, epoch, epochTimestamp uint64) *TxContext {
	return &TxContext{
		sender:         sender,
		digest:         digest,
		epoch:          epoch,
		epochTimestamp: epochTimestamp,
	}
}

// Sender returns the transaction sender.
func (ctx *TxContext) Sender() common.Address { return ctx.sender }

// Digest returns the transaction digest.
func (ctx *TxContext) Digest() common.Digest { return ctx.digest }

// Epoch returns the current epoch.
func (ctx *TxContext) Epoch() uint64 { return ctx.epoch }

// EpochTimestamp returns the timestamp of the start of the current epoch.
func (ctx *TxContext) EpochTimestamp() uint64 { return ctx.epochTimestamp }

// IDsCreated returns how many fresh object IDs have been handed out.
func (ctx *TxContext) IDsCreated() uint64 { return ctx.idsCreated }

// FreshObjectID derives the next object ID from the transaction digest and
// the creation counter. The derivation is deterministic: re-executing the
// same transaction yields the same IDs in the same order.
func (ctx *TxContext) FreshObjectID() common.ObjectID {
	id := DeriveObjectID(ctx.digest, ctx.idsCreated)
	ctx.idsCreated++
	return id
}

// DeriveObjectID computes the ID of the n'th object created by the
// transaction with the given digest.
func DeriveObjectID(digest common.Digest, creation uint64) common.ObjectID {
	var buf [common.DigestLength + 8]byte
	copy(buf[:], digest[:])
	binary.LittleEndian.PutUint64(buf[common.DigestLength:], creation)
	return common.ObjectID(blake2b.Sum256(buf[:]))
}

// DigestOf hashes the concatenation of the given byte slices.
func DigestOf(parts ...[]byte) common.Digest {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}
	return common.BytesToDigest(h.Sum(nil))
}
