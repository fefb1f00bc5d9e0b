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
	"github.com/MystenLabs/sui-sub065/core/types"
	"github.com/MystenLabs/sui-sub065/params"
)

// GasCharger meters computation against the transaction's gas budget. Gas
// spent is never refunded: a failing command leaves the meter where the
// failure found it.
type GasCharger struct {
	schedule params.GasSchedule
	budget   uint64
	price    uint64
	used     uint64
	storage  uint64
	rebate   uint64
}

// NewGasCharger creates a meter over the given budget. Price scales the
// final cost summary, not the per operation charges.
func NewGasCharger(schedule params.GasSchedule, budget, price uint64) *GasCharger {
	return &GasCharger{schedule: schedule, budget: budget, price: price}
}

// Remaining returns the unspent portion of the budget.
func (g *GasCharger) Remaining() uint64 { return g.budget - g.used }

// Used returns the computation gas consumed so far.
func (g *GasCharger) Used() uint64 { return g.used }

// Charge deducts amount from the budget.
func (g *GasCharger) Charge(amount uint64) error {
	if amount > g.budget-g.used {
		g.used = g.budget
		return ErrOutOfGas
	}
	g.used += amount
	return nil
}

// ChargeCommand charges the flat dispatch cost of one command.
func (g *GasCharger) ChargeCommand() error {
	return g.Charge(g.schedule.CommandBase)
}

// ChargeInstructions charges n bytecode instructions.
func (g *GasCharger) ChargeInstructions(n uint64) error {
	return g.Charge(g.schedule.Instruction * n)
}

// ChargeMoveCall charges the flat cost of entering a Move function.
func (g *GasCharger) ChargeMoveCall() error {
	return g.Charge(g.schedule.MoveCallBase)
}

// ChargeTransfer charges one transferred object.
func (g *GasCharger) ChargeTransfer() error {
	return g.Charge(g.schedule.TransferBase)
}

// ChargeSplit charges one split amount.
func (g *GasCharger) ChargeSplit() error {
	return g.Charge(g.schedule.SplitCoinBase)
}

// ChargeMerge charges one merged source coin.
func (g *GasCharger) ChargeMerge() error {
	return g.Charge(g.schedule.MergeCoinBase)
}

// ChargeMakeVec charges a vector construction of n elements.
func (g *GasCharger) ChargeMakeVec(n uint64) error {
	return g.Charge(g.schedule.MakeVecPerElem * n)
}

// ChargePublish charges byteLen bytes of published module code.
func (g *GasCharger) ChargePublish(byteLen uint64) error {
	return g.Charge(g.schedule.PublishPerByte * byteLen)
}

// ChargeUpgrade charges the flat upgrade surcharge.
func (g *GasCharger) ChargeUpgrade() error {
	return g.Charge(g.schedule.UpgradeBase)
}

// ChargeObjectRead charges loading byteLen bytes of object contents.
func (g *GasCharger) ChargeObjectRead(byteLen uint64) error {
	return g.Charge(g.schedule.ObjectReadBase + g.schedule.ObjectReadByte*byteLen)
}

// ChargeCopy charges copying byteLen bytes of value.
func (g *GasCharger) ChargeCopy(byteLen uint64) error {
	return g.Charge(g.schedule.ValueCopyByte * byteLen)
}

// ChargePureDecode charges decoding byteLen bytes of pure argument.
func (g *GasCharger) ChargePureDecode(byteLen uint64) error {
	return g.Charge(g.schedule.PureDecodeByte * byteLen)
}

// AccrueStorage records storage written by the transaction. Storage costs
// are tallied into the summary but do not draw down the computation budget.
func (g *GasCharger) AccrueStorage(byteLen uint64) {
	g.storage += g.schedule.ObjectWriteByte * byteLen
}

// AccrueRebate records storage released by deleted objects.
func (g *GasCharger) AccrueRebate(byteLen uint64) {
	g.rebate += g.schedule.ObjectWriteByte * byteLen
}

// Summary finalizes the meter into the effects gas summary.
func (g *GasCharger) Summary() types.GasSummary {
	return types.GasSummary{
		Budget:          g.budget,
		Price:           g.price,
		ComputationCost: g.used * g.price,
		StorageCost:     g.storage * g.price,
		StorageRebate:   g.rebate * g.price,
	}
}
