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

	"github.com/MystenLabs/sui-sub065/params"
)

func TestGasChargeExhaustsBudget(t *testing.T) {
	schedule := params.DefaultGasSchedule()
	g := NewGasCharger(schedule, 1500, 1)

	require.NoError(t, g.ChargeCommand())
	require.Equal(t, schedule.CommandBase, g.Used())
	require.Equal(t, uint64(1500)-schedule.CommandBase, g.Remaining())

	// the next command base charge overdraws: everything left is consumed
	err := g.ChargeCommand()
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Equal(t, uint64(1500), g.Used())
	require.Zero(t, g.Remaining())

	// once exhausted every further charge fails
	require.ErrorIs(t, g.ChargeInstructions(1), ErrOutOfGas)
}

func TestGasSummaryPricing(t *testing.T) {
	schedule := params.DefaultGasSchedule()
	g := NewGasCharger(schedule, 1_000_000, 3)

	require.NoError(t, g.Charge(400))
	g.AccrueStorage(10)
	g.AccrueRebate(4)

	s := g.Summary()
	require.Equal(t, uint64(1_000_000), s.Budget)
	require.Equal(t, uint64(3), s.Price)
	require.Equal(t, uint64(400*3), s.ComputationCost)
	require.Equal(t, 10*schedule.ObjectWriteByte*3, s.StorageCost)
	require.Equal(t, 4*schedule.ObjectWriteByte*3, s.StorageRebate)
}

func TestGasObjectReadScalesWithSize(t *testing.T) {
	schedule := params.DefaultGasSchedule()
	g := NewGasCharger(schedule, 1_000_000, 1)

	require.NoError(t, g.ChargeObjectRead(100))
	require.Equal(t, schedule.ObjectReadBase+100*schedule.ObjectReadByte, g.Used())
}
