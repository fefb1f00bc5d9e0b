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

package params

// GasSchedule is the table of per operation costs consumed by the gas
// charger. The execution core never interprets these values beyond charging
// them; pricing policy lives with the surrounding system.
type GasSchedule struct {
	CommandBase     uint64 // flat cost of dispatching any command
	Instruction     uint64 // cost of one Move bytecode instruction
	MoveCallBase    uint64 // additional flat cost of entering a Move call
	TransferBase    uint64 // flat cost per transferred object
	SplitCoinBase   uint64 // flat cost per split amount
	MergeCoinBase   uint64 // flat cost per merged source coin
	MakeVecPerElem  uint64 // cost per MakeMoveVec element
	PublishPerByte  uint64 // cost per byte of published module code
	UpgradeBase     uint64 // flat cost of an upgrade on top of publish costs
	ObjectReadBase  uint64 // flat cost of loading an object from storage
	ObjectReadByte  uint64 // cost per byte of loaded object contents
	ObjectWriteByte uint64 // cost per byte of written object contents
	ValueCopyByte   uint64 // cost per byte when copying an argument value
	PureDecodeByte  uint64 // cost per byte when decoding a pure argument
}

// DefaultGasSchedule returns the cost table used by the production networks.
func DefaultGasSchedule() GasSchedule {
	return GasSchedule{
		CommandBase:     1000,
		Instruction:     1,
		MoveCallBase:    1000,
		TransferBase:    100,
		SplitCoinBase:   100,
		MergeCoinBase:   100,
		MakeVecPerElem:  10,
		PublishPerByte:  10,
		UpgradeBase:     5000,
		ObjectReadBase:  100,
		ObjectReadByte:  10,
		ObjectWriteByte: 20,
		ValueCopyByte:   2,
		PureDecodeByte:  2,
	}
}
