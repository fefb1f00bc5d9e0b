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

package common

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesToAddressCropsFromLeft(t *testing.T) {
	long := bytes.Repeat([]byte{0xaa}, AddressLength+4)
	long[4] = 0xbb
	a := BytesToAddress(long)
	require.Equal(t, byte(0xbb), a[0], "excess leading bytes are dropped")

	short := BytesToAddress([]byte{0x01, 0x02})
	require.Equal(t, byte(0x01), short[AddressLength-2])
	require.Equal(t, byte(0x02), short[AddressLength-1])
}

func TestAddressHexRoundTrip(t *testing.T) {
	a := HexToAddress("0x2")
	require.Equal(t, "0x"+"0000000000000000000000000000000000000000000000000000000000000002", a.Hex())

	var back Address
	require.NoError(t, back.UnmarshalText([]byte(a.Hex())))
	require.Equal(t, a, back)

	require.Error(t, back.UnmarshalText([]byte("0x01")), "short input is rejected")
}

func TestAddressShortString(t *testing.T) {
	require.Equal(t, "0x2", HexToAddress("0x2").ShortString())
	require.Equal(t, "0x1f", HexToAddress("0x1f").ShortString())
	require.Equal(t, "0x0", Address{}.ShortString())
	full := HexToAddress("0xa11ce")
	require.Equal(t, "0xa11ce", full.ShortString())
}

func TestAddressCompare(t *testing.T) {
	a := HexToAddress("0x1")
	b := HexToAddress("0x2")
	require.Negative(t, a.Cmp(b))
	require.Positive(t, b.Cmp(a))
	require.Zero(t, a.Cmp(a))
	require.True(t, Address{}.IsZero())
	require.False(t, a.IsZero())
}

func TestObjectIDAddressConversion(t *testing.T) {
	id := HexToObjectID("0xc0ffee")
	require.Equal(t, id.Address().Bytes(), id.Bytes())
	require.Equal(t, "0xc0ffee", id.ShortString())
	require.True(t, ObjectID{}.IsZero())
}

func TestDigestCropping(t *testing.T) {
	d := HexToDigest("0xbeef")
	require.Equal(t, byte(0xbe), d[DigestLength-2])
	require.Equal(t, byte(0xef), d[DigestLength-1])
	require.Equal(t, BytesToDigest(bytes.Repeat([]byte{1}, DigestLength+8)),
		BytesToDigest(bytes.Repeat([]byte{1}, DigestLength)))
}

func TestDecodeHexOddLength(t *testing.T) {
	require.Equal(t, HexToAddress("0x123"), HexToAddress("0x0123"))
}
