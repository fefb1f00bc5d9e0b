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

// Package common contains the basic address and digest types shared across
// the execution core.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

const (
	// AddressLength is the expected length of an account or package address.
	AddressLength = 32
	// DigestLength is the expected length of a transaction or package digest.
	DigestLength = 32
)

// Address represents a 32 byte account address. Package addresses share this
// representation; see ObjectID for the identity of on-chain objects.
type Address [AddressLength]byte

// BytesToAddress returns Address with value b.
// If b is larger than len(h), b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress returns Address with byte values of s.
// If s is larger than len(h), s will be cropped from the left.
func HexToAddress(s string) Address { return BytesToAddress(fromHex(s)) }

// SetBytes sets the address to the value of b.
// If b is larger than len(a), b will be cropped from the left.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Bytes gets the byte representation of the underlying address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns a 0x prefixed hex representation of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// ShortString renders the address with leading zero bytes elided, matching
// the conventional display of well known framework addresses (0x1, 0x2, ...).
func (a Address) ShortString() string {
	i := 0
	for i < len(a)-1 && a[i] == 0 {
		i++
	}
	s := hex.EncodeToString(a[i:])
	if len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return "0x" + s
}

// Cmp compares two addresses lexicographically.
func (a Address) Cmp(other Address) int { return bytes.Compare(a[:], other[:]) }

// IsZero reports whether the address is all zeroes.
func (a Address) IsZero() bool { return a == Address{} }

// MarshalText returns the hex representation of a.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText parses an address in hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	raw, err := decodeHex(string(input))
	if err != nil {
		return err
	}
	if len(raw) != AddressLength {
		return fmt.Errorf("invalid address length %d", len(raw))
	}
	copy(a[:], raw)
	return nil
}

// ObjectID is the identity of an on-chain object. Packages are objects too,
// so package storage addresses are ObjectIDs.
type ObjectID Address

// BytesToObjectID returns ObjectID with value b, cropped from the left.
func BytesToObjectID(b []byte) ObjectID { return ObjectID(BytesToAddress(b)) }

// HexToObjectID returns ObjectID with byte values of s.
func HexToObjectID(s string) ObjectID { return ObjectID(HexToAddress(s)) }

// Address converts the object ID to its address representation.
func (id ObjectID) Address() Address { return Address(id) }

// Bytes gets the byte representation of the underlying ID.
func (id ObjectID) Bytes() []byte { return id[:] }

// Hex returns a 0x prefixed hex representation of the ID.
func (id ObjectID) Hex() string { return Address(id).Hex() }

// String implements fmt.Stringer.
func (id ObjectID) String() string { return Address(id).Hex() }

// ShortString renders the ID with leading zero bytes elided.
func (id ObjectID) ShortString() string { return Address(id).ShortString() }

// IsZero reports whether the ID is all zeroes.
func (id ObjectID) IsZero() bool { return id == ObjectID{} }

// MarshalText returns the hex representation of id.
func (id ObjectID) MarshalText() ([]byte, error) { return Address(id).MarshalText() }

// UnmarshalText parses an object ID in hex syntax.
func (id *ObjectID) UnmarshalText(input []byte) error {
	return (*Address)(id).UnmarshalText(input)
}

// Digest represents the 32 byte blake2b digest of arbitrary data.
type Digest [DigestLength]byte

// BytesToDigest returns Digest with value b, cropped from the left.
func BytesToDigest(b []byte) Digest {
	var d Digest
	if len(b) > len(d) {
		b = b[len(b)-DigestLength:]
	}
	copy(d[DigestLength-len(b):], b)
	return d
}

// HexToDigest returns Digest with byte values of s.
func HexToDigest(s string) Digest { return BytesToDigest(fromHex(s)) }

// Bytes gets the byte representation of the underlying digest.
func (d Digest) Bytes() []byte { return d[:] }

// Hex returns a 0x prefixed hex representation of the digest.
func (d Digest) Hex() string { return "0x" + hex.EncodeToString(d[:]) }

// String implements fmt.Stringer.
func (d Digest) String() string { return d.Hex() }

func fromHex(s string) []byte {
	b, _ := decodeHex(s)
	return b
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
