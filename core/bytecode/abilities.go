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

package bytecode

import "strings"

// Ability is one of the four Move abilities.
type Ability byte

const (
	AbilityCopy Ability = 1 << iota
	AbilityDrop
	AbilityStore
	AbilityKey
)

// AbilitySet is a bitset of abilities.
type AbilitySet byte

// Predefined ability sets.
const (
	AbilitiesNone      AbilitySet = 0
	AbilitiesPrimitive AbilitySet = AbilitySet(AbilityCopy | AbilityDrop | AbilityStore)
	AbilitiesAll       AbilitySet = AbilitySet(AbilityCopy | AbilityDrop | AbilityStore | AbilityKey)
)

// Has reports whether the set contains a.
func (s AbilitySet) Has(a Ability) bool { return byte(s)&byte(a) != 0 }

func (s AbilitySet) HasCopy() bool  { return s.Has(AbilityCopy) }
func (s AbilitySet) HasDrop() bool  { return s.Has(AbilityDrop) }
func (s AbilitySet) HasStore() bool { return s.Has(AbilityStore) }
func (s AbilitySet) HasKey() bool   { return s.Has(AbilityKey) }

// Union returns the union of the two sets.
func (s AbilitySet) Union(other AbilitySet) AbilitySet { return s | other }

// Intersect returns the intersection of the two sets.
func (s AbilitySet) Intersect(other AbilitySet) AbilitySet { return s & other }

// IsSubset reports whether every ability in s is present in other.
func (s AbilitySet) IsSubset(other AbilitySet) bool { return s&other == s }

// String implements fmt.Stringer.
func (s AbilitySet) String() string {
	if s == 0 {
		return "[]"
	}
	var parts []string
	if s.HasCopy() {
		parts = append(parts, "copy")
	}
	if s.HasDrop() {
		parts = append(parts, "drop")
	}
	if s.HasStore() {
		parts = append(parts, "store")
	}
	if s.HasKey() {
		parts = append(parts, "key")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// requiredAbility maps an ability of an instantiation to the ability required
// of its type arguments: key requires store, everything else requires itself.
func requiredAbility(a Ability) Ability {
	if a == AbilityKey {
		return AbilityStore
	}
	return a
}

// InstantiatedAbilities computes the ability set of a datatype instantiation:
// the declared set restricted to abilities whose requirement is satisfied by
// every non-phantom type argument.
func InstantiatedAbilities(declared AbilitySet, params []TypeParam, args []AbilitySet) AbilitySet {
	result := declared
	for _, a := range []Ability{AbilityCopy, AbilityDrop, AbilityStore, AbilityKey} {
		if !declared.Has(a) {
			continue
		}
		req := requiredAbility(a)
		for i, arg := range args {
			if i < len(params) && params[i].IsPhantom {
				continue
			}
			if !arg.Has(req) {
				result &^= AbilitySet(a)
				break
			}
		}
	}
	return result
}

// VectorAbilities computes the ability set of vector<elem>: copy, drop and
// store each conditioned on the element having it. Vectors never have key.
func VectorAbilities(elem AbilitySet) AbilitySet {
	return AbilitiesPrimitive.Intersect(elem)
}
