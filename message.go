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

package minipb

import (
	"github.com/coreproto/minipb/internal/epscopy"
	"github.com/coreproto/minipb/internal/minitable"
	"github.com/coreproto/minipb/internal/wiremsg"
)

// StringView is a borrowed or arena-owned (data, size) view of a string or
// bytes value, as produced by decoding or by [Message.SetBytes].
type StringView = epscopy.StringView

// Message is a decoded or hand-built protobuf message: a MiniTable-shaped
// payload plus the unknown-field and extension bookkeeping that rides
// alongside it. Messages have no reflective field list of their own -
// every accessor below takes the field number straight from the wire
// format and resolves it against the Message's [Type] on each call, the
// same non-reflective contract a generated accessor would hard-code at
// compile time.
type Message struct {
	raw *wiremsg.Message
	typ *Type
}

// NewMessage allocates an empty message of typ on a.
func NewMessage(a *Arena, typ *Type) *Message {
	return &Message{raw: wiremsg.New(a.raw, typ.table), typ: typ}
}

func wrapMessage(raw *wiremsg.Message, typ *Type) *Message {
	if raw == nil {
		return nil
	}
	return &Message{raw: raw, typ: typ}
}

// Type returns m's schema.
func (m *Message) Type() *Type { return m.typ }

func (m *Message) field(number uint32) (*minitable.Field, bool) {
	f, _, ok := m.typ.table.FieldByNumber(number, 0)
	return f, ok
}

// Has reports whether fieldNumber is present on m. Fields with no presence
// tracking (proto3 singular scalars) always report true; callers
// distinguish "unset" from "set to the zero value" themselves for those,
// same as the wire format does.
func (m *Message) Has(fieldNumber uint32) bool {
	f, ok := m.field(fieldNumber)
	if !ok {
		return false
	}
	if hi, has := f.HasbitIndex(); has {
		return m.raw.HasBit(hi)
	}
	if oc, has := f.OneofCaseOffset(); has {
		return m.raw.OneofCase(oc) == f.Number
	}
	return true
}

// Which returns the field number of the active member of the oneof that
// anyFieldNumber belongs to, or 0 if none is set. anyFieldNumber may be any
// member of that oneof.
func (m *Message) Which(anyFieldNumber uint32) uint32 {
	f, ok := m.field(anyFieldNumber)
	if !ok {
		return 0
	}
	oc, has := f.OneofCaseOffset()
	if !has {
		return 0
	}
	return m.raw.OneofCase(oc)
}

// Clear removes presence for fieldNumber without disturbing its stored
// value. For oneof members this clears the whole oneof's case.
func (m *Message) Clear(fieldNumber uint32) {
	f, ok := m.field(fieldNumber)
	if !ok {
		return
	}
	if hi, has := f.HasbitIndex(); has {
		m.raw.ClearBit(hi)
	}
	if oc, has := f.OneofCaseOffset(); has {
		m.raw.SetOneofCase(oc, 0)
	}
}

func (m *Message) markSet(f *minitable.Field) {
	if hi, has := f.HasbitIndex(); has {
		m.raw.SetBit(hi)
		return
	}
	if oc, has := f.OneofCaseOffset(); has {
		m.raw.SetOneofCase(oc, f.Number)
	}
}

// UnknownBytes returns the raw, preserved bytes of every field m's Type
// didn't recognize while decoding, in wire order.
func (m *Message) UnknownBytes() []byte { return m.raw.UnknownBytes() }

// GetField reads the scalar value stored at fieldNumber. T must match the
// Go type implied by the field's kind (uint32/uint64 bit patterns for
// fixed-width numerics, StringView for string/bytes, *Message for a linked
// message or group); a mismatched T reads garbage, the same hazard an
// unsafe cast carries anywhere else in this package.
func GetField[T any](m *Message, fieldNumber uint32) T {
	f, ok := m.field(fieldNumber)
	if !ok {
		var zero T
		return zero
	}
	return wiremsg.Load[T](m.raw, int(f.Offset))
}

// SetField stores a scalar value at fieldNumber and marks it present.
// Reports false if fieldNumber isn't a scalar field of m's Type.
func SetField[T any](m *Message, fieldNumber uint32, v T) bool {
	f, ok := m.field(fieldNumber)
	if !ok || f.Mode != minitable.Scalar {
		return false
	}
	wiremsg.Store(m.raw, int(f.Offset), v)
	m.markSet(f)
	return true
}

// GetMessageField reads a singular message or group field, promoting an
// unlinked placeholder to an empty [Message] of its declared Type rather
// than exposing the tagged-pointer representation directly.
func (m *Message) GetMessageField(fieldNumber uint32) (*Message, bool) {
	f, ok := m.field(fieldNumber)
	if !ok || f.Mode != minitable.Scalar {
		return nil, false
	}
	tagged := wiremsg.Load[wiremsg.TaggedMessagePtr](m.raw, int(f.Offset))
	if tagged.IsNil() {
		return nil, false
	}
	return &Message{raw: tagged.Message(), typ: m.typ.subType(f)}, true
}

// Array is a repeated field's storage: a growable, arena-backed sequence
// whose element type is implied by its field's kind.
type Array struct {
	raw   wiremsg.Array
	a     *Arena
	field *minitable.Field
	sub   *Type
}

// GetArray returns fieldNumber's repeated-field storage.
func (m *Message) GetArray(fieldNumber uint32) (Array, bool) {
	f, ok := m.field(fieldNumber)
	if !ok || f.Mode != minitable.Array {
		return Array{}, false
	}
	return Array{raw: wiremsg.Load[wiremsg.Array](m.raw, int(f.Offset)), field: f, sub: m.typ.subType(f)}, true
}

// Len returns the number of elements in the array.
func (a Array) Len() int { return a.raw.Len() }

// Uint64 reads element i as a raw 64-bit storage word (int64/uint64/sint64
// kinds, or the bit pattern of a double).
func (a Array) Uint64(i int) uint64 { return wiremsg.ArraySlice[uint64](a.raw).Load(i) }

// Uint32 reads element i as a raw 32-bit storage word (int32/uint32/
// sint32/enum kinds, or the bit pattern of a float).
func (a Array) Uint32(i int) uint32 { return wiremsg.ArraySlice[uint32](a.raw).Load(i) }

// Bool reads element i of a bool array.
func (a Array) Bool(i int) bool { return wiremsg.ArraySlice[byte](a.raw).Load(i) != 0 }

// String reads element i of a string or bytes array.
func (a Array) String(i int) StringView { return wiremsg.ArraySlice[StringView](a.raw).Load(i) }

// Message reads element i of a message or group array, promoting an
// unlinked placeholder the same way [Message.GetMessageField] does.
func (a Array) Message(i int) *Message {
	tagged := wiremsg.ArraySlice[wiremsg.TaggedMessagePtr](a.raw).Load(i)
	if tagged.IsNil() {
		return nil
	}
	return &Message{raw: tagged.Message(), typ: a.sub}
}

// Map is a map field's storage.
type Map struct {
	raw   wiremsg.Map
	sub   *Type
	field *minitable.Field
}

// GetMap returns fieldNumber's map-field storage.
func (m *Message) GetMap(fieldNumber uint32) (Map, bool) {
	f, ok := m.field(fieldNumber)
	if !ok || f.Mode != minitable.MapField {
		return Map{}, false
	}
	return Map{raw: wiremsg.Load[wiremsg.Map](m.raw, int(f.Offset)), field: f, sub: m.typ.subType(f)}, true
}

// Len returns the number of entries in the map.
func (m Map) Len() int { return m.raw.Len() }

// RangeScalar calls f for every entry of a map keyed by bytes or a string
// with an integral, bool, or float (bit-pattern) value, in insertion
// order, stopping early if f returns false.
func (m Map) RangeScalar(f func(key StringView, value uint64) bool) {
	m.raw.Range(func(k wiremsg.MapKey, v wiremsg.MapValue) bool {
		return f(k.Str(), v.Scalar())
	})
}

// RangeString calls f for every entry of a map with a string or bytes
// value, in insertion order, stopping early if f returns false.
func (m Map) RangeString(f func(key StringView, value StringView) bool) {
	m.raw.Range(func(k wiremsg.MapKey, v wiremsg.MapValue) bool {
		return f(k.Str(), v.Str())
	})
}

// RangeMessage calls f for every entry of a map with a message value, in
// insertion order, stopping early if f returns false.
func (m Map) RangeMessage(f func(key StringView, value *Message) bool) {
	m.raw.Range(func(k wiremsg.MapKey, v wiremsg.MapValue) bool {
		tagged := v.Msg()
		if tagged.IsNil() {
			return f(k.Str(), nil)
		}
		return f(k.Str(), &Message{raw: tagged.Message(), typ: m.sub})
	})
}
