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

// Package wiremsg is the in-memory message representation the decoder and
// encoder read and write: a MiniTable-shaped payload preceded by a small
// internal header, both living in an arena.
package wiremsg

import (
	"unsafe"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/arena/slice"
	"github.com/coreproto/minipb/internal/debug"
	"github.com/coreproto/minipb/internal/minitable"
	"github.com/coreproto/minipb/internal/xunsafe"
	"github.com/coreproto/minipb/internal/xunsafe/layout"
)

// ExtEntry is one entry in a message's extension list: the extension
// descriptor plus a pointer to its arena-allocated value storage.
type ExtEntry struct {
	Ext   *minitable.Extension
	Value unsafe.Pointer
}

// header is the internal bookkeeping that precedes every message's payload
// in memory.
//
// Unlike the original, which stores the unknown-fields buffer as a raw
// pointer/length pair directly and grows it with ad hoc realloc calls, this
// keeps it as an arena slice.Slice[byte] - the same growable-buffer type
// used everywhere else in this package - since nothing about unknown-field
// accumulation needs a bespoke representation.
type header struct {
	unknown    slice.Slice[byte]
	extensions slice.Slice[ExtEntry]
}

var headerSize = layout.Size[header]()

// Message is an opaque handle to a MiniTable-shaped payload living in an
// arena, preceded by its header.
type Message struct {
	payload *byte
}

// New allocates a zeroed message for mt on a.
func New(a *arena.Arena, mt *minitable.Table) *Message {
	total := headerSize + int(mt.Size)
	base := a.Alloc(total)
	return &Message{payload: xunsafe.ByteAdd[byte](base, headerSize)}
}

// Payload returns the pointer to the first byte of m's field-storage
// region, i.e. (message_base + 0) in the spec's terms.
func (m *Message) Payload() *byte { return m.payload }

// Wrap views an arbitrary arena-allocated cell as a Message, for callers
// (such as the extension-value decoder) that need Load/Store/HasBit access
// to a field-shaped region that was never allocated with a real header.
// Header-reading methods (UnknownBytes, Extensions, AppendUnknown,
// AppendExtension) must not be called on the result.
func Wrap(payload *byte) *Message { return &Message{payload: payload} }

func (m *Message) header() *header {
	return xunsafe.ByteAdd[header](m.payload, -headerSize)
}

// UnknownBytes returns the raw bytes of every field this message's
// MiniTable didn't recognize, in wire order.
func (m *Message) UnknownBytes() []byte { return m.header().unknown.Raw() }

// AppendUnknown appends raw tag+value bytes to m's unknown-field buffer.
func (m *Message) AppendUnknown(a *arena.Arena, raw []byte) {
	h := m.header()
	h.unknown = h.unknown.Append(a, raw...)
}

// Extensions returns the list of extension values set on m.
func (m *Message) Extensions() []ExtEntry { return m.header().extensions.Raw() }

// AppendExtension records that ext is present on m with the given value
// pointer.
func (m *Message) AppendExtension(a *arena.Arena, ext *minitable.Extension, value unsafe.Pointer) {
	h := m.header()
	h.extensions = h.extensions.AppendOne(a, ExtEntry{ext, value})
}

// FindExtension looks for an already-decoded extension value by field
// number.
func (m *Message) FindExtension(number uint32) (ExtEntry, bool) {
	for _, e := range m.Extensions() {
		if e.Ext.Field.Number == number {
			return e, true
		}
	}
	return ExtEntry{}, false
}

// hasbitWord is the first 8 bytes of the payload: bit i is hasbit i.
//
// The original packs this so that a byte-swap to big-endian yields a word
// whose bit i is hasbit i+1, letting the required-mask check use the same
// comparison on both little- and big-endian hosts without a swap on the
// common (little-endian) path. Since nothing here shares memory layout
// with a foreign reader, that trick buys nothing: storing hasbits in
// host-native order and comparing with a plain mask is equivalent and
// simpler.
func (m *Message) hasbitWord() uint64 { return xunsafe.ByteLoad[uint64](m.payload, 0) }

func (m *Message) setHasbitWord(w uint64) { xunsafe.ByteStore(m.payload, 0, w) }

// HasBit reports whether hasbit i is set.
func (m *Message) HasBit(i int) bool { return m.hasbitWord()&(uint64(1)<<uint(i)) != 0 }

// SetBit sets hasbit i.
func (m *Message) SetBit(i int) { m.setHasbitWord(m.hasbitWord() | uint64(1)<<uint(i)) }

// ClearBit clears hasbit i.
func (m *Message) ClearBit(i int) { m.setHasbitWord(m.hasbitWord() &^ (uint64(1) << uint(i))) }

// RequiredSatisfied reports whether every one of the first requiredCount
// hasbits is set.
func (m *Message) RequiredSatisfied(requiredCount int) bool {
	if requiredCount == 0 {
		return true
	}
	mask := uint64(1)<<uint(requiredCount) - 1
	return m.hasbitWord()&mask == mask
}

// OneofCase reads the field number of the active member of a oneof whose
// case slot lives at the given byte offset. 0 means no member is set.
func (m *Message) OneofCase(offset int) uint32 { return xunsafe.ByteLoad[uint32](m.payload, offset) }

// SetOneofCase writes the field number of the new active oneof member.
func (m *Message) SetOneofCase(offset int, number uint32) {
	xunsafe.ByteStore(m.payload, offset, number)
}

// Load reads a value of type T at the given byte offset in m's payload.
func Load[T any](m *Message, offset int) T {
	return xunsafe.ByteLoad[T](m.payload, offset)
}

// Store writes a value of type T at the given byte offset in m's payload.
func Store[T any](m *Message, offset int, v T) {
	xunsafe.ByteStore(m.payload, offset, v)
}

// TaggedMessagePtr is a pointer to a Message with one tag bit indicating
// that the message was decoded as an unlinked placeholder (MiniTable
// minitable.Empty) and must be promoted before it can be read as its true
// type.
type TaggedMessagePtr uintptr

// TagLinked wraps m as a fully-linked tagged pointer.
func TagLinked(m *Message) TaggedMessagePtr {
	return TaggedMessagePtr(uintptr(unsafe.Pointer(m.payload)))
}

// TagEmpty wraps m as an unlinked-placeholder tagged pointer.
func TagEmpty(m *Message) TaggedMessagePtr {
	debug.Assert(uintptr(unsafe.Pointer(m.payload))&1 == 0, "message payload must be at least 2-byte aligned")
	return TaggedMessagePtr(uintptr(unsafe.Pointer(m.payload)) | 1)
}

// IsEmpty reports whether this pointer refers to an unlinked placeholder.
func (t TaggedMessagePtr) IsEmpty() bool { return t&1 != 0 }

// Message returns the underlying message, regardless of its tag.
func (t TaggedMessagePtr) Message() *Message {
	return &Message{payload: (*byte)(unsafe.Pointer(uintptr(t) &^ 1))}
}

// IsNil reports whether this is the zero TaggedMessagePtr.
func (t TaggedMessagePtr) IsNil() bool { return t&^1 == 0 }
