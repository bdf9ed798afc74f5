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

// Package minitable is the in-memory, non-reflective schema representation
// that the decoder and encoder operate against: one MiniTable per message
// type, built once (usually from a MiniDescriptor, see internal/minidesc)
// and reused across every decode/encode of that type.
package minitable

import (
	"sort"

	"github.com/coreproto/minipb/internal/table"
	"github.com/coreproto/minipb/internal/xsync"
)

// Kind is the wire-level type of a field, independent of its Go
// representation.
type Kind uint8

const (
	KindDouble Kind = iota
	KindFloat
	KindFixed32
	KindFixed64
	KindSFixed32
	KindSFixed64
	KindInt32
	KindUint32
	KindSInt32
	KindInt64
	KindUint64
	KindSInt64
	KindOpenEnum
	KindBool
	KindBytes
	KindString
	KindGroup
	KindMessage
	KindClosedEnum
)

// Mode is the field cardinality: singular, repeated, or a map.
type Mode uint8

const (
	Scalar Mode = iota
	Array
	MapField
)

// Rep is how a field's value is stored in the message payload.
type Rep uint8

const (
	Rep1Byte Rep = iota
	Rep4Byte
	Rep8Byte
	RepStringView
	RepPointer
)

// Flags are bit flags on a field.
type Flags uint8

const (
	IsPacked Flags = 1 << iota
	IsExtension
	IsAlternate
)

// Field is one entry in a MiniTable's field list.
//
// Presence encodes where this field's presence bit lives:
//
//	Presence > 0: hasbit index is Presence-1.
//	Presence < 0: -Presence is the byte offset of this field's oneof case slot.
//	Presence == 0: the field has no presence (proto3 singular scalar).
//
// This shift by one is necessary because hasbit index 0 is a valid index,
// but 0 is also the sentinel for "no presence".
type Field struct {
	Number   uint32
	Offset   uint16
	Presence int16
	SubIndex uint16
	Mode     Mode
	Rep      Rep
	Flags    Flags
	Kind     Kind
}

// HasbitIndex returns this field's hasbit index and whether it has one.
func (f *Field) HasbitIndex() (int, bool) {
	if f.Presence > 0 {
		return int(f.Presence - 1), true
	}
	return 0, false
}

// OneofCaseOffset returns this field's oneof case byte offset and whether
// it is a oneof member.
func (f *Field) OneofCaseOffset() (int, bool) {
	if f.Presence < 0 {
		return int(-f.Presence), true
	}
	return 0, false
}

// HasPresence reports whether this field tracks presence at all.
func (f *Field) HasPresence() bool { return f.Presence != 0 }

// StorageSize returns the number of payload bytes this field's Rep and Mode
// occupy, independent of where it was laid out.
func (f *Field) StorageSize() int {
	if f.Mode == Array || f.Mode == MapField {
		return 16
	}
	switch f.Rep {
	case Rep1Byte:
		return 1
	case Rep4Byte:
		return 4
	case Rep8Byte:
		return 8
	case RepStringView:
		return 16
	case RepPointer:
		return 8
	}
	return 8
}

// SubKind distinguishes what a Sub entry points to.
type SubKind uint8

const (
	SubNone SubKind = iota
	SubMessageKind
	SubEnumKind
)

// Sub is one entry in a MiniTable's sub-schema table: either another
// MiniTable (for message/group fields) or an Enum (for closed enums).
type Sub struct {
	Kind    SubKind
	Message *Table
	Enum    *Enum
}

// Extendability classifies how a message interacts with extensions.
type Extendability uint8

const (
	NonExtendable Extendability = iota
	Extendable
	IsMessageSet
	IsMapEntry
)

// Table is a MiniTable: the compact, runtime-interpretable schema for one
// message type.
type Table struct {
	Fields        []Field
	Subs          []Sub
	Size          uint16
	RequiredCount uint8
	DenseBelow    uint32
	Ext           Extendability

	// fast is an optional dispatch table from field number to index into
	// Fields, used once DenseBelow is exhausted. It is built by
	// BuildFastTable; nil means "use linear scan".
	fast *table.Table[int32]
}

// Empty is the canonical placeholder MiniTable used for sub-message fields
// whose real schema has not yet been linked via SetSubMessage. It has no
// fields and a zero payload size; decoding into it captures raw bytes for
// later promotion (see the decoder's unlinked sub-message handling).
var Empty = &Table{}

// FieldByNumber looks up a field by its number. hint is the index at which
// to resume a linear scan (typically the previous field's index plus one,
// since fields usually arrive in ascending order on the wire); pass 0 if
// unknown.
func (t *Table) FieldByNumber(number uint32, hint int) (*Field, int, bool) {
	if number >= 1 && number <= t.DenseBelow {
		idx := int(number) - 1
		if idx < len(t.Fields) && t.Fields[idx].Number == number {
			return &t.Fields[idx], idx, true
		}
	}

	if t.fast != nil {
		if idx := t.fast.Lookup(int32(number)); idx != nil {
			return &t.Fields[*idx], int(*idx), true
		}
		return nil, 0, false
	}

	n := len(t.Fields)
	if hint < 0 || hint >= n {
		hint = int(t.DenseBelow)
	}
	for i := hint; i < n; i++ {
		if t.Fields[i].Number == number {
			return &t.Fields[i], i, true
		}
	}
	for i := 0; i < hint && i < n; i++ {
		if t.Fields[i].Number == number {
			return &t.Fields[i], i, true
		}
	}
	return nil, 0, false
}

// BuildFastTable freezes a field-number -> field-index dispatch table for
// every field at or beyond DenseBelow. Called once, after a MiniTable's
// field list is final; safe to skip entirely (FieldByNumber falls back to a
// linear scan).
func (t *Table) BuildFastTable() {
	var entries []table.Entry[int32]
	for i := range t.Fields {
		if t.Fields[i].Number <= t.DenseBelow {
			continue
		}
		entries = append(entries, table.Entry[int32]{
			Key:   int32(t.Fields[i].Number),
			Value: int32(i),
		})
	}
	if len(entries) == 0 {
		return
	}
	_, tbl := table.New(nil, entries...)
	t.fast = &tbl
}

// SetSubMessage links field's sub-entry to sub, replacing the zero Sub
// left by the descriptor decoder. Must be externally synchronized with any concurrent
// decode using this field; the store itself is a plain write (the caller
// is responsible for publishing it with a release fence, e.g. by only
// handing the MiniTable to other goroutines after this call returns).
func (t *Table) SetSubMessage(fieldNumber uint32, sub *Table) bool {
	f, idx, ok := t.FieldByNumber(fieldNumber, 0)
	if !ok {
		return false
	}
	t.Subs[f.SubIndex] = Sub{Kind: SubMessageKind, Message: sub}
	// A repeated message field whose linked submessage turns out to be a
	// synthetic map-entry message is, by construction, a map field: this is
	// exactly how protobuf's own wire format represents maps, so promoting
	// Mode here (rather than requiring a distinct on-wire map grammar) keeps
	// the field's later FieldByNumber lookups returning the right Mode with
	// no extra bookkeeping.
	if sub != nil && sub.Ext == IsMapEntry && t.Fields[idx].Mode == Array {
		t.Fields[idx].Mode = MapField
	}
	return true
}

// SetSubEnum links field's sub-entry to a closed-enum validator.
func (t *Table) SetSubEnum(fieldNumber uint32, enum *Enum) bool {
	f, _, ok := t.FieldByNumber(fieldNumber, 0)
	if !ok {
		return false
	}
	t.Subs[f.SubIndex] = Sub{Kind: SubEnumKind, Enum: enum}
	return true
}

// Enum is a closed-enum validator: a bitmap over the first N values plus a
// sorted overflow list for the rest.
type Enum struct {
	Bitmap   []uint32
	Overflow []int32
}

// IsValid reports whether v is a declared value of this enum.
func (e *Enum) IsValid(v int32) bool {
	if v >= 0 && int(v) < len(e.Bitmap)*32 {
		word := e.Bitmap[v/32]
		return word&(1<<(uint32(v)%32)) != 0
	}
	i := sort.Search(len(e.Overflow), func(i int) bool { return e.Overflow[i] >= v })
	return i < len(e.Overflow) && e.Overflow[i] == v
}

// Extension bundles a field descriptor for an extension with a back-pointer
// to the message it extends and the sub-entry for the extension's type.
type Extension struct {
	Field    Field
	Extendee *Table
	Sub      Sub
}

// extKey identifies an extension by the message it extends and its field
// number.
type extKey struct {
	extendee *Table
	number   uint32
}

// Registry is an append-only, concurrent-safe extension registry, keyed by
// (extended MiniTable, field number).
type Registry struct {
	byKey xsync.Map[extKey, *Extension]
}

// NewRegistry creates an empty extension registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds ext to the registry. Safe to call concurrently with Find,
// per the spec's "append-only; lookups may race with adds only if readers
// synchronize externally" contract.
func (r *Registry) Register(ext *Extension) {
	r.byKey.Store(extKey{ext.Extendee, ext.Field.Number}, ext)
}

// Find looks up a registered extension of extendee by field number.
func (r *Registry) Find(extendee *Table, number uint32) (*Extension, bool) {
	return r.byKey.Load(extKey{extendee, number})
}
