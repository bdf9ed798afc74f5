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

// Package encoder implements MiniTable-driven wire-format encoding: the
// mirror image of internal/decoder.
//
// The original builds its output buffer tail-to-head, writing each
// message's bytes from the end of its eventual slot backwards, so that a
// submessage's encoded length is already known by the time its parent
// writes the length-delimited tag ahead of it, with no separate
// size-computation pass. This encoder instead appends forwards into a
// growable Go slice, encoding each submessage body into a buffer of its
// own and then appending its length prefix and bytes to the parent, with
// no separate size pass: Go's append already amortizes growth, so
// the backwards-build trick - which exists to avoid a C arena bump
// allocator doing that work twice - buys nothing here, and a forwards
// writer composes more naturally with Go's []byte idioms.
package encoder

import (
	"sort"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/epscopy"
	"github.com/coreproto/minipb/internal/minitable"
	"github.com/coreproto/minipb/internal/wire"
	"github.com/coreproto/minipb/internal/wireerr"
	"github.com/coreproto/minipb/internal/wiremsg"
	"github.com/coreproto/minipb/internal/xunsafe"
	"github.com/coreproto/minipb/internal/zigzag"
)

// Options controls a single encode operation.
type Options struct {
	MaxDepth      int
	Deterministic bool
	SkipUnknown   bool
	CheckRequired bool
}

// Encoder serializes a wiremsg.Message against its minitable.Table. It
// needs an arena of its own only to build the transient, never-retained
// map-entry messages synthesized while encoding map fields.
type Encoder struct {
	arena *arena.Arena
	opts  Options
	depth int
}

// New creates an Encoder that uses a for any transient allocations it needs
// while encoding (currently just synthetic map-entry messages).
func New(a *arena.Arena, opts Options) *Encoder {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = wire.DefaultMaxDepth
	}
	return &Encoder{arena: a, opts: opts}
}

// Encode appends m's wire-format encoding to dst and returns the result.
func (e *Encoder) Encode(dst []byte, m *wiremsg.Message, mt *minitable.Table) ([]byte, *wireerr.ParseError) {
	return e.message(dst, m, mt)
}

func (e *Encoder) message(dst []byte, m *wiremsg.Message, mt *minitable.Table) ([]byte, *wireerr.ParseError) {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.opts.MaxDepth {
		return dst, wireerr.New(wireerr.StatusMaxDepth, len(dst))
	}
	if e.opts.CheckRequired && !m.RequiredSatisfied(int(mt.RequiredCount)) {
		return dst, wireerr.New(wireerr.StatusMissingRequired, len(dst))
	}

	// Unknown bytes are emitted ahead of regular fields: this mirrors the
	// original's tail-to-head construction, where the not-yet-understood
	// bytes are laid down first (ending up at the head of the final,
	// reversed buffer) and declared fields are written after.
	if !e.opts.SkipUnknown {
		dst = append(dst, m.UnknownBytes()...)
	}

	fields := mt.Fields
	if e.opts.Deterministic {
		fields = append([]minitable.Field(nil), fields...)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Number < fields[j].Number })
	}

	var err *wireerr.ParseError
	for i := range fields {
		f := &fields[i]
		dst, err = e.field(dst, m, mt, f)
		if err != nil {
			return dst, err
		}
	}

	if mt.Ext != minitable.NonExtendable {
		exts := append([]wiremsg.ExtEntry(nil), m.Extensions()...)
		if e.opts.Deterministic {
			sort.Slice(exts, func(i, j int) bool { return exts[i].Ext.Field.Number < exts[j].Ext.Field.Number })
		}
		for _, ext := range exts {
			if mt.Ext == minitable.IsMessageSet {
				dst, err = e.messageSetItem(dst, ext)
			} else {
				dst, err = e.extension(dst, ext)
			}
			if err != nil {
				return dst, err
			}
		}
	}

	return dst, nil
}

func (e *Encoder) field(dst []byte, m *wiremsg.Message, mt *minitable.Table, f *minitable.Field) ([]byte, *wireerr.ParseError) {
	switch f.Mode {
	case minitable.Scalar:
		if hi, ok := f.HasbitIndex(); ok {
			if !m.HasBit(hi) {
				return dst, nil
			}
		} else if oc, ok := f.OneofCaseOffset(); ok {
			if m.OneofCase(oc) != f.Number {
				return dst, nil
			}
		} else if !hasImplicitPresence(m, f) {
			return dst, nil
		}
		return e.scalarField(dst, m, mt, f)

	case minitable.Array:
		return e.arrayField(dst, m, mt, f)

	case minitable.MapField:
		return e.mapField(dst, m, mt, f)
	}
	return dst, nil
}

// hasImplicitPresence reports whether a proto3 scalar field with no hasbit
// (i.e. no explicit presence) should still be written, which happens
// exactly when its value is non-zero.
func hasImplicitPresence(m *wiremsg.Message, f *minitable.Field) bool {
	switch f.Rep {
	case minitable.Rep1Byte:
		return wiremsg.Load[byte](m, int(f.Offset)) != 0
	case minitable.Rep4Byte:
		return wiremsg.Load[uint32](m, int(f.Offset)) != 0
	case minitable.Rep8Byte:
		return wiremsg.Load[uint64](m, int(f.Offset)) != 0
	case minitable.RepStringView:
		return wiremsg.Load[epscopy.StringView](m, int(f.Offset)).Len() != 0
	case minitable.RepPointer:
		return !wiremsg.Load[wiremsg.TaggedMessagePtr](m, int(f.Offset)).IsNil()
	}
	return false
}

func (e *Encoder) scalarField(dst []byte, m *wiremsg.Message, mt *minitable.Table, f *minitable.Field) ([]byte, *wireerr.ParseError) {
	switch f.Kind {
	case minitable.KindMessage:
		tmp := wiremsg.Load[wiremsg.TaggedMessagePtr](m, int(f.Offset))
		return e.subMessage(dst, f.Number, wire.Delimited, tmp, subTable(mt, f))
	case minitable.KindGroup:
		return e.group(dst, f.Number, wiremsg.Load[wiremsg.TaggedMessagePtr](m, int(f.Offset)), subTable(mt, f))
	case minitable.KindBytes, minitable.KindString:
		sv := wiremsg.Load[epscopy.StringView](m, int(f.Offset))
		dst = wire.AppendTag(dst, wire.Number(f.Number), wire.Delimited)
		dst = wire.AppendBytes(dst, sv.Bytes())
		return dst, nil
	default:
		v := loadScalarBits(m, f)
		dst = wire.AppendTag(dst, wire.Number(f.Number), wantWireType(f.Kind))
		dst = appendScalarValue(dst, f.Kind, v)
		return dst, nil
	}
}

func subTable(mt *minitable.Table, f *minitable.Field) *minitable.Table {
	if f.Kind != minitable.KindMessage && f.Kind != minitable.KindGroup {
		return nil
	}
	sub := mt.Subs[f.SubIndex]
	if sub.Kind == minitable.SubMessageKind {
		return sub.Message
	}
	return nil
}

func (e *Encoder) subMessage(dst []byte, number uint32, typ wire.Type, tmp wiremsg.TaggedMessagePtr, sub *minitable.Table) ([]byte, *wireerr.ParseError) {
	if tmp.IsNil() {
		return dst, nil
	}
	if tmp.IsEmpty() {
		return dst, wireerr.New(wireerr.StatusUnlinkedSubMessage, len(dst))
	}
	dst = wire.AppendTag(dst, wire.Number(number), typ)

	child := tmp.Message()
	var body []byte
	var err *wireerr.ParseError
	body, err = e.message(body, child, sub)
	if err != nil {
		return dst, err
	}
	dst = wire.AppendVarint(dst, uint64(len(body)))
	dst = append(dst, body...)
	return dst, nil
}

func (e *Encoder) group(dst []byte, number uint32, tmp wiremsg.TaggedMessagePtr, sub *minitable.Table) ([]byte, *wireerr.ParseError) {
	if tmp.IsNil() {
		return dst, nil
	}
	if tmp.IsEmpty() {
		return dst, wireerr.New(wireerr.StatusUnlinkedSubMessage, len(dst))
	}
	dst = wire.AppendTag(dst, wire.Number(number), wire.StartGroup)
	var err *wireerr.ParseError
	dst, err = e.message(dst, tmp.Message(), sub)
	if err != nil {
		return dst, err
	}
	dst = wire.AppendTag(dst, wire.Number(number), wire.EndGroup)
	return dst, nil
}

// MessageSet item field numbers; see internal/decoder's matching constants.
const (
	messageSetItemNumber    = 1
	messageSetTypeIDNumber  = 2
	messageSetMessageNumber = 3
)

// messageSetItem emits one extension of a MessageSet-extendable message in
// the Item group form: `1: { 2: type_id 3: message }`.
func (e *Encoder) messageSetItem(dst []byte, ext wiremsg.ExtEntry) ([]byte, *wireerr.ParseError) {
	f := &ext.Ext.Field
	cell := wiremsg.Wrap(xunsafe.ByteAdd[byte]((*byte)(ext.Value), -int(f.Offset)))
	tmp := wiremsg.Load[wiremsg.TaggedMessagePtr](cell, int(f.Offset))
	if tmp.IsNil() {
		return dst, nil
	}
	if tmp.IsEmpty() {
		return dst, wireerr.New(wireerr.StatusUnlinkedSubMessage, len(dst))
	}

	body, err := e.message(nil, tmp.Message(), ext.Ext.Sub.Message)
	if err != nil {
		return dst, err
	}

	dst = wire.AppendTag(dst, messageSetItemNumber, wire.StartGroup)
	dst = wire.AppendTag(dst, messageSetTypeIDNumber, wire.Varint)
	dst = wire.AppendVarint(dst, uint64(f.Number))
	dst = wire.AppendTag(dst, messageSetMessageNumber, wire.Delimited)
	dst = wire.AppendVarint(dst, uint64(len(body)))
	dst = append(dst, body...)
	dst = wire.AppendTag(dst, messageSetItemNumber, wire.EndGroup)
	return dst, nil
}

func (e *Encoder) extension(dst []byte, ext wiremsg.ExtEntry) ([]byte, *wireerr.ParseError) {
	f := &ext.Ext.Field
	// The extension value pointer is offset into its synthetic one-field
	// container the same way internal/decoder built it (cell + f.Offset),
	// so the field's own Offset must be subtracted back out before
	// Wrap-ing to recover the cell base that Wrap expects as "offset 0".
	cell := wiremsg.Wrap(xunsafe.ByteAdd[byte]((*byte)(ext.Value), -int(f.Offset)))
	container := &minitable.Table{Fields: []minitable.Field{*f}, Subs: []minitable.Sub{ext.Ext.Sub}}

	switch f.Mode {
	case minitable.Array:
		return e.arrayField(dst, cell, container, &container.Fields[0])
	case minitable.MapField:
		return e.mapField(dst, cell, container, &container.Fields[0])
	default:
		return e.scalarField(dst, cell, container, &container.Fields[0])
	}
}

func (e *Encoder) arrayField(dst []byte, m *wiremsg.Message, mt *minitable.Table, f *minitable.Field) ([]byte, *wireerr.ParseError) {
	arr := wiremsg.Load[wiremsg.Array](m, int(f.Offset))
	n := arr.Len()
	if n == 0 {
		return dst, nil
	}

	// Field.Flags&IsPacked mirrors the descriptor's FlipPacked modifier: it
	// toggles away from the packable-kind default of packed, rather than
	// meaning "packed" on its own, so the actual packedness is an XOR.
	packed := isPackable(f.Kind)
	if f.Flags&minitable.IsPacked != 0 {
		packed = !packed
	}

	if !packed {
		for i := 0; i < n; i++ {
			var err *wireerr.ParseError
			dst, err = e.arrayElem(dst, mt, f, arr, i)
			if err != nil {
				return dst, err
			}
		}
		return dst, nil
	}

	dst = wire.AppendTag(dst, wire.Number(f.Number), wire.Delimited)
	var body []byte
	for i := 0; i < n; i++ {
		v := scalarAt(arr, f.Rep, i)
		body = appendScalarValue(body, f.Kind, v)
	}
	dst = wire.AppendVarint(dst, uint64(len(body)))
	dst = append(dst, body...)
	return dst, nil
}

func (e *Encoder) arrayElem(dst []byte, mt *minitable.Table, f *minitable.Field, arr wiremsg.Array, i int) ([]byte, *wireerr.ParseError) {
	switch f.Kind {
	case minitable.KindMessage:
		tmp := wiremsg.ArraySlice[wiremsg.TaggedMessagePtr](arr).Load(i)
		return e.subMessage(dst, f.Number, wire.Delimited, tmp, subTable(mt, f))
	case minitable.KindGroup:
		tmp := wiremsg.ArraySlice[wiremsg.TaggedMessagePtr](arr).Load(i)
		return e.group(dst, f.Number, tmp, subTable(mt, f))
	case minitable.KindBytes, minitable.KindString:
		sv := wiremsg.ArraySlice[epscopy.StringView](arr).Load(i)
		dst = wire.AppendTag(dst, wire.Number(f.Number), wire.Delimited)
		dst = wire.AppendBytes(dst, sv.Bytes())
		return dst, nil
	default:
		v := scalarAt(arr, f.Rep, i)
		dst = wire.AppendTag(dst, wire.Number(f.Number), wantWireType(f.Kind))
		dst = appendScalarValue(dst, f.Kind, v)
		return dst, nil
	}
}

func scalarAt(arr wiremsg.Array, rep minitable.Rep, i int) uint64 {
	switch rep {
	case minitable.Rep1Byte:
		return uint64(wiremsg.ArraySlice[byte](arr).Load(i))
	case minitable.Rep4Byte:
		return uint64(wiremsg.ArraySlice[uint32](arr).Load(i))
	default:
		return wiremsg.ArraySlice[uint64](arr).Load(i)
	}
}

func (e *Encoder) mapField(dst []byte, m *wiremsg.Message, mt *minitable.Table, f *minitable.Field) ([]byte, *wireerr.ParseError) {
	mp := wiremsg.Load[wiremsg.Map](m, int(f.Offset))
	if mp.Len() == 0 {
		return dst, nil
	}
	entryTable := subTable(mt, f)
	if entryTable == nil {
		return dst, wireerr.New(wireerr.StatusUnlinkedSubMessage, len(dst))
	}
	keyField, _, _ := entryTable.FieldByNumber(1, 0)
	valField, _, _ := entryTable.FieldByNumber(2, 0)

	type kv struct {
		k wiremsg.MapKey
		v wiremsg.MapValue
	}
	var entries []kv
	mp.Range(func(k wiremsg.MapKey, v wiremsg.MapValue) bool {
		entries = append(entries, kv{k, v})
		return true
	})
	if e.opts.Deterministic {
		sort.Slice(entries, func(i, j int) bool { return mapKeyLess(entries[i].k, entries[j].k) })
	}

	for _, pair := range entries {
		entry := wiremsg.New(e.arena, entryTable)
		storeMapKey(entry, keyField, pair.k)
		storeMapValue(entry, valField, pair.v)

		body, err := e.message(nil, entry, entryTable)
		if err != nil {
			return dst, err
		}
		dst = wire.AppendTag(dst, wire.Number(f.Number), wire.Delimited)
		dst = wire.AppendVarint(dst, uint64(len(body)))
		dst = append(dst, body...)
	}
	return dst, nil
}

func mapKeyLess(a, b wiremsg.MapKey) bool {
	if a.IsStr() || b.IsStr() {
		return string(a.Str().Bytes()) < string(b.Str().Bytes())
	}
	return a.Scalar() < b.Scalar()
}

func storeMapKey(m *wiremsg.Message, f *minitable.Field, k wiremsg.MapKey) {
	if f == nil {
		return
	}
	if k.IsStr() {
		wiremsg.Store(m, int(f.Offset), k.Str())
		return
	}
	switch f.Rep {
	case minitable.Rep1Byte:
		wiremsg.Store(m, int(f.Offset), byte(k.Scalar()))
	case minitable.Rep4Byte:
		wiremsg.Store(m, int(f.Offset), uint32(k.Scalar()))
	default:
		wiremsg.Store(m, int(f.Offset), k.Scalar())
	}
	if hi, ok := f.HasbitIndex(); ok {
		m.SetBit(hi)
	}
}

func storeMapValue(m *wiremsg.Message, f *minitable.Field, v wiremsg.MapValue) {
	if f == nil {
		return
	}
	switch f.Kind {
	case minitable.KindString, minitable.KindBytes:
		wiremsg.Store(m, int(f.Offset), v.Str())
	case minitable.KindMessage, minitable.KindGroup:
		wiremsg.Store(m, int(f.Offset), v.Msg())
	default:
		switch f.Rep {
		case minitable.Rep1Byte:
			wiremsg.Store(m, int(f.Offset), byte(v.Scalar()))
		case minitable.Rep4Byte:
			wiremsg.Store(m, int(f.Offset), uint32(v.Scalar()))
		default:
			wiremsg.Store(m, int(f.Offset), v.Scalar())
		}
	}
	if hi, ok := f.HasbitIndex(); ok {
		m.SetBit(hi)
	}
}

func loadScalarBits(m *wiremsg.Message, f *minitable.Field) uint64 {
	switch f.Rep {
	case minitable.Rep1Byte:
		return uint64(wiremsg.Load[byte](m, int(f.Offset)))
	case minitable.Rep4Byte:
		return uint64(wiremsg.Load[uint32](m, int(f.Offset)))
	default:
		return wiremsg.Load[uint64](m, int(f.Offset))
	}
}

func wantWireType(kind minitable.Kind) wire.Type {
	switch kind {
	case minitable.KindDouble, minitable.KindFixed64, minitable.KindSFixed64:
		return wire.Fixed64
	case minitable.KindFloat, minitable.KindFixed32, minitable.KindSFixed32:
		return wire.Fixed32
	case minitable.KindBytes, minitable.KindString, minitable.KindMessage:
		return wire.Delimited
	case minitable.KindGroup:
		return wire.StartGroup
	default:
		return wire.Varint
	}
}

func isPackable(kind minitable.Kind) bool {
	switch kind {
	case minitable.KindBytes, minitable.KindString, minitable.KindMessage, minitable.KindGroup:
		return false
	}
	return true
}

// appendScalarValue appends v, interpreted per kind, to dst: zigzag-encoded
// for sint32/sint64, truncated to a single byte for bool, raw little-endian
// bit pattern for fixed-width kinds, plain varint otherwise.
func appendScalarValue(dst []byte, kind minitable.Kind, v uint64) []byte {
	switch kind {
	case minitable.KindDouble, minitable.KindFixed64, minitable.KindSFixed64:
		return wire.AppendFixed64(dst, v)
	case minitable.KindFloat, minitable.KindFixed32, minitable.KindSFixed32:
		return wire.AppendFixed32(dst, uint32(v))
	case minitable.KindSInt32:
		return wire.AppendVarint(dst, uint64(uint32(zigzag.Encode(int32(v)))))
	case minitable.KindSInt64:
		return wire.AppendVarint(dst, uint64(zigzag.Encode(int64(v))))
	case minitable.KindInt32, minitable.KindOpenEnum, minitable.KindClosedEnum:
		// A negative int32 (and enums, which share int32's wire encoding)
		// must still varint-encode as a 10-byte sign-extended value,
		// matching protobuf's historical wire format.
		return wire.AppendVarint(dst, uint64(int64(int32(v))))
	default:
		return wire.AppendVarint(dst, v)
	}
}

