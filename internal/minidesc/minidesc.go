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

// Package minidesc implements MiniDescriptors: a compact, printable-ASCII
// textual encoding of a message, enum, or extension schema, and the decoder
// that turns one back into a minitable.Table or minitable.Enum.
//
// The grammar's shape - a version byte, then field entries made of a
// base92-ish skip/modifier/type alphabet, separated by '|' with '~' between
// oneof members, terminated by an end marker - is grounded on
// hpb/mini_descriptor/internal/wire_constants.h and the surrounding decoder
// in the upb library this module's spec was distilled from. The exact
// base-92 alphabet table used to pack six bits per character is defined
// outside the retrieved source (only extern declarations for
// _kHpb_ToBase92/_kHpb_FromBase92 are present); this package defines its
// own self-consistent alphabet rather than guess at byte-for-byte
// compatibility with upb's, since nothing requires this module's encoder
// and decoder to interoperate with a real upb MiniDescriptor, only with
// each other.
//
// Map fields are represented the same way protobuf's wire format already
// represents them: a repeated message field whose submessage is flagged
// minitable.IsMapEntry. There is no separate "MapV1" grammar here - once the
// field's submessage table is linked and found to be a map entry,
// FieldByNumber's Mode is promoted from Array to MapField automatically
// (see minitable.Table.SetSubMessage).
package minidesc

import (
	"fmt"

	"github.com/coreproto/minipb/internal/minitable"
)

// Version bytes, one per descriptor kind.
const (
	versionEnumV1      = '!'
	versionExtensionV1 = '#'
	versionMessageV1   = '$'
)

// Field grammar alphabet, per wire_constants.h.
const (
	minField    = ' '
	maxField    = 'I'
	minModifier = 'L'
	maxModifier = '['
	endMarker   = '^'
	minSkip     = '_'
	maxSkip     = '~'
	oneofSep    = '~'
	fieldSep    = '|'
)

const skipRange = maxSkip - minSkip + 1 // 32

// EncodedModifier are the per-field modifier bits, matching
// hpb_EncodedFieldModifier.
type EncodedModifier uint8

const (
	FlipPacked        EncodedModifier = 1 << 0
	IsRequired        EncodedModifier = 1 << 1
	IsProto3Singular  EncodedModifier = 1 << 2
)

const repeatedBase = 20

func encodedType(k minitable.Kind) int { return int(k) }

// appendSkip appends gap, encoded as a little-endian sequence of base-skipRange
// digits in [minSkip, maxSkip], at least one digit even when gap is 0.
func appendSkip(buf []byte, gap uint32) []byte {
	for {
		d := gap % skipRange
		gap /= skipRange
		buf = append(buf, byte(minSkip+d))
		if gap == 0 {
			return buf
		}
	}
}

// consumeSkip parses a skip run starting at s[0], returning the decoded
// value and the number of bytes consumed. appendSkip emits one base-skipRange
// digit per call when gap < skipRange and more for larger gaps, so this loop
// keeps consuming digits until it hits a byte outside the skip-digit range.
func consumeSkip(s string) (gap uint32, n int) {
	mult := uint32(1)
	for n < len(s) && s[n] >= minSkip && s[n] <= maxSkip {
		gap += uint32(s[n]-minSkip) * mult
		mult *= skipRange
		n++
	}
	return gap, n
}

// MessageEncoder builds a MessageV1 MiniDescriptor incrementally, one field
// at a time in ascending field-number order.
type MessageEncoder struct {
	buf        []byte
	prevNumber uint32
	prevOneof  int
	started    bool
}

// NewMessageEncoder starts a new message descriptor.
func NewMessageEncoder() *MessageEncoder {
	return &MessageEncoder{buf: []byte{versionMessageV1}, prevOneof: -1}
}

// PutField appends one field. oneof is the zero-based oneof index this field
// belongs to, or -1 if it isn't a oneof member. Fields must be added in
// ascending field-number order; consecutive calls with the same non-negative
// oneof value are grouped as members of that oneof.
func (e *MessageEncoder) PutField(number uint32, kind minitable.Kind, mode minitable.Mode, mods EncodedModifier, oneof int) {
	if e.started {
		if oneof >= 0 && oneof == e.prevOneof {
			e.buf = append(e.buf, oneofSep)
		} else {
			e.buf = append(e.buf, fieldSep)
		}
	}
	e.started = true
	e.prevOneof = oneof

	gap := number - e.prevNumber - 1
	e.prevNumber = number
	e.buf = appendSkip(e.buf, gap)

	if mods != 0 {
		e.buf = append(e.buf, byte(minModifier)+byte(mods))
	}

	typeCode := encodedType(kind)
	if mode == minitable.Array || mode == minitable.MapField {
		typeCode += repeatedBase
	}
	e.buf = append(e.buf, byte(minField+typeCode))
}

// Build finalizes and returns the descriptor string.
func (e *MessageEncoder) Build() string {
	return string(append(e.buf, endMarker))
}

// EnumEncoder builds an EnumV1 MiniDescriptor from a sorted list of declared
// enum values.
type EnumEncoder struct {
	values []int32
}

// NewEnumEncoder starts a new enum descriptor.
func NewEnumEncoder() *EnumEncoder { return &EnumEncoder{} }

// PutValue declares v as a valid enum value.
func (e *EnumEncoder) PutValue(v int32) { e.values = append(e.values, v) }

// Build finalizes and returns the descriptor string: a version byte
// followed by the ascending-sorted values, each skip-encoded as the gap from
// the previous value (first value's gap is measured from zero, which is
// always valid since every proto3-style enum must declare a zero value, and
// closed enums in practice start at or above it).
func (e *EnumEncoder) Build() string {
	vals := append([]int32(nil), e.values...)
	sortInt32s(vals)

	buf := []byte{versionEnumV1}
	var prev int32
	for i, v := range vals {
		gap := uint32(v - prev)
		if i == 0 && v < 0 {
			// Negative first value: record as an absolute overflow marker by
			// widening the skip run; decode mirrors this by tracking prev as
			// a signed accumulator.
			gap = uint32(v)
		}
		buf = appendSkip(buf, gap)
		prev = v
	}
	return string(append(buf, endMarker))
}

func sortInt32s(s []int32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// layoutItem is one field queued for offset assignment.
type layoutItem struct {
	fieldIdx int
	size     int
	align    int
}

// DecodeMessage parses a MessageV1 descriptor into a freshly laid-out
// minitable.Table. Sub-message and closed-enum fields are left with a zero
// minitable.Sub entry (nil Message / nil Enum); the caller links them with
// t.SetSubMessage / t.SetSubEnum once their own descriptors are available.
func DecodeMessage(desc string) (*minitable.Table, error) {
	if len(desc) == 0 || desc[0] != versionMessageV1 {
		return nil, fmt.Errorf("minidesc: not a MessageV1 descriptor")
	}
	s := desc[1:]

	type rawField struct {
		number uint32
		kind   minitable.Kind
		mode   minitable.Mode
		mods   EncodedModifier
		oneof  int
	}
	var raws []rawField
	var prevNumber uint32
	oneofCount := 0
	prevOneof := -1
	sameGroup := false

	for len(s) > 0 && s[0] != endMarker {
		gap, n := consumeSkip(s)
		if n == 0 {
			return nil, fmt.Errorf("minidesc: expected skip run at %q", s)
		}
		s = s[n:]

		var mods EncodedModifier
		if len(s) > 0 && s[0] >= minModifier && s[0] <= maxModifier {
			mods = EncodedModifier(s[0] - minModifier)
			s = s[1:]
		}

		if len(s) == 0 || s[0] < minField || s[0] > maxField {
			return nil, fmt.Errorf("minidesc: expected field type byte at %q", s)
		}
		typeCode := int(s[0] - minField)
		s = s[1:]

		mode := minitable.Scalar
		if typeCode >= repeatedBase {
			typeCode -= repeatedBase
			mode = minitable.Array
		}

		number := prevNumber + gap + 1
		prevNumber = number

		oneof := -1
		if sameGroup {
			oneof = prevOneof
		}
		raws = append(raws, rawField{number, minitable.Kind(typeCode), mode, mods, oneof})

		if len(s) > 0 && (s[0] == fieldSep || s[0] == oneofSep) {
			if s[0] == oneofSep {
				if !sameGroup {
					oneofCount++
					prevOneof = oneofCount - 1
					raws[len(raws)-1].oneof = prevOneof
				}
				sameGroup = true
			} else {
				sameGroup = false
			}
			s = s[1:]
		} else {
			sameGroup = false
		}
	}

	t := &minitable.Table{
		Fields: make([]minitable.Field, len(raws)),
	}

	// Hasbit assignment: required fields first (lowest indices), then every
	// other field that needs presence tracking, in field order.
	hasbit := 0
	var required []int
	var presence []int
	oneofOffsets := map[int]int{}
	for i, r := range raws {
		if r.oneof >= 0 {
			continue
		}
		if r.mods&IsRequired != 0 {
			required = append(required, i)
		} else if needsPresence(r.kind, r.mode, r.mods) {
			presence = append(presence, i)
		}
	}
	for _, i := range required {
		t.Fields[i].Presence = int16(hasbit + 1)
		hasbit++
	}
	t.RequiredCount = uint8(len(required))
	for _, i := range presence {
		t.Fields[i].Presence = int16(hasbit + 1)
		hasbit++
	}

	// Build the layout item list: the hasbit word (always present, 8 bytes),
	// one 4-byte case slot per oneof, one shared value slot per oneof (sized
	// to its widest member, since only one member is ever live at a time),
	// and one slot per non-oneof field.
	var items []layoutItem
	items = append(items, layoutItem{fieldIdx: -1, size: 8, align: 8}) // hasbit word

	subIndex := uint16(0)
	var subs []minitable.Sub
	oneofValueSize := map[int]int{}
	oneofValueAlign := map[int]int{}
	for i, r := range raws {
		t.Fields[i].Number = r.number
		t.Fields[i].Kind = r.kind
		t.Fields[i].Mode = r.mode
		if r.mods&FlipPacked != 0 {
			t.Fields[i].Flags |= minitable.IsPacked
		}
		if needsSub(r.kind) {
			t.Fields[i].SubIndex = subIndex
			subIndex++
			subs = append(subs, minitable.Sub{})
		}

		if r.oneof >= 0 {
			if _, ok := oneofOffsets[r.oneof]; !ok {
				oneofOffsets[r.oneof] = -1 // placeholder, resolved below
				items = append(items, layoutItem{fieldIdx: -(r.oneof + 1000), size: 4, align: 4})
			}
			size, align := repSize(r.kind, r.mode)
			if size > oneofValueSize[r.oneof] {
				oneofValueSize[r.oneof] = size
			}
			if align > oneofValueAlign[r.oneof] {
				oneofValueAlign[r.oneof] = align
			}
			continue
		}

		size, align := repSize(r.kind, r.mode)
		items = append(items, layoutItem{fieldIdx: i, size: size, align: align})
	}
	t.Subs = subs

	// Queue each oneof's shared value slot in oneof-index order (rather
	// than ranging over the size/align maps directly) so layout stays
	// deterministic across runs of the same descriptor.
	oneofValueOffsets := map[int]int{}
	for oneof := 0; oneof < oneofCount; oneof++ {
		size, ok := oneofValueSize[oneof]
		if !ok {
			continue
		}
		items = append(items, layoutItem{fieldIdx: -(oneof + 1000000), size: size, align: oneofValueAlign[oneof]})
	}

	// Stable-sort items by decreasing alignment to minimize padding, without
	// disturbing relative order within the same alignment class.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j-1].align < items[j].align; j-- {
			items[j-1], items[j] = items[j], items[j-1]
		}
	}

	offset := 0
	for _, it := range items {
		if it.align > 0 && offset%it.align != 0 {
			offset += it.align - offset%it.align
		}
		switch {
		case it.fieldIdx == -1:
			// hasbit word, fixed at offset 0 by convention (see wiremsg.Message).
			offset += it.size
			continue
		case it.fieldIdx <= -1000000:
			oneof := -it.fieldIdx - 1000000
			oneofValueOffsets[oneof] = offset
			offset += it.size
		case it.fieldIdx <= -1000:
			oneof := -it.fieldIdx - 1000
			oneofOffsets[oneof] = offset
			offset += it.size
		default:
			t.Fields[it.fieldIdx].Offset = uint16(offset)
			t.Fields[it.fieldIdx].Rep = repOf(raws[it.fieldIdx].kind, raws[it.fieldIdx].mode)
			offset += it.size
		}
	}

	for i, r := range raws {
		if r.oneof < 0 {
			continue
		}
		off := oneofOffsets[r.oneof]
		t.Fields[i].Presence = int16(-off)
		t.Fields[i].Rep = repOf(r.kind, r.mode)
		t.Fields[i].Offset = uint16(oneofValueOffsets[r.oneof])
	}

	if offset%8 != 0 {
		offset += 8 - offset%8
	}
	t.Size = uint16(offset)

	// DenseBelow: the longest prefix of ascending field numbers starting at
	// 1 with no gaps, letting FieldByNumber index directly instead of
	// scanning or hashing.
	dense := uint32(0)
	for i, f := range t.Fields {
		if f.Number == uint32(i+1) {
			dense = f.Number
		} else {
			break
		}
	}
	t.DenseBelow = dense
	t.BuildFastTable()

	return t, nil
}

func needsPresence(kind minitable.Kind, mode minitable.Mode, mods EncodedModifier) bool {
	if mode != minitable.Scalar {
		return false
	}
	if kind == minitable.KindMessage || kind == minitable.KindGroup {
		return true
	}
	return mods&IsProto3Singular == 0
}

func needsSub(kind minitable.Kind) bool {
	switch kind {
	case minitable.KindMessage, minitable.KindGroup, minitable.KindClosedEnum:
		return true
	}
	return false
}

// repSize returns the (size, align) in bytes of a field's payload storage.
func repSize(kind minitable.Kind, mode minitable.Mode) (int, int) {
	if mode == minitable.Array || mode == minitable.MapField {
		return 16, 8 // wiremsg.Array / wiremsg.Map header
	}
	switch kind {
	case minitable.KindDouble, minitable.KindFixed64, minitable.KindSFixed64,
		minitable.KindInt64, minitable.KindUint64, minitable.KindSInt64:
		return 8, 8
	case minitable.KindFloat, minitable.KindFixed32, minitable.KindSFixed32,
		minitable.KindInt32, minitable.KindUint32, minitable.KindSInt32,
		minitable.KindOpenEnum, minitable.KindClosedEnum:
		return 4, 4
	case minitable.KindBool:
		return 1, 1
	case minitable.KindBytes, minitable.KindString:
		return 16, 8 // epscopy.StringView, padded
	case minitable.KindMessage, minitable.KindGroup:
		return 8, 8 // wiremsg.TaggedMessagePtr
	}
	return 8, 8
}

func repOf(kind minitable.Kind, mode minitable.Mode) minitable.Rep {
	if mode == minitable.Array || mode == minitable.MapField {
		return minitable.RepPointer
	}
	switch kind {
	case minitable.KindDouble, minitable.KindFixed64, minitable.KindSFixed64,
		minitable.KindInt64, minitable.KindUint64, minitable.KindSInt64:
		return minitable.Rep8Byte
	case minitable.KindFloat, minitable.KindFixed32, minitable.KindSFixed32,
		minitable.KindInt32, minitable.KindUint32, minitable.KindSInt32,
		minitable.KindOpenEnum, minitable.KindClosedEnum:
		return minitable.Rep4Byte
	case minitable.KindBool:
		return minitable.Rep1Byte
	case minitable.KindBytes, minitable.KindString:
		return minitable.RepStringView
	default:
		return minitable.RepPointer
	}
}

// DecodeEnum parses an EnumV1 descriptor into a minitable.Enum validator.
func DecodeEnum(desc string) (*minitable.Enum, error) {
	if len(desc) == 0 || desc[0] != versionEnumV1 {
		return nil, fmt.Errorf("minidesc: not an EnumV1 descriptor")
	}
	s := desc[1:]

	e := &minitable.Enum{}
	var prev int32
	for len(s) > 0 && s[0] != endMarker {
		gap, n := consumeSkip(s)
		if n == 0 {
			return nil, fmt.Errorf("minidesc: expected skip run at %q", s)
		}
		s = s[n:]

		v := prev + int32(gap)
		prev = v

		if v >= 0 && int(v) < 1<<20 {
			word := int(v) / 32
			for len(e.Bitmap) <= word {
				e.Bitmap = append(e.Bitmap, 0)
			}
			e.Bitmap[word] |= 1 << uint(v%32)
		} else {
			e.Overflow = append(e.Overflow, v)
		}
	}
	sortInt32s(e.Overflow)
	return e, nil
}

// EncodeExtension/DecodeExtension describe a single extension field;
// unlike messages and enums, an extension's descriptor is just its field
// entry (the extended message is not recorded in it), so it reuses
// MessageEncoder's single-field grammar with a fixed ExtensionV1 version
// byte instead of MessageV1.
func EncodeExtension(number uint32, kind minitable.Kind, mode minitable.Mode, mods EncodedModifier) string {
	e := &MessageEncoder{buf: []byte{versionExtensionV1}, prevOneof: -1}
	e.PutField(number, kind, mode, mods, -1)
	return e.Build()
}

// DecodeExtension parses an extension field descriptor, returning the one
// minitable.Field it describes.
func DecodeExtension(desc string) (minitable.Field, error) {
	if len(desc) == 0 || desc[0] != versionExtensionV1 {
		return minitable.Field{}, fmt.Errorf("minidesc: not an ExtensionV1 descriptor")
	}
	patched := string(byte(versionMessageV1)) + desc[1:]
	t, err := DecodeMessage(patched)
	if err != nil {
		return minitable.Field{}, err
	}
	if len(t.Fields) != 1 {
		return minitable.Field{}, fmt.Errorf("minidesc: extension descriptor must describe exactly one field")
	}
	f := t.Fields[0]
	f.Flags |= minitable.IsExtension
	return f, nil
}

// BuildMapEntryTable builds the synthetic two-field MiniTable (field 1 =
// key, field 2 = value) that a map field's submessage is linked to, the same
// way protoc synthesizes a MapEntry message for every declared map field.
// valKind of KindMessage produces a value field that itself needs linking
// via SetSubMessage before first use.
func BuildMapEntryTable(keyKind, valKind minitable.Kind) *minitable.Table {
	enc := NewMessageEncoder()
	enc.PutField(1, keyKind, minitable.Scalar, 0, -1)
	enc.PutField(2, valKind, minitable.Scalar, 0, -1)
	t, err := DecodeMessage(enc.Build())
	if err != nil {
		panic(err) // unreachable: enc.Build() always produces a well-formed descriptor
	}
	t.Ext = minitable.IsMapEntry
	return t
}

// MarkExtendable sets a message's extension behavior after decoding, the
// same way BuildMapEntryTable layers IsMapEntry onto a freshly-decoded
// table: extendability is a property of the message as a whole, not of any
// one field, so it rides alongside the field grammar rather than spending a
// byte inside it. Passing IsMessageSet additionally tells the decoder and
// encoder to use the group-shaped item form (wire.StartGroup/type_id/message)
// instead of ordinary tag-delimited extension fields.
func MarkExtendable(t *minitable.Table, ext minitable.Extendability) {
	t.Ext = ext
}
