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

// Package wire adapts google.golang.org/protobuf/encoding/protowire's
// non-reflective wire-format primitives to the depth-bounded, arena-aware
// shape the decoder and encoder need. protowire already gets tag/varint/
// fixed-width encode and decode exactly right; this package only adds what
// it doesn't provide, namely a recursion-depth bound on group skipping.
package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Type is a wire type, one of the six values the format defines.
type Type = protowire.Type

// Number is a field number.
type Number = protowire.Number

const (
	Varint     = protowire.VarintType
	Fixed64    = protowire.Fixed64Type
	Delimited  = protowire.BytesType
	StartGroup = protowire.StartGroupType
	EndGroup   = protowire.EndGroupType
	Fixed32    = protowire.Fixed32Type
)

// ConsumeTag parses a field tag, returning the field number, wire type, and
// number of bytes read. n is <= 0 on error, mirroring protowire's contract.
func ConsumeTag(b []byte) (num protowire.Number, typ Type, n int) {
	num, typ, n = protowire.ConsumeTag(b)
	return
}

// AppendTag appends an encoded tag to b.
func AppendTag(b []byte, num protowire.Number, typ Type) []byte {
	return protowire.AppendTag(b, num, typ)
}

// ConsumeVarint parses a varint, rejecting values using more than 64 bits.
func ConsumeVarint(b []byte) (v uint64, n int) {
	return protowire.ConsumeVarint(b)
}

// AppendVarint appends v to b as a varint.
func AppendVarint(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// SizeVarint returns the number of bytes needed to varint-encode v.
func SizeVarint(v uint64) int { return protowire.SizeVarint(v) }

// ConsumeSize parses a delimited-field length prefix, bounding it to
// math.MaxInt32 as the spec requires.
func ConsumeSize(b []byte) (size int32, n int) {
	v, n := protowire.ConsumeVarint(b)
	if n <= 0 || v > math.MaxInt32 {
		return 0, -1
	}
	return int32(v), n
}

// ConsumeFixed32/ConsumeFixed64 parse little-endian fixed-width values.
func ConsumeFixed32(b []byte) (v uint32, n int) { return protowire.ConsumeFixed32(b) }
func ConsumeFixed64(b []byte) (v uint64, n int) { return protowire.ConsumeFixed64(b) }

// AppendFixed32/AppendFixed64 append little-endian fixed-width values.
func AppendFixed32(b []byte, v uint32) []byte { return protowire.AppendFixed32(b, v) }
func AppendFixed64(b []byte, v uint64) []byte { return protowire.AppendFixed64(b, v) }

// ConsumeBytes parses a length-delimited field's contents.
func ConsumeBytes(b []byte) (v []byte, n int) { return protowire.ConsumeBytes(b) }

// AppendBytes appends a length-delimited field's contents, including its
// size prefix.
func AppendBytes(b, v []byte) []byte { return protowire.AppendBytes(b, v) }

// DefaultMaxDepth is the default recursion bound for nested groups and
// sub-messages, used when the caller's options specify 0.
const DefaultMaxDepth = 100

// SkipValue skips over the value following a tag of the given wire type,
// returning the number of bytes consumed, or a negative number on a
// malformed input or exceeded depth. depth counts remaining permitted
// levels of group nesting.
func SkipValue(b []byte, typ Type, num protowire.Number, depth int) int {
	switch typ {
	case Varint:
		_, n := protowire.ConsumeVarint(b)
		return n
	case Fixed32:
		_, n := protowire.ConsumeFixed32(b)
		return n
	case Fixed64:
		_, n := protowire.ConsumeFixed64(b)
		return n
	case Delimited:
		_, n := protowire.ConsumeBytes(b)
		return n
	case StartGroup:
		if depth <= 0 {
			return -1
		}
		return skipGroup(b, num, depth-1)
	default:
		return -1
	}
}

// skipGroup skips bytes up to and including the EndGroup tag matching num.
func skipGroup(b []byte, num protowire.Number, depth int) int {
	total := 0
	for {
		gotNum, typ, n := protowire.ConsumeTag(b)
		if n <= 0 {
			return -1
		}
		b = b[n:]
		total += n

		if typ == EndGroup {
			if gotNum != num {
				return -1
			}
			return total
		}

		n = SkipValue(b, typ, gotNum, depth)
		if n < 0 {
			return -1
		}
		b = b[n:]
		total += n
	}
}
