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

// Package epscopy provides a bounds-checked reader over a flat input buffer
// with a push/pop limit stack, for parsing nested delimited sub-messages.
//
// The original this is grounded on (hpb/wire/eps_copy_input_stream.h) reads
// through raw pointers and keeps a 16-byte "slop" overhang past the
// logical end of the buffer — backed by a small patch buffer when the real
// input is shorter — so that every fixed-width field read can be an
// unconditional 8-byte load with no branch. That trick buys performance,
// not correctness: Go's slice bounds checks already make out-of-range reads
// impossible, so this port tracks position as a plain index into buf and
// checks it against the active limit directly, preserving every semantic
// guarantee (is_done, push/pop limit, aliasing) without unsafe overreads.
package epscopy

import (
	"unsafe"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/debug"
	"github.com/coreproto/minipb/internal/zc"
)

// SlopBytes documents the original's patch-buffer overhang. This
// implementation does not need it (see package doc) but keeps the name for
// anyone cross-referencing the original design.
const SlopBytes = 16

// Stream wraps a flat byte buffer for bounds-checked, limit-aware reads.
type Stream struct {
	buf     []byte
	limit   int // absolute index of the active limit.
	stack   []int
	aliases bool
}

// New creates a Stream over buf. If aliasEnabled is true, ReadString may
// return StringViews that point directly into buf instead of copying.
func New(buf []byte, aliasEnabled bool) *Stream {
	return &Stream{buf: buf, limit: len(buf), aliases: aliasEnabled}
}

// Len returns the total length of the underlying buffer.
func (s *Stream) Len() int { return len(s.buf) }

// Done reports whether pos has reached or crossed the active limit.
func (s *Stream) Done(pos int) bool { return pos >= s.limit }

// Overrun reports whether pos has read past the end of the whole buffer,
// which is always a malformed-input condition regardless of limits.
func (s *Stream) Overrun(pos int) bool { return pos > len(s.buf) }

// PushLimit establishes a new limit size bytes past pos, returning the
// previous limit to restore later with PopLimit. Fails if the new limit
// would exceed either the enclosing limit or the buffer's length.
func (s *Stream) PushLimit(pos, size int) (saved int, ok bool) {
	if size < 0 {
		return 0, false
	}
	newLimit := pos + size
	if newLimit > s.limit || newLimit > len(s.buf) {
		return 0, false
	}
	saved = s.limit
	s.stack = append(s.stack, saved)
	s.limit = newLimit
	return saved, true
}

// PopLimit restores the limit saved by the matching PushLimit. The caller
// must have read exactly up to the limit that is being popped.
func (s *Stream) PopLimit(saved int) {
	n := len(s.stack)
	debug.Assert(n > 0 && s.stack[n-1] == saved, "epscopy: mismatched PushLimit/PopLimit")
	s.stack = s.stack[:n-1]
	s.limit = saved
}

// Bytes returns the size bytes starting at pos, failing if that range
// crosses the active limit or the buffer's end.
func (s *Stream) Bytes(pos, size int) ([]byte, bool) {
	if size < 0 || pos+size > s.limit || pos+size > len(s.buf) {
		return nil, false
	}
	return s.buf[pos : pos+size], true
}

// Rest returns everything from pos up to the active limit.
func (s *Stream) Rest(pos int) []byte {
	if pos >= s.limit {
		return nil
	}
	return s.buf[pos:s.limit]
}

// ReadString reads size bytes starting at pos as a string, either aliasing
// the input buffer or copying into a, depending on whether aliasing was
// requested for this Stream and is available for this read.
func (s *Stream) ReadString(pos, size int, a *arena.Arena) (StringView, bool) {
	raw, ok := s.Bytes(pos, size)
	if !ok {
		return StringView{}, false
	}
	if s.aliases {
		if len(raw) == 0 {
			return StringView{}, true
		}
		return StringView{data: &raw[0], len: uint32(len(raw))}, true
	}
	if len(raw) == 0 {
		return StringView{}, true
	}
	dst := a.Alloc(len(raw))
	copy(unsafe.Slice(dst, len(raw)), raw)
	return StringView{data: dst, len: uint32(len(raw))}, true
}

// StringView is a (data, size) pair aliasing either the input buffer or
// arena-owned memory copied from it.
type StringView struct {
	data *byte
	len  uint32
}

// Bytes returns the referenced bytes. The returned slice must not outlive
// whichever of the input buffer or arena it points into.
func (v StringView) Bytes() []byte {
	if v.len == 0 {
		return nil
	}
	return unsafe.Slice(v.data, v.len)
}

// String copies the referenced bytes into a new Go string.
func (v StringView) String() string {
	if v.len == 0 {
		return ""
	}
	return string(v.Bytes())
}

// Len returns the number of referenced bytes.
func (v StringView) Len() int { return int(v.len) }

// Range converts this view into a zc.Range relative to src, which must be
// the same backing array the view was aliased from.
func (v StringView) Range(src *byte) zc.Range {
	return zc.New(src, v.data, int(v.len))
}
