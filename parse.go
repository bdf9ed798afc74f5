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

// Package minipb is a minimal, non-reflective Protocol Buffers wire-format
// runtime. See [Decode] and [Encode] for the package's entry points and
// [doc.go] for what is and isn't in scope.
package minipb

import (
	"github.com/coreproto/minipb/internal/decoder"
	"github.com/coreproto/minipb/internal/encoder"
)

// Decode parses buf as a message of typ, allocating into a. The returned
// Message aliases buf's bytes (for string/bytes fields) when opts includes
// [AliasString]; a lives only as long as buf does in that case, so callers
// that need to outlive buf should either omit that flag or keep buf pinned
// for a's lifetime.
func Decode(buf []byte, a *Arena, typ *Type, opts DecodeOptions) (*Message, *Error) {
	dopts := opts.toDecoderOptions(typ.extensions)
	d := decoder.New(buf, a.raw, dopts)
	raw, err := d.Decode(typ.table)
	if err != nil {
		return nil, newDecodeError(err)
	}
	return wrapMessage(raw, typ), nil
}

// Encode appends m's wire-format encoding to dst, returning the extended
// slice.
func Encode(dst []byte, m *Message, a *Arena, opts EncodeOptions) ([]byte, *Error) {
	eopts := opts.toEncoderOptions()
	e := encoder.New(a.raw, eopts)
	out, err := e.Encode(dst, m.raw, m.typ.table)
	if err != nil {
		return nil, newEncodeError(err)
	}
	return out, nil
}

// Marshal is a convenience wrapper around [Encode] that allocates a fresh
// Arena and starts from a nil buffer.
func Marshal(m *Message, opts EncodeOptions) ([]byte, *Error) {
	return Encode(nil, m, NewArena(), opts)
}

// Unmarshal is a convenience wrapper around [Decode] that allocates a
// fresh Arena owned by the returned Message.
func Unmarshal(buf []byte, typ *Type, opts DecodeOptions) (*Message, *Error) {
	return Decode(buf, NewArena(), typ, opts)
}
