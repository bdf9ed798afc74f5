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
	"github.com/coreproto/minipb/internal/decoder"
	"github.com/coreproto/minipb/internal/encoder"
	"github.com/coreproto/minipb/internal/minitable"
)

// DecodeOptions is a bitfield controlling [Decode]. Bits 16-31 hold the
// maximum recursion depth (0 means the default of 100), matching the
// layout the teacher's own CompileOption/UnmarshalOption machinery
// eventually bottoms out in as plain flag words.
type DecodeOptions uint32

const (
	// AliasString allows returned StringViews to point into the input
	// buffer instead of being copied into the arena.
	AliasString DecodeOptions = 1 << 0
	// CheckRequired causes DecodeMissingRequired to be reported when
	// required fields are absent on completion.
	CheckRequired DecodeOptions = 1 << 1
	// ExperimentalAllowUnlinked allows decoding into unlinked sub-message
	// fields, producing Empty tagged pointers instead of failing.
	ExperimentalAllowUnlinked DecodeOptions = 1 << 2
)

const depthShift = 16

// WithMaxDepth returns opts with its recursion-depth bits set to depth (0
// selects the default of 100).
func (opts DecodeOptions) WithMaxDepth(depth int) DecodeOptions {
	return opts&0xffff | DecodeOptions(uint32(depth)<<depthShift)
}

func (opts DecodeOptions) maxDepth() int { return int(uint32(opts) >> depthShift) }

func (opts DecodeOptions) toDecoderOptions(extensions *minitable.Registry) decoder.Options {
	return decoder.Options{
		MaxDepth:      opts.maxDepth(),
		AliasInput:    opts&AliasString != 0,
		Extensions:    extensions,
		ValidateUTF8:  true,
		CheckRequired: opts&CheckRequired != 0,
		AllowUnlinked: opts&ExperimentalAllowUnlinked != 0,
	}
}

// EncodeOptions is a bitfield controlling [Encode]. Bits 16-31 hold the
// maximum recursion depth (0 means the default of 100).
type EncodeOptions uint32

const (
	// Deterministic produces fixed output bytes for equivalent messages:
	// map entries and extensions are emitted in sorted order.
	Deterministic EncodeOptions = 1 << 0
	// SkipUnknown omits a message's preserved unknown-field bytes.
	SkipUnknown EncodeOptions = 1 << 1
	// EncodeCheckRequired fails encoding with EncodeMissingRequired if any
	// required field is absent.
	EncodeCheckRequired EncodeOptions = 1 << 2
)

// WithMaxDepth returns opts with its recursion-depth bits set to depth (0
// selects the default of 100).
func (opts EncodeOptions) WithMaxDepth(depth int) EncodeOptions {
	return opts&0xffff | EncodeOptions(uint32(depth)<<depthShift)
}

func (opts EncodeOptions) maxDepth() int { return int(uint32(opts) >> depthShift) }

func (opts EncodeOptions) toEncoderOptions() encoder.Options {
	return encoder.Options{
		MaxDepth:      opts.maxDepth(),
		Deterministic: opts&Deterministic != 0,
		SkipUnknown:   opts&SkipUnknown != 0,
		CheckRequired: opts&EncodeCheckRequired != 0,
	}
}
