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
	"fmt"

	"github.com/coreproto/minipb/internal/wireerr"
)

// DecodeStatus classifies the outcome of a [Decode] call.
type DecodeStatus int

const (
	DecodeOK DecodeStatus = iota
	DecodeMalformed
	DecodeOutOfMemory
	DecodeBadUTF8
	DecodeMaxDepthExceeded
	DecodeMissingRequired
	DecodeUnlinkedSubMessage
)

func (s DecodeStatus) String() string {
	switch s {
	case DecodeOK:
		return "ok"
	case DecodeMalformed:
		return "malformed"
	case DecodeOutOfMemory:
		return "out of memory"
	case DecodeBadUTF8:
		return "invalid UTF-8"
	case DecodeMaxDepthExceeded:
		return "max depth exceeded"
	case DecodeMissingRequired:
		return "missing required field"
	case DecodeUnlinkedSubMessage:
		return "unlinked sub-message"
	default:
		return "unknown"
	}
}

// EncodeStatus classifies the outcome of an [Encode] call.
type EncodeStatus int

const (
	EncodeOK EncodeStatus = iota
	EncodeOutOfMemory
	EncodeMaxDepthExceeded
	EncodeMissingRequired
)

func (s EncodeStatus) String() string {
	switch s {
	case EncodeOK:
		return "ok"
	case EncodeOutOfMemory:
		return "out of memory"
	case EncodeMaxDepthExceeded:
		return "max depth exceeded"
	case EncodeMissingRequired:
		return "missing required field"
	default:
		return "unknown"
	}
}

func decodeStatusOf(s wireerr.Status) DecodeStatus {
	switch s {
	case wireerr.StatusBadUTF8:
		return DecodeBadUTF8
	case wireerr.StatusMaxDepth:
		return DecodeMaxDepthExceeded
	case wireerr.StatusMissingRequired:
		return DecodeMissingRequired
	case wireerr.StatusUnlinkedSubMessage:
		return DecodeUnlinkedSubMessage
	case wireerr.StatusOK:
		return DecodeOK
	default:
		return DecodeMalformed
	}
}

func encodeStatusOf(s wireerr.Status) EncodeStatus {
	switch s {
	case wireerr.StatusMaxDepth:
		return EncodeMaxDepthExceeded
	case wireerr.StatusMissingRequired:
		return EncodeMissingRequired
	case wireerr.StatusOK:
		return EncodeOK
	default:
		return EncodeOutOfMemory
	}
}

// Error is returned by [Decode] and [Encode] on failure. It is bounded at a
// short, fixed message (see Error.Error) and never allocates beyond the
// struct itself, mirroring the spec's "Status messages are bounded and
// never dynamically allocated" requirement at the level that matters in Go:
// no growing buffers, no stack traces captured.
type Error struct {
	DecodeStatus DecodeStatus
	EncodeStatus EncodeStatus
	Offset       int
	decoding     bool
	cause        error
}

func newDecodeError(pe *wireerr.ParseError) *Error {
	return &Error{DecodeStatus: decodeStatusOf(pe.Status), Offset: pe.Offset, decoding: true, cause: pe}
}

func newEncodeError(pe *wireerr.ParseError) *Error {
	return &Error{EncodeStatus: encodeStatusOf(pe.Status), Offset: pe.Offset, cause: pe}
}

// Unwrap implements error unwrapping via [errors.Unwrap].
func (e *Error) Unwrap() error { return e.cause }

// Error implements [error].
func (e *Error) Error() string {
	if e.decoding {
		return fmt.Sprintf("minipb: decode error at offset %d: %s", e.Offset, e.DecodeStatus)
	}
	return fmt.Sprintf("minipb: encode error at offset %d: %s", e.Offset, e.EncodeStatus)
}
