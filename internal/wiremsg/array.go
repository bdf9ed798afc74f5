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

package wiremsg

import (
	"unsafe"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/arena/slice"
	"github.com/coreproto/minipb/internal/xunsafe"
)

// Array is the type-erased, arena-backed growable array stored inline in a
// message payload for a repeated field. Its element type is implied by the
// field's MiniTable Rep, which the caller already has in hand at every call
// site (field dispatch always starts from a *minitable.Field); Array itself
// doesn't need to carry it, matching the compact representation the
// original uses for the same reason.
type Array struct {
	ptr unsafe.Pointer
	len uint32
	cap uint32
}

// Len returns the number of elements currently stored.
func (a Array) Len() int { return int(a.len) }

// Cap returns the number of elements the current allocation can hold.
func (a Array) Cap() int { return int(a.cap) }

// ArraySlice views arr as a slice.Slice[T]. T must match the storage width
// implied by the owning field's Rep (byte, uint32, uint64, epscopy.StringView,
// or TaggedMessagePtr).
func ArraySlice[T any](arr Array) slice.Slice[T] {
	var ptr *T
	if arr.ptr != nil {
		ptr = xunsafe.Cast[T](arr.ptr)
	}
	return slice.FromParts(ptr, arr.len, arr.cap)
}

// SetArraySlice stores s back into arr, after growing or appending to it via
// ArraySlice.
func SetArraySlice[T any](arr *Array, s slice.Slice[T]) {
	arr.ptr = unsafe.Pointer(s.Ptr())
	arr.len = uint32(s.Len())
	arr.cap = uint32(s.Cap())
}

// ArrayAppend appends a value of type T to arr's backing storage, growing it
// on a if necessary.
func ArrayAppend[T any](a *arena.Arena, arr Array, v T) Array {
	s := ArraySlice[T](arr).AppendOne(a, v)
	SetArraySlice(&arr, s)
	return arr
}
