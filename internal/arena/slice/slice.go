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

// Package slice provides an arena-backed growable array, the storage
// behind repeated and map fields.
package slice

import (
	"fmt"
	"unsafe"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/debug"
	"github.com/coreproto/minipb/internal/xunsafe"
	"github.com/coreproto/minipb/internal/xunsafe/layout"
)

// Slice is a slice that points into an arena.
//
// Unlike an ordinary Go slice, it does not itself contain a GC-visible
// pointer; in order to work correctly, it must be kept alive no longer
// than its owning arena.
type Slice[T any] struct {
	ptr      *T
	len, cap uint32
}

// FromParts assembles a slice from its raw components.
func FromParts[T any](ptr *T, len, cap uint32) Slice[T] {
	return Slice[T]{ptr, len, cap}
}

// Of allocates a slice on a and copies values into it.
func Of[T any](a *arena.Arena, values ...T) Slice[T] {
	s := Make[T](a, len(values))
	copy(s.Raw(), values)
	return s
}

// Make allocates a slice of the given length on a.
func Make[T any](a *arena.Arena, n int) Slice[T] {
	size := sliceBytes[T](n)
	p := xunsafe.Cast[T](a.Alloc(size))

	elem := layout.Size[T]()
	return FromParts(p, uint32(n), uint32(size/elem))
}

// Ptr returns this slice's pointer value.
func (s Slice[T]) Ptr() *T { return s.ptr }

// Len returns this slice's length.
func (s Slice[_]) Len() int { return int(s.len) }

// Cap returns this slice's capacity.
func (s Slice[_]) Cap() int { return int(s.cap) }

// SetLen directly sets the length of s. n must not exceed s.Cap().
func (s Slice[T]) SetLen(n int) Slice[T] {
	debug.Assert(n <= int(s.cap), "SetLen(%v) with Cap() = %v", n, s.cap)
	s.len = uint32(n)
	return s
}

// Load loads a value at the given index.
func (s Slice[T]) Load(n int) T { return xunsafe.Load(s.ptr, n) }

// Store stores a value at the given index.
func (s Slice[T]) Store(n int, v T) { xunsafe.Store(s.ptr, n, v) }

// Raw returns the underlying Go slice for this slice.
//
// The returned slice must not outlive the owning arena's last reference.
func (s Slice[T]) Raw() []T {
	if s.ptr == nil {
		return nil
	}
	return unsafe.Slice(s.ptr, s.cap)[:s.len]
}

// Rest returns the portion of s between its length and its capacity.
func (s Slice[T]) Rest() []T {
	if s.ptr == nil {
		return nil
	}
	return unsafe.Slice(xunsafe.Add(s.ptr, s.len), s.cap-s.len)
}

// Append appends elems to s, reallocating on a if necessary.
func (s Slice[T]) Append(a *arena.Arena, elems ...T) Slice[T] {
	if s.Cap()-s.Len() < len(elems) {
		s = s.Grow(a, len(elems))
	}
	copy(s.Rest(), elems)
	s.len += uint32(len(elems))
	return s
}

// AppendOne is an optimized form of Append for a single element.
func (s Slice[T]) AppendOne(a *arena.Arena, elem T) Slice[T] {
	if s.Len() == s.Cap() {
		s = s.Grow(a, 1)
	}
	xunsafe.Store(s.ptr, s.len, elem)
	s.len++
	return s
}

// Grow extends the capacity of s by at least n elements.
func (s Slice[T]) Grow(a *arena.Arena, n int) Slice[T] {
	elem := layout.Size[T]()

	if s.ptr == nil {
		size := sliceBytes[T](n)
		s.ptr = xunsafe.Cast[T](a.Alloc(size))
		s.cap = uint32(size / elem)
		return s
	}

	oldSize := sliceBytes[T](s.Cap())
	newSize := sliceBytes[T](s.Cap() + n)

	p := xunsafe.Cast[byte](s.ptr)
	p = a.Realloc(p, oldSize, newSize)

	s.ptr = xunsafe.Cast[T](p)
	s.cap = uint32(newSize / elem)
	return s
}

// Format implements fmt.Formatter.
func (s Slice[T]) Format(state fmt.State, v rune) {
	fmt.Fprintf(state, fmt.FormatString(state, v), s.Raw())
}

func sliceBytes[T any](n int) int {
	lay := layout.Of[T]()
	debug.Assert(lay.Align <= arena.Align, "over-aligned element type in arena slice")
	return arena.SuggestSize(lay.Size * n)
}
