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

// Package layout provides compile-time size and alignment information for
// use by the xunsafe package and its clients.
package layout

import "unsafe"

// Int is any built-in integer type.
type Int interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// PointerAlign is the alignment of a pointer-sized value on this platform.
const PointerAlign = int(unsafe.Sizeof(uintptr(0)))

// Layout is the size and alignment of a type.
type Layout struct {
	Size, Align int
}

// Of returns the layout of T.
func Of[T any]() Layout {
	var z T
	return Layout{
		Size:  int(unsafe.Sizeof(z)),
		Align: int(unsafe.Alignof(z)),
	}
}

// Size returns the size in bytes of T.
func Size[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

// Align returns the alignment in bytes of T.
func Align[T any]() int {
	var z T
	return int(unsafe.Alignof(z))
}

// Bits returns the size in bits of T.
func Bits[T any]() int {
	return Size[T]() * 8
}

// RoundUp rounds n up to the nearest multiple of align, which must be a
// power of two.
func RoundUp[T Int](n, align T) T {
	return (n + align - 1) &^ (align - 1)
}

// Padding returns the number of bytes needed to round n up to a multiple of
// align, which must be a power of two.
func Padding[T Int](n, align T) T {
	return RoundUp(n, align) - n
}
