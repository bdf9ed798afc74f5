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

// Package arena provides a low-level bump allocator with support for
// lock-free lifetime fusion of multiple arenas into a single group.
//
// # Design
//
// An [Arena] owns a chain of [block]s. Allocation bumps a (next, end)
// cursor inside the most recently allocated block; when the block runs
// out of room, a new, larger block is pulled from the arena's
// [Allocator].
//
// Arenas may be fused together with [Fuse]. Fusion does not merge the two
// arenas into one value; instead, it links their lifetimes so that
// destroying either one with [Free] keeps every arena in the group alive
// until the last reference is dropped, at which point every block in the
// group is released. This is implemented as a lock-free structure
// resembling a disjoint-set (union-find) forest with path compression,
// see fuse.go.
package arena

import (
	"github.com/coreproto/minipb/internal/xunsafe"
)

// Align is the alignment of every allocation made by an Arena.
const Align = 8

// minBlockSize is the smallest block an Arena will ever allocate.
const minBlockSize = 128

// Allocator supplies the backing memory for an Arena's blocks.
//
// [New], and [Init] with a nil alloc, use a default allocator backed by
// make([]byte, n); Free on the default allocator is a no-op, since Go's GC reclaims the
// memory once the last block in the chain becomes unreachable.
type Allocator interface {
	Alloc(size int) []byte
	Free(mem []byte)
}

type defaultAllocator struct{}

func (defaultAllocator) Alloc(size int) []byte { return make([]byte, size) }
func (defaultAllocator) Free([]byte)            {}

// block is one link in an Arena's private chain of allocated memory.
type block struct {
	next *block
	data []byte
}

// Arena is a bump allocator. Create one with [New], [NewWithAllocator], or
// [Init]; the zero Arena has no allocator and is not usable.
//
// An Arena is single-writer: concurrent Alloc calls on the same Arena are
// not supported. Concurrent calls to [Fuse], [Free], and [SpaceAllocated]
// involving different arenas in a shared group are safe.
type Arena struct {
	_ xunsafe.NoCopy

	next, end xunsafe.Addr[byte]

	allocator Allocator

	blocks        *block
	lastBlockSize int
	blockBytes    int

	// hasInitialBlock is true when this Arena was initialized over
	// caller-provided memory via Init. Such an arena cannot be fused,
	// since its lifetime is bounded by the caller's buffer rather than
	// being extendable indefinitely.
	hasInitialBlock bool

	root rootState
}

// New creates a new, empty Arena using the default allocator.
func New() *Arena {
	a := &Arena{allocator: defaultAllocator{}}
	a.root.init()
	return a
}

// NewWithAllocator creates a new, empty Arena that pulls blocks from the
// given Allocator.
func NewWithAllocator(alloc Allocator) *Arena {
	a := &Arena{allocator: alloc}
	a.root.init()
	return a
}

// Init places an Arena over caller-provided memory. The first allocations
// are served from buffer; once it is exhausted, further blocks are pulled
// from alloc (or the default allocator, if alloc is nil).
//
// An Arena initialized this way can never be fused with [Fuse], because
// its lifetime is tied to the lifetime of buffer, which the Arena does not
// own.
func Init(buffer []byte, alloc Allocator) *Arena {
	if alloc == nil {
		alloc = defaultAllocator{}
	}
	a := &Arena{allocator: alloc, hasInitialBlock: true}
	a.root.init()
	if len(buffer) > 0 {
		a.next = xunsafe.AddrOf(&buffer[0])
		a.end = a.next.Add(len(buffer))
		a.lastBlockSize = len(buffer)
	}
	return a
}

// Alloc allocates size bytes of zeroed, pointer-aligned memory.
func (a *Arena) Alloc(size int) *byte {
	size = roundUp(size)

	if a.next.Add(size) > a.end {
		a.grow(size)
	}

	p := a.next.AssertValid()
	a.next = a.next.Add(size)
	return p
}

// Realloc grows or shrinks an existing allocation. p must be the pointer
// most recently returned by Alloc on this Arena for this to extend in
// place; otherwise this allocates fresh memory and copies old bytes over.
func (a *Arena) Realloc(p *byte, oldSize, newSize int) *byte {
	oldSize = roundUp(oldSize)
	newSize = roundUp(newSize)

	start := a.next.Add(-oldSize)
	end := start.Add(newSize)
	if xunsafe.AddrOf(p) == start && end <= a.end {
		a.next = end
		return p
	}

	if newSize <= oldSize {
		return p
	}

	q := a.Alloc(newSize)
	xunsafe.Copy(q, p, oldSize)
	return q
}

// ShrinkLast moves the bump cursor backwards. p must be the pointer most
// recently returned by Alloc on this Arena.
func (a *Arena) ShrinkLast(p *byte, oldSize, newSize int) *byte {
	oldSize = roundUp(oldSize)
	newSize = roundUp(newSize)
	start := a.next.Add(-oldSize)
	if xunsafe.AddrOf(p) != start || newSize > oldSize {
		return p
	}
	a.next = start.Add(newSize)
	return p
}

func roundUp(n int) int {
	return (n + Align - 1) &^ (Align - 1)
}

// grow pulls a new block of at least size bytes and points the bump cursor
// at it.
func (a *Arena) grow(size int) {
	next := max(minBlockSize, a.lastBlockSize*2) + size
	mem := a.allocator.Alloc(next)

	b := &block{next: a.blocks, data: mem}
	a.blocks = b
	a.lastBlockSize = next
	a.blockBytes += next

	if len(mem) == 0 {
		a.next, a.end = 0, 0
		return
	}
	base := xunsafe.AddrOf(&mem[0])
	a.next = base
	a.end = base.Add(len(mem))
}

// SuggestSize rounds bytes up to the next power of two, with a floor of 8.
// Used by callers (such as the arena-backed Array type) to decide how much
// capacity to request for a new allocation.
func SuggestSize(bytes int) int {
	n := 8
	for n < bytes {
		n *= 2
	}
	return n
}

// SpaceAllocated returns the total number of bytes allocated into blocks
// across every arena fused into a's group. Safe to call concurrently with
// allocation on any arena in the group.
func SpaceAllocated(a *Arena) int {
	root := findRoot(a).arena
	total := 0
	for cur := root; cur != nil; cur = cur.root.next.Load() {
		total += cur.blockBytes
	}
	return total
}
