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

package arena

import (
	"sync/atomic"
	"unsafe"
)

// rootState is the lock-free disjoint-set node embedded in every Arena.
//
// parentOrCount is a tagged word: if its low bit is set, the remaining
// bits (shifted right by one) are a reference count and the owning Arena
// is the root of its group. If the low bit is clear, the word is the
// address of another Arena — a step towards the group's root.
//
// next and tail thread every Arena in a group into a singly-linked list
// rooted at the group's root, used to enumerate every block in the group
// for [SpaceAllocated] and for bulk free. tail is meaningful only while
// the owning Arena is (or was, at some point) a root; a nil tail means
// "this arena is the tail of its own singleton list".
type rootState struct {
	parentOrCount atomic.Uintptr
	next          atomic.Pointer[Arena]
	tail          atomic.Pointer[Arena]
}

func (r *rootState) init() {
	r.parentOrCount.Store(tagRefs(1))
}

func tagRefs(n uintptr) uintptr { return n<<1 | 1 }
func refsOf(word uintptr) uintptr { return word >> 1 }
func tagPtr(a *Arena) uintptr { return uintptr(unsafe.Pointer(a)) }

type rootInfo struct {
	arena *Arena
	word  uintptr
}

// findRoot walks the parent chain starting at a until it finds a root,
// splitting the path as it goes: whenever it observes an intermediate
// pointer, it relaxes the predecessor to point directly at the
// grandparent, so that future walks from the same node are shorter.
func findRoot(a *Arena) rootInfo {
	cur := a
	for {
		word := cur.root.parentOrCount.Load()
		if word&1 == 1 {
			return rootInfo{cur, word}
		}

		parent := (*Arena)(unsafe.Pointer(word)) //nolint:govet
		grandWord := parent.root.parentOrCount.Load()
		if grandWord&1 == 0 {
			cur.root.parentOrCount.CompareAndSwap(word, grandWord)
		}
		cur = parent
	}
}

// Fuse merges the lifetime of a's group with b's group: after Fuse
// returns true, calling [Free] on any arena in either group keeps every
// arena in the combined group alive until the last reference has been
// dropped.
//
// Fuse returns false if a or b was created with [Init] over
// caller-provided memory, since such an arena's lifetime is bounded by
// that buffer and cannot be extended indefinitely to match an arbitrary
// partner's lifetime.
func Fuse(a, b *Arena) bool {
	if a.hasInitialBlock || b.hasInitialBlock {
		return false
	}

	for {
		r1 := findRoot(a)
		r2 := findRoot(b)
		if r1.arena == r2.arena {
			return true
		}

		// Order by address so that the lower-addressed root always
		// becomes the parent; this, plus the fact that roots never point
		// at non-roots, prevents cycles from forming.
		if tagPtr(r1.arena) > tagPtr(r2.arena) {
			r1, r2 = r2, r1
		}

		// Transfer r2's references into r1 first, so that r1 cannot be
		// concurrently freed out from under this fusion.
		merged := tagRefs(refsOf(r1.word) + refsOf(r2.word))
		if !r1.arena.root.parentOrCount.CompareAndSwap(r1.word, merged) {
			continue
		}

		if !r2.arena.root.parentOrCount.CompareAndSwap(r2.word, tagPtr(r1.arena)) {
			// r2 was concurrently fused or freed by someone else. Undo
			// the speculative transfer and restart.
			refund(r1.arena, refsOf(r2.word))
			continue
		}

		spliceGroup(r1.arena, r2.arena)
		return true
	}
}

// refund subtracts n references from whichever arena is currently the
// root reachable from a, undoing a speculative transfer from a failed
// fuse attempt.
func refund(a *Arena, n uintptr) {
	for {
		info := findRoot(a)
		newWord := tagRefs(refsOf(info.word) - n)
		if info.arena.root.parentOrCount.CompareAndSwap(info.word, newWord) {
			return
		}
	}
}

// spliceGroup appends r2's arena-group list onto r1's tail using a single
// atomic exchange, so that concurrent fusions targeting the same root
// cannot lose a splice.
func spliceGroup(r1, r2 *Arena) {
	newTail := r2.root.tail.Load()
	if newTail == nil {
		newTail = r2
	}

	oldTail := r1.root.tail.Swap(newTail)
	if oldTail == nil {
		oldTail = r1
	}
	oldTail.root.next.Store(r2)
}

// Free drops a's reference to its group. When the group's reference
// count reaches zero, every block owned by every arena in the group is
// returned to its allocator.
func Free(a *Arena) {
	for {
		info := findRoot(a)
		refs := refsOf(info.word)
		newWord := tagRefs(refs - 1)
		if !info.arena.root.parentOrCount.CompareAndSwap(info.word, newWord) {
			continue
		}
		if refs == 1 {
			freeGroup(info.arena)
		}
		return
	}
}

// freeGroup walks every arena reachable from root's group list and
// returns their blocks to their respective allocators. Called exactly
// once, by whichever Free call observes the group's last reference drop.
func freeGroup(root *Arena) {
	for cur := root; cur != nil; cur = cur.root.next.Load() {
		for b := cur.blocks; b != nil; b = b.next {
			cur.allocator.Free(b.data)
		}
		cur.blocks = nil
		cur.next, cur.end = 0, 0
	}
}
