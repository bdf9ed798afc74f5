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

// Package table provides a simple map implementation specialized for
// immutability, size, and 32-bit integer keys.
//
// This backs a MiniTable's optional fast dispatch table: once a message's
// field set is known, the field-number -> field-index mapping for fields
// above the dense prefix is frozen into one of these tables, trading a
// build step for O(1) expected-case lookup instead of a linear scan.
//
// The map implementation is an open-addressing table using quadratic
// probing and a simple, fxhash-derived hash function.
package table

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	"github.com/coreproto/minipb/internal/debug"
	"github.com/coreproto/minipb/internal/xunsafe"
	"github.com/coreproto/minipb/internal/xunsafe/layout"
)

const (
	rotate = 5
	key    = 0x517cc1b727220a95

	maxEntries = math.MaxInt32 / 8

	empty = math.MaxInt32
)

// Table is a simple map implementation specialized for immutability, size,
// and 32-bit integer keys.
type Table[V any] struct {
	// Data is the data pointer for this table: the offset in the backing
	// slice passed to New at which the table begins.
	Data *byte
}

// Entry is an entry for building a table with [New].
type Entry[V any] struct {
	// NOTE: the value math.MaxInt32 is reserved for empty slots!
	Key   int32
	Value V
}

// New builds a table for the given entries, appending it to out.
//
// V must not contain pointers.
func New[V comparable](out []byte, entries ...Entry[V]) ([]byte, Table[V]) {
	if len(entries) > maxEntries {
		panic(fmt.Sprintf("minipb/internal/table: cannot create table of length %d; max is %d", len(entries), maxEntries))
	}

	buckets := buckets(len(entries))
	size, align := tableLayout[V](buckets)
	padding := xunsafe.AddrOf(unsafe.SliceData(out)).Add(len(out)).Padding(align)

	skip := len(out)
	out = append(out, make([]byte, padding+size)...)
	t := Table[V]{xunsafe.Add(unsafe.SliceData(out), skip)}

	xunsafe.ByteStore(t.Data, 0, uint32(buckets))
	_, keys, vals := t.unpack()

	for i := range buckets {
		xunsafe.Store(keys, i, int32(empty))
	}

	for _, e := range entries {
		if e.Key == empty {
			panic(fmt.Sprintf("minipb/internal/table: cannot use %d as a key", e.Key))
		}

		h := int(fx32(uint32(e.Key)))
		for i := range buckets {
			h = probe(h, i, buckets)
			if xunsafe.Load(keys, h) == empty {
				xunsafe.Store(keys, h, e.Key)
				xunsafe.Store(vals, h, e.Value)
				break
			}
		}
	}

	if debug.Enabled {
		for _, e := range entries {
			v := t.Lookup(e.Key)
			debug.Assert(v != nil && *v == e.Value, "table self-test failed for key %d", e.Key)
		}
	}

	return out, t
}

// Lookup looks for the given key in a table. Returns nil if not found.
func (t Table[V]) Lookup(k int32) *V {
	buckets, keys, vals := t.unpack()

	h := int(fx32(uint32(k)))
	for i := range buckets {
		h = probe(h, i, buckets)
		switch xunsafe.Load(keys, h) {
		case empty:
			return nil
		case k:
			return xunsafe.Add(vals, h)
		}
	}
	return nil
}

// Bytes returns the backing byte array for this table.
func (t Table[V]) Bytes() []byte {
	bytes, _ := tableLayout[V](t.buckets())
	return unsafe.Slice(t.Data, bytes)
}

// Format implements fmt.Formatter.
func (t Table[V]) Format(s fmt.State, verb rune) {
	buckets, keys, vals := t.unpack()

	kv := "%v: " + fmt.FormatString(s, verb)
	first := true

	fmt.Fprint(s, "[")
	for i := range buckets {
		k := xunsafe.Load(keys, i)
		if k == empty {
			continue
		}
		if !first {
			fmt.Fprint(s, ", ")
		}
		first = false
		fmt.Fprintf(s, kv, k, xunsafe.Load(vals, i))
	}
	fmt.Fprint(s, "]")
}

func (t Table[V]) buckets() int {
	return int(xunsafe.ByteLoad[uint32](t.Data, 0))
}

func (t Table[V]) unpack() (int, *int32, *V) {
	buckets := t.buckets()
	data := xunsafe.Add(t.Data, layout.Size[int32]())

	align := min(layout.Align[V](), layout.Align[int32]())
	bytes := buckets * layout.Size[int32]()
	padding := layout.Padding(bytes, align)

	keys := xunsafe.Cast[int32](data)
	vals := xunsafe.ByteAdd[V](xunsafe.Add(keys, buckets), padding)

	return buckets, keys, vals
}

// probe implements quadratic probing using triangular numbers: calling
// this with consecutive i produces the next value in the probe sequence.
//
// buckets must be a power of 2.
func probe(prev, i, buckets int) int {
	return (prev + i) & (buckets - 1)
}

// buckets returns the number of buckets for a table with this many
// entries, targeting a load factor of about 0.88.
func buckets(entries int) int {
	e := uint(entries)
	n := e * 8 / 7
	if bits.OnesCount(n) != 1 {
		n = uint(1) << bits.Len(n)
	}
	return int(n)
}

// tableLayout returns the byte size and alignment for a table with the
// given number of buckets.
func tableLayout[V any](buckets int) (size, align int) {
	align = min(layout.Align[V](), layout.Align[int32]())

	bytes := (buckets + 1) * layout.Size[int32]()
	bytes += layout.Padding(bytes, align)
	bytes += buckets * layout.Size[V]()

	return bytes, align
}

// fx32 is a variation of fxhash for 32-bit integers.
//
// See https://docs.rs/fxhash
func fx32(n uint32) uint32 {
	return (bits.RotateLeft32(n, rotate) ^ -n) * uint32(key&math.MaxUint32)
}
