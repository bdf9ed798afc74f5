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

package wiremsg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/minitable"
	"github.com/coreproto/minipb/internal/wiremsg"
)

func TestHasbitsAndOneofCase(t *testing.T) {
	a := arena.New()
	mt := &minitable.Table{Size: 16}
	m := wiremsg.New(a, mt)

	require.False(t, m.HasBit(0))
	m.SetBit(0)
	require.True(t, m.HasBit(0))
	m.ClearBit(0)
	require.False(t, m.HasBit(0))

	require.EqualValues(t, 0, m.OneofCase(8))
	m.SetOneofCase(8, 7)
	require.EqualValues(t, 7, m.OneofCase(8))
}

func TestRequiredSatisfied(t *testing.T) {
	a := arena.New()
	m := wiremsg.New(a, &minitable.Table{Size: 8})

	require.True(t, m.RequiredSatisfied(0))
	require.False(t, m.RequiredSatisfied(2))
	m.SetBit(0)
	require.False(t, m.RequiredSatisfied(2))
	m.SetBit(1)
	require.True(t, m.RequiredSatisfied(2))
}

func TestLoadStore(t *testing.T) {
	a := arena.New()
	m := wiremsg.New(a, &minitable.Table{Size: 16})

	wiremsg.Store(m, 8, uint32(0xdeadbeef))
	require.EqualValues(t, 0xdeadbeef, wiremsg.Load[uint32](m, 8))
}

func TestUnknownBytesAppendPreservesOrder(t *testing.T) {
	a := arena.New()
	m := wiremsg.New(a, &minitable.Table{Size: 0})

	m.AppendUnknown(a, []byte{1, 2, 3})
	m.AppendUnknown(a, []byte{4, 5})
	require.Equal(t, []byte{1, 2, 3, 4, 5}, m.UnknownBytes())
}

func TestTaggedMessagePtrPromotion(t *testing.T) {
	a := arena.New()
	inner := wiremsg.New(a, &minitable.Table{Size: 8})

	linked := wiremsg.TagLinked(inner)
	require.False(t, linked.IsEmpty())
	require.False(t, linked.IsNil())
	require.Equal(t, inner.Payload(), linked.Message().Payload())

	empty := wiremsg.TagEmpty(inner)
	require.True(t, empty.IsEmpty())
	require.Equal(t, inner.Payload(), empty.Message().Payload())

	var zero wiremsg.TaggedMessagePtr
	require.True(t, zero.IsNil())
}

func TestArrayAppendAndSlice(t *testing.T) {
	a := arena.New()
	var arr wiremsg.Array
	require.Equal(t, 0, arr.Len())

	arr = wiremsg.ArrayAppend(a, arr, uint32(10))
	arr = wiremsg.ArrayAppend(a, arr, uint32(20))
	arr = wiremsg.ArrayAppend(a, arr, uint32(30))

	require.Equal(t, 3, arr.Len())
	s := wiremsg.ArraySlice[uint32](arr)
	require.EqualValues(t, 10, s.Load(0))
	require.EqualValues(t, 20, s.Load(1))
	require.EqualValues(t, 30, s.Load(2))
}

func TestMapSetGetDeleteRange(t *testing.T) {
	a := arena.New()
	var m wiremsg.Map

	k1 := wiremsg.ScalarKey(1)
	k2 := wiremsg.ScalarKey(2)
	m = m.Set(a, k1, wiremsg.ScalarValue(100))
	m = m.Set(a, k2, wiremsg.ScalarValue(200))
	require.Equal(t, 2, m.Len())

	v, ok := m.Get(k1)
	require.True(t, ok)
	require.EqualValues(t, 100, v.Scalar())

	// Overwrite is last-write-wins, not an extra entry.
	m = m.Set(a, k1, wiremsg.ScalarValue(999))
	require.Equal(t, 2, m.Len())
	v, _ = m.Get(k1)
	require.EqualValues(t, 999, v.Scalar())

	var seen []uint64
	m.Range(func(_ wiremsg.MapKey, v wiremsg.MapValue) bool {
		seen = append(seen, v.Scalar())
		return true
	})
	require.ElementsMatch(t, []uint64{999, 200}, seen)

	m = m.Delete(k1)
	require.Equal(t, 1, m.Len())
	_, ok = m.Get(k1)
	require.False(t, ok)
}
