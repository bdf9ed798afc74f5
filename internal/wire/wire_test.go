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

package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/wire"
)

func TestTagRoundTrip(t *testing.T) {
	b := wire.AppendTag(nil, 150, wire.Delimited)
	num, typ, n := wire.ConsumeTag(b)
	require.Equal(t, len(b), n)
	require.EqualValues(t, 150, num)
	require.Equal(t, wire.Delimited, typ)
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 40} {
		b := wire.AppendVarint(nil, v)
		require.Equal(t, wire.SizeVarint(v), len(b))
		got, n := wire.ConsumeVarint(b)
		require.Equal(t, len(b), n)
		require.Equal(t, v, got)
	}
}

func TestConsumeSizeRejectsOverflow(t *testing.T) {
	// A varint whose value exceeds math.MaxInt32 must be rejected even
	// though it is a perfectly well-formed varint.
	b := wire.AppendVarint(nil, 1<<33)
	_, n := wire.ConsumeSize(b)
	require.Negative(t, n)
}

func TestFixedRoundTrip(t *testing.T) {
	b32 := wire.AppendFixed32(nil, 0xdeadbeef)
	v32, n := wire.ConsumeFixed32(b32)
	require.Equal(t, 4, n)
	require.EqualValues(t, 0xdeadbeef, v32)

	b64 := wire.AppendFixed64(nil, 0x0102030405060708)
	v64, n := wire.ConsumeFixed64(b64)
	require.Equal(t, 8, n)
	require.EqualValues(t, 0x0102030405060708, v64)
}

func TestBytesRoundTrip(t *testing.T) {
	b := wire.AppendBytes(nil, []byte("hello"))
	got, n := wire.ConsumeBytes(b)
	require.Equal(t, len(b), n)
	require.Equal(t, []byte("hello"), got)
}

func TestSkipValueScalars(t *testing.T) {
	v := wire.AppendVarint(nil, 42)
	require.Equal(t, len(v), wire.SkipValue(v, wire.Varint, 1, wire.DefaultMaxDepth))

	f := wire.AppendFixed64(nil, 1)
	require.Equal(t, 8, wire.SkipValue(f, wire.Fixed64, 1, wire.DefaultMaxDepth))

	d := wire.AppendBytes(nil, []byte("xy"))
	require.Equal(t, len(d), wire.SkipValue(d, wire.Delimited, 1, wire.DefaultMaxDepth))
}

func TestSkipValueGroup(t *testing.T) {
	const num = 5
	var b []byte
	b = wire.AppendTag(b, num+1, wire.Varint)
	b = wire.AppendVarint(b, 7)
	b = wire.AppendTag(b, num, wire.EndGroup)

	n := wire.SkipValue(b, wire.StartGroup, num, wire.DefaultMaxDepth)
	require.Equal(t, len(b), n)
}

func TestSkipValueGroupRejectsDepthExhaustion(t *testing.T) {
	const num = 1
	b := wire.AppendTag(nil, num, wire.EndGroup)
	require.Negative(t, wire.SkipValue(b, wire.StartGroup, num, 0))
}

func TestSkipValueGroupRejectsMismatchedEnd(t *testing.T) {
	var b []byte
	b = wire.AppendTag(b, 2, wire.EndGroup) // wrong group number
	require.Negative(t, wire.SkipValue(b, wire.StartGroup, 1, wire.DefaultMaxDepth))
}
