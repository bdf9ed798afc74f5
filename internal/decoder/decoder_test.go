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

package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/decoder"
	"github.com/coreproto/minipb/internal/minidesc"
	"github.com/coreproto/minipb/internal/minitable"
	"github.com/coreproto/minipb/internal/wire"
	"github.com/coreproto/minipb/internal/wireerr"
)

func buildGroupTable(t *testing.T) *minitable.Table {
	t.Helper()
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindGroup, minitable.Scalar, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)
	require.True(t, tbl.SetSubMessage(1, tbl)) // self-recursive schema
	return tbl
}

func nestedGroups(n int) []byte {
	var b []byte
	for i := 0; i < n; i++ {
		b = wire.AppendTag(b, 1, wire.StartGroup)
	}
	for i := 0; i < n; i++ {
		b = wire.AppendTag(b, 1, wire.EndGroup)
	}
	return b
}

func TestDecodeRejectsExceededDepth(t *testing.T) {
	tbl := buildGroupTable(t)
	buf := nestedGroups(5)

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{MaxDepth: 3})
	_, err := d.Decode(tbl)
	require.NotNil(t, err)
	require.Equal(t, wireerr.StatusMaxDepth, err.Status)
}

func TestDecodeAcceptsDepthWithinLimit(t *testing.T) {
	tbl := buildGroupTable(t)
	buf := nestedGroups(2)

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{MaxDepth: 10})
	_, err := d.Decode(tbl)
	require.Nil(t, err)
}

func TestDecodeRejectsTruncatedVarint(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	// Tag for field 1 (varint) with no value byte following.
	buf := wire.AppendTag(nil, 1, wire.Varint)

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{})
	_, perr := d.Decode(tbl)
	require.NotNil(t, perr)
	require.Equal(t, wireerr.StatusTruncated, perr.Status)
}

func TestDecodeRejectsInvalidUTF8InStringField(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindString, minitable.Scalar, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	buf := wire.AppendTag(nil, 1, wire.Delimited)
	buf = wire.AppendBytes(buf, []byte{0xff, 0xfe})

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{ValidateUTF8: true})
	_, perr := d.Decode(tbl)
	require.NotNil(t, perr)
	require.Equal(t, wireerr.StatusBadUTF8, perr.Status)
}

func TestDecodeAllowsInvalidUTF8WhenNotValidating(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindString, minitable.Scalar, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	buf := wire.AppendTag(nil, 1, wire.Delimited)
	buf = wire.AppendBytes(buf, []byte{0xff, 0xfe})

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{ValidateUTF8: false})
	_, perr := d.Decode(tbl)
	require.Nil(t, perr)
}

func TestDecodeRejectsMismatchedEndGroup(t *testing.T) {
	tbl := buildGroupTable(t)
	buf := wire.AppendTag(nil, 1, wire.StartGroup)
	buf = wire.AppendTag(buf, 2, wire.EndGroup) // wrong group number

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{MaxDepth: 10})
	_, perr := d.Decode(tbl)
	require.NotNil(t, perr)
	require.Equal(t, wireerr.StatusEndGroup, perr.Status)
}
