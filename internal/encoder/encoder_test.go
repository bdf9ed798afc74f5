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

package encoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/decoder"
	"github.com/coreproto/minipb/internal/encoder"
	"github.com/coreproto/minipb/internal/minidesc"
	"github.com/coreproto/minipb/internal/minitable"
	"github.com/coreproto/minipb/internal/wire"
	"github.com/coreproto/minipb/internal/wireerr"
)

func buildMapTable(t *testing.T) *minitable.Table {
	t.Helper()
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindMessage, minitable.Array, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)
	require.True(t, tbl.SetSubMessage(1, minidesc.BuildMapEntryTable(minitable.KindString, minitable.KindString)))
	return tbl
}

func mapEntry(key, value string) []byte {
	var b []byte
	b = wire.AppendTag(b, 1, wire.Delimited)
	b = wire.AppendBytes(b, []byte(key))
	b = wire.AppendTag(b, 2, wire.Delimited)
	b = wire.AppendBytes(b, []byte(value))
	return b
}

func mapField(entries ...[]byte) []byte {
	var b []byte
	for _, e := range entries {
		b = wire.AppendTag(b, 1, wire.Delimited)
		b = wire.AppendBytes(b, e)
	}
	return b
}

func TestDeterministicEncodeIsOrderIndependent(t *testing.T) {
	tbl := buildMapTable(t)

	forward := mapField(mapEntry("a", "x"), mapEntry("b", "y"))
	backward := mapField(mapEntry("b", "y"), mapEntry("a", "x"))

	decodeOne := func(buf []byte) []byte {
		a := arena.New()
		d := decoder.New(buf, a, decoder.Options{})
		m, perr := d.Decode(tbl)
		require.Nil(t, perr)

		e := encoder.New(arena.New(), encoder.Options{Deterministic: true})
		out, perr := e.Encode(nil, m, tbl)
		require.Nil(t, perr)
		return out
	}

	require.Equal(t, decodeOne(forward), decodeOne(backward))
}

func TestEncodeRejectsExceededDepth(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindMessage, minitable.Scalar, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)
	require.True(t, tbl.SetSubMessage(1, tbl)) // self-recursive

	a := arena.New()
	d := decoder.New(nestedMessageBytes(5), a, decoder.Options{MaxDepth: 10})
	m, perr := d.Decode(tbl)
	require.Nil(t, perr)

	e := encoder.New(arena.New(), encoder.Options{MaxDepth: 3})
	_, perr = e.Encode(nil, m, tbl)
	require.NotNil(t, perr)
	require.Equal(t, wireerr.StatusMaxDepth, perr.Status)
}

// nestedMessageBytes builds n levels of nested length-delimited field-1
// submessages, innermost first, the way a recursive schema would encode
// them on the wire.
func nestedMessageBytes(n int) []byte {
	var inner []byte
	for i := 0; i < n; i++ {
		var b []byte
		b = wire.AppendTag(b, 1, wire.Delimited)
		b = wire.AppendBytes(b, inner)
		inner = b
	}
	return inner
}

func TestEncodeSkipUnknownDropsUnknownBytes(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, 0, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	var buf []byte
	buf = wire.AppendTag(buf, 99, wire.Varint) // unknown to tbl
	buf = wire.AppendVarint(buf, 1)
	buf = wire.AppendTag(buf, 1, wire.Varint)
	buf = wire.AppendVarint(buf, 7)

	a := arena.New()
	d := decoder.New(buf, a, decoder.Options{})
	m, perr := d.Decode(tbl)
	require.Nil(t, perr)
	require.NotEmpty(t, m.UnknownBytes())

	kept, perr := encoder.New(arena.New(), encoder.Options{}).Encode(nil, m, tbl)
	require.Nil(t, perr)
	require.Greater(t, len(kept), 2)

	dropped, perr := encoder.New(arena.New(), encoder.Options{SkipUnknown: true}).Encode(nil, m, tbl)
	require.Nil(t, perr)
	require.Less(t, len(dropped), len(kept))
}

func TestEncodeCheckRequiredRejectsMissingField(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, minidesc.IsRequired, -1)
	tbl, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	a := arena.New()
	d := decoder.New(nil, a, decoder.Options{})
	m, perr := d.Decode(tbl)
	require.Nil(t, perr)

	_, perr = encoder.New(arena.New(), encoder.Options{CheckRequired: true}).Encode(nil, m, tbl)
	require.NotNil(t, perr)
	require.Equal(t, wireerr.StatusMissingRequired, perr.Status)
}
