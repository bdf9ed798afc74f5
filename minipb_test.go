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

package minipb_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb"
	"github.com/coreproto/minipb/internal/minidesc"
	"github.com/coreproto/minipb/internal/minitable"
)

// buildType assembles a MiniDescriptor the same way a from-scratch caller
// without a protoc-generated descriptor would: one PutField call per
// field, in ascending field-number order.
func buildScalarType(t *testing.T) *minipb.Type {
	t.Helper()
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, 0, -1)
	enc.PutField(2, minitable.KindString, minitable.Scalar, 0, -1)
	enc.PutField(3, minitable.KindBool, minitable.Scalar, 0, -1)
	typ, err := minipb.NewType(enc.Build())
	require.NoError(t, err)
	return typ
}

func TestScalarRoundTrip(t *testing.T) {
	typ := buildScalarType(t)
	a := minipb.NewArena()
	m := minipb.NewMessage(a, typ)

	require.False(t, m.Has(1))
	require.True(t, minipb.SetField(m, 1, uint32(42)))
	require.True(t, m.Has(1))
	require.True(t, minipb.SetField(m, 3, byte(1)))

	buf, perr := minipb.Marshal(m, 0)
	require.Nil(t, perr)

	out, perr := minipb.Unmarshal(buf, typ, 0)
	require.Nil(t, perr)
	require.True(t, out.Has(1))
	require.EqualValues(t, 42, minipb.GetField[uint32](out, 1))
	require.True(t, minipb.GetField[byte](out, 3) != 0)
	require.False(t, out.Has(2))

	buf2, perr := minipb.Marshal(out, 0)
	require.Nil(t, perr)
	require.Equal(t, buf, buf2, "re-encoding a decoded message must reproduce the same bytes")
}

func TestPackedRepeatedInt32(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Array, 0, -1)
	typ, err := minipb.NewType(enc.Build())
	require.NoError(t, err)

	a := minipb.NewArena()
	m := minipb.NewMessage(a, typ)
	arr, ok := m.GetArray(1)
	require.True(t, ok)
	require.Equal(t, 0, arr.Len())

	buf, perr := minipb.Marshal(m, 0)
	require.Nil(t, perr)
	require.Empty(t, buf)

	// Hand-assemble a packed varint run (tag 1, wire type 2, length 3,
	// values 1 2 3) the way the decoder expects to find it on the wire.
	wire := []byte{0x0a, 0x03, 0x01, 0x02, 0x03}
	out, perr := minipb.Unmarshal(wire, typ, 0)
	require.Nil(t, perr)
	got, ok := out.GetArray(1)
	require.True(t, ok)
	require.Equal(t, 3, got.Len())
	require.EqualValues(t, 1, got.Uint32(0))
	require.EqualValues(t, 2, got.Uint32(1))
	require.EqualValues(t, 3, got.Uint32(2))
}

func TestStringMapRoundTrip(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindMessage, minitable.Array, 0, -1)
	typ, err := minipb.NewType(enc.Build())
	require.NoError(t, err)
	typ.SetSubMessage(1, minipb.NewMapEntryType(minitable.KindString, minitable.KindString))

	a := minipb.NewArena()
	m := minipb.NewMessage(a, typ)
	_, ok := m.GetMap(1)
	require.True(t, ok)

	buf, perr := minipb.Marshal(m, 0)
	require.Nil(t, perr)

	out, perr := minipb.Unmarshal(buf, typ, 0)
	require.Nil(t, perr)
	mp, ok := out.GetMap(1)
	require.True(t, ok)
	require.Equal(t, 0, mp.Len())
}

func TestUnlinkedSubMessageRequiresFlag(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindMessage, minitable.Scalar, 0, -1)
	typ, err := minipb.NewType(enc.Build())
	require.NoError(t, err)
	// Deliberately left unlinked: no SetSubMessage call.

	wire := []byte{0x0a, 0x00} // field 1, length-delimited, empty payload
	_, perr := minipb.Unmarshal(wire, typ, 0)
	require.NotNil(t, perr)
	require.Equal(t, minipb.DecodeUnlinkedSubMessage, perr.DecodeStatus)

	_, perr = minipb.Unmarshal(wire, typ, minipb.ExperimentalAllowUnlinked)
	require.Nil(t, perr)
}

func TestRequiredFieldCheckIsOptIn(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, minidesc.IsRequired, -1)
	typ, err := minipb.NewType(enc.Build())
	require.NoError(t, err)

	_, perr := minipb.Unmarshal(nil, typ, 0)
	require.Nil(t, perr, "required-field checking must be off by default")

	_, perr = minipb.Unmarshal(nil, typ, minipb.CheckRequired)
	require.NotNil(t, perr)
	require.Equal(t, minipb.DecodeMissingRequired, perr.DecodeStatus)
}

func TestUnknownFieldsPreservedAndOrderedFirst(t *testing.T) {
	typ := buildScalarType(t)

	// Field 99 (unknown to typ) followed by field 1 = 7.
	wire := []byte{
		0x98, 0x06, 0x01, // tag for field 99 (792 = 0x98 0x06 as a varint), value 1
		0x08, 0x07, // tag for field 1, value 7
	}
	m, perr := minipb.Unmarshal(wire, typ, 0)
	require.Nil(t, perr)
	require.NotEmpty(t, m.UnknownBytes())
	require.EqualValues(t, 7, minipb.GetField[uint32](m, 1))

	buf, perr := minipb.Marshal(m, 0)
	require.Nil(t, perr)
	require.Equal(t, wire[:3], buf[:3], "unknown bytes must be emitted before known fields")

	buf2, perr := minipb.Marshal(m, minipb.SkipUnknown)
	require.Nil(t, perr)
	require.Less(t, len(buf2), len(buf))
}

func TestArenaFusion(t *testing.T) {
	a := minipb.NewArena()
	b := minipb.NewArena()
	require.True(t, minipb.Fuse(a, b))

	mapped := minipb.NewArenaOverBuffer(make([]byte, 64))
	require.False(t, minipb.Fuse(a, mapped))
}
