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

// buildMessageSetOuter builds an extendable, no-fields-of-its-own message
// type in MessageSet form, the proto2 convention where every member is an
// extension keyed by its own field number.
func buildMessageSetOuter(t *testing.T) *minipb.Type {
	t.Helper()
	enc := minidesc.NewMessageEncoder()
	typ, err := minipb.NewType(enc.Build())
	require.NoError(t, err)
	typ.MarkExtendable(minipb.IsMessageSet)
	return typ
}

// messageSetItem hand-assembles one `item { type_id, message }` group the
// way a MessageSet wire payload carries its extensions, independent of this
// module's own encoder, so the round-trip test isn't just checking the
// encoder against itself.
func messageSetItem(typeID uint32, message []byte) []byte {
	var b []byte
	b = append(b, 0x0b)                                   // field 1, StartGroup
	b = append(b, 0x10)                                   // field 2, Varint
	b = appendVarintForTest(b, uint64(typeID))
	b = append(b, 0x1a)                                   // field 3, Delimited
	b = appendVarintForTest(b, uint64(len(message)))
	b = append(b, message...)
	b = append(b, 0x0c) // field 1, EndGroup
	return b
}

func appendVarintForTest(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

func TestMessageSetRoundTripsRegisteredExtension(t *testing.T) {
	payloadEnc := minidesc.NewMessageEncoder()
	payloadEnc.PutField(1, minitable.KindInt32, minitable.Scalar, 0, -1)
	payloadTyp, err := minipb.NewType(payloadEnc.Build())
	require.NoError(t, err)

	outer := buildMessageSetOuter(t)
	require.NoError(t, outer.Extensions().Register(12345, minipb.KindMessage, minipb.Scalar, payloadTyp))

	item := messageSetItem(12345, []byte{0x08, 0x05}) // field 1 = 5

	m, perr := minipb.Unmarshal(item, outer, 0)
	require.Nil(t, perr)
	require.Empty(t, m.UnknownBytes(), "a registered extension must not fall back to unknown bytes")

	buf, perr := minipb.Marshal(m, 0)
	require.Nil(t, perr)
	require.Equal(t, item, buf, "re-encoding under the same type must reproduce the item byte-for-byte")
}

func TestMessageSetPreservesUnregisteredItemVerbatim(t *testing.T) {
	outer := buildMessageSetOuter(t)
	// Deliberately nothing registered: type id 12345 is unknown to outer.

	item := messageSetItem(12345, []byte{0x08, 0x05})

	m, perr := minipb.Unmarshal(item, outer, 0)
	require.Nil(t, perr)
	require.Equal(t, item, m.UnknownBytes(), "an unregistered item must be preserved byte-for-byte")

	buf, perr := minipb.Marshal(m, 0)
	require.Nil(t, perr)
	require.Equal(t, item, buf)
}
