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

package minidesc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/minidesc"
	"github.com/coreproto/minipb/internal/minitable"
)

func TestDecodeMessageFieldLayout(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, 0, -1)
	enc.PutField(2, minitable.KindString, minitable.Scalar, 0, -1)
	enc.PutField(5, minitable.KindBool, minitable.Array, 0, -1)

	table, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)
	require.Len(t, table.Fields, 3)

	f1, _, ok := table.FieldByNumber(1, 0)
	require.True(t, ok)
	require.Equal(t, minitable.KindInt32, f1.Kind)
	require.Equal(t, minitable.Scalar, f1.Mode)

	f5, _, ok := table.FieldByNumber(5, 0)
	require.True(t, ok)
	require.Equal(t, minitable.Array, f5.Mode)

	_, _, ok = table.FieldByNumber(3, 0)
	require.False(t, ok)
}

func TestRequiredModifierCountsTowardRequiredCount(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, minidesc.IsRequired, -1)
	enc.PutField(2, minitable.KindInt32, minitable.Scalar, minidesc.IsRequired, -1)
	enc.PutField(3, minitable.KindInt32, minitable.Scalar, 0, -1)

	table, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)
	require.EqualValues(t, 2, table.RequiredCount)
}

func TestFlipPackedTogglesDefault(t *testing.T) {
	// int32 arrays are packable by default; FlipPacked toggles that off.
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Array, 0, -1)
	enc.PutField(2, minitable.KindInt32, minitable.Array, minidesc.FlipPacked, -1)

	table, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	f1, _, _ := table.FieldByNumber(1, 0)
	f2, _, _ := table.FieldByNumber(2, 0)
	require.Zero(t, f1.Flags&minitable.IsPacked)
	require.NotZero(t, f2.Flags&minitable.IsPacked)
}

func TestBuildMapEntryTable(t *testing.T) {
	entry := minidesc.BuildMapEntryTable(minitable.KindString, minitable.KindInt32)
	require.Len(t, entry.Fields, 2)
	require.Equal(t, minitable.IsMapEntry, entry.Ext)
	require.EqualValues(t, 1, entry.Fields[0].Number)
	require.EqualValues(t, 2, entry.Fields[1].Number)
	require.Equal(t, minitable.KindString, entry.Fields[0].Kind)
	require.Equal(t, minitable.KindInt32, entry.Fields[1].Kind)
}

func TestSetSubMessagePromotesArrayToMapField(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindMessage, minitable.Array, 0, -1)
	table, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	f, _, _ := table.FieldByNumber(1, 0)
	require.Equal(t, minitable.Array, f.Mode)

	entry := minidesc.BuildMapEntryTable(minitable.KindString, minitable.KindString)
	require.True(t, table.SetSubMessage(1, entry))

	f, _, _ = table.FieldByNumber(1, 0)
	require.Equal(t, minitable.MapField, f.Mode)
}

func TestOneofMembersShareAValueSlotDistinctFromHasbitWord(t *testing.T) {
	enc := minidesc.NewMessageEncoder()
	enc.PutField(1, minitable.KindInt32, minitable.Scalar, 0, 0)
	enc.PutField(2, minitable.KindInt64, minitable.Scalar, 0, 0)
	enc.PutField(3, minitable.KindBool, minitable.Scalar, 0, -1)

	table, err := minidesc.DecodeMessage(enc.Build())
	require.NoError(t, err)

	f1, _, ok := table.FieldByNumber(1, 0)
	require.True(t, ok)
	f2, _, ok := table.FieldByNumber(2, 0)
	require.True(t, ok)

	_, hasCase := f1.OneofCaseOffset()
	require.True(t, hasCase, "oneof members must report a case offset, not a hasbit")
	require.NotZero(t, f1.Offset, "oneof value storage must not alias the hasbit word at offset 0")
	require.Equal(t, f1.Offset, f2.Offset, "every member of a oneof shares one value slot")

	caseOff, _ := f1.OneofCaseOffset()
	require.NotEqual(t, caseOff, int(f1.Offset), "the case slot and the value slot must be distinct")
}

func TestEnumDescriptor(t *testing.T) {
	enc := minidesc.NewEnumEncoder()
	enc.PutValue(0)
	enc.PutValue(1)
	enc.PutValue(5)

	enum, err := minidesc.DecodeEnum(enc.Build())
	require.NoError(t, err)
	require.True(t, enum.IsValid(0))
	require.True(t, enum.IsValid(1))
	require.True(t, enum.IsValid(5))
	require.False(t, enum.IsValid(2))
}

func TestExtensionDescriptor(t *testing.T) {
	desc := minidesc.EncodeExtension(100, minitable.KindInt32, minitable.Scalar, 0)
	f, err := minidesc.DecodeExtension(desc)
	require.NoError(t, err)
	require.EqualValues(t, 100, f.Number)
	require.Equal(t, minitable.KindInt32, f.Kind)
}
