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

package minipb

import (
	"github.com/coreproto/minipb/internal/minidesc"
	"github.com/coreproto/minipb/internal/minitable"
)

// Kind is the wire-level type of a field.
type Kind = minitable.Kind

// The field kinds a MiniDescriptor can describe.
const (
	KindDouble     = minitable.KindDouble
	KindFloat      = minitable.KindFloat
	KindFixed32    = minitable.KindFixed32
	KindFixed64    = minitable.KindFixed64
	KindSFixed32   = minitable.KindSFixed32
	KindSFixed64   = minitable.KindSFixed64
	KindInt32      = minitable.KindInt32
	KindUint32     = minitable.KindUint32
	KindSInt32     = minitable.KindSInt32
	KindInt64      = minitable.KindInt64
	KindUint64     = minitable.KindUint64
	KindSInt64     = minitable.KindSInt64
	KindOpenEnum   = minitable.KindOpenEnum
	KindBool       = minitable.KindBool
	KindBytes      = minitable.KindBytes
	KindString     = minitable.KindString
	KindGroup      = minitable.KindGroup
	KindMessage    = minitable.KindMessage
	KindClosedEnum = minitable.KindClosedEnum
)

// Mode is a field's cardinality.
type Mode = minitable.Mode

const (
	Scalar   = minitable.Scalar
	Array    = minitable.Array
	MapField = minitable.MapField
)

// Type is a compiled message schema: a MiniTable plus the extension
// registry used to resolve extensions decoded or encoded against it.
type Type struct {
	table      *minitable.Table
	extensions *minitable.Registry
}

// NewType builds a Type from a base-92 MiniDescriptor string (see
// [NewMessageEncoder] for how to build one programmatically).
func NewType(descriptor string) (*Type, error) {
	t, err := minidesc.DecodeMessage(descriptor)
	if err != nil {
		return nil, err
	}
	return &Type{table: t}, nil
}

// NewMapEntryType synthesizes the implicit two-field MapEntry message type
// for a map<keyKind, valKind> field: callers link it onto the owning
// field with [Type.SetSubMessage].
func NewMapEntryType(keyKind, valKind Kind) *Type {
	return &Type{table: minidesc.BuildMapEntryTable(keyKind, valKind)}
}

// BuildFastTable freezes a field-number dispatch table for fields beyond
// the dense prefix. Optional; skipping it only costs a linear scan on
// lookup miss.
func (t *Type) BuildFastTable() { t.table.BuildFastTable() }

// Extendability controls how a Type accepts fields outside its own
// declared field numbers.
type Extendability = minitable.Extendability

const (
	NonExtendable = minitable.NonExtendable
	Extendable    = minitable.Extendable
	IsMessageSet  = minitable.IsMessageSet
)

// MarkExtendable declares t as accepting extensions, optionally in
// MessageSet form. IsMessageSet switches the decoder and encoder to the
// group-shaped item encoding (type_id + message, proto2's MessageSet
// convention) instead of ordinary tag-delimited extension fields.
func (t *Type) MarkExtendable(ext Extendability) {
	minidesc.MarkExtendable(t.table, ext)
}

// SetSubMessage links fieldNumber's sub-message or group field to sub's
// schema, replacing the canonical unlinked placeholder.
func (t *Type) SetSubMessage(fieldNumber uint32, sub *Type) bool {
	return t.table.SetSubMessage(fieldNumber, sub.table)
}

// SetSubEnum links fieldNumber's closed-enum field to a validator decoded
// from a MiniDescriptor enum string (see [NewEnumEncoder]).
func (t *Type) SetSubEnum(fieldNumber uint32, enumDescriptor string) error {
	enum, err := minidesc.DecodeEnum(enumDescriptor)
	if err != nil {
		return err
	}
	t.table.SetSubEnum(fieldNumber, enum)
	return nil
}

// subType resolves the Type governing f's message-shaped contents: for a
// singular or repeated message/group field that is its linked schema
// directly; for a map field whose value is itself a message, the schema
// linked onto the synthetic entry table's value field. Returns nil when f
// isn't message-shaped, is unlinked, or t.extensions/other bookkeeping
// doesn't apply.
func (t *Type) subType(f *minitable.Field) *Type {
	if f.Mode == minitable.MapField {
		entry := t.table.Subs[f.SubIndex].Message
		if entry == nil || len(entry.Fields) < 2 {
			return nil
		}
		return valueSubType(entry)
	}
	if f.Kind != minitable.KindMessage && f.Kind != minitable.KindGroup {
		return nil
	}
	sub := t.table.Subs[f.SubIndex]
	if sub.Kind != minitable.SubMessageKind || sub.Message == nil {
		return nil
	}
	return &Type{table: sub.Message}
}

func valueSubType(entry *minitable.Table) *Type {
	value := entry.Fields[1]
	if value.Kind != minitable.KindMessage {
		return nil
	}
	sub := entry.Subs[value.SubIndex]
	if sub.Kind != minitable.SubMessageKind || sub.Message == nil {
		return nil
	}
	return &Type{table: sub.Message}
}

// FieldInfo is a read-only summary of one declared field, for callers
// (such as the minidump CLI) that need to walk a Type's field list
// without reaching into internal/minitable directly.
type FieldInfo struct {
	Number      uint32
	Kind        Kind
	Mode        Mode
	HasPresence bool
}

// Fields returns a summary of every field declared on t, in declaration
// order.
func (t *Type) Fields() []FieldInfo {
	fields := t.table.Fields
	out := make([]FieldInfo, len(fields))
	for i := range fields {
		out[i] = FieldInfo{
			Number:      fields[i].Number,
			Kind:        fields[i].Kind,
			Mode:        fields[i].Mode,
			HasPresence: fields[i].HasPresence(),
		}
	}
	return out
}

// Extensions returns the registry used to resolve extensions on messages
// of this type, creating one on first use.
func (t *Type) Extensions() *ExtensionRegistry {
	if t.extensions == nil {
		t.extensions = minitable.NewRegistry()
	}
	return &ExtensionRegistry{reg: t.extensions, extendee: t}
}

// ExtensionRegistry resolves extension field numbers against the message
// type they extend. One registry is normally shared by every message of a
// given Type across a process.
type ExtensionRegistry struct {
	reg      *minitable.Registry
	extendee *Type
}

// Register declares an extension field, described the same way an
// ordinary field is (see [EncodeExtension]), as extending r's message
// type. sub is nil for scalar kinds and the linked schema for message,
// group, or closed-enum kinds.
func (r *ExtensionRegistry) Register(number uint32, kind Kind, mode Mode, sub *Type) error {
	desc := minidesc.EncodeExtension(number, kind, mode, 0)
	field, err := minidesc.DecodeExtension(desc)
	if err != nil {
		return err
	}
	var subEntry minitable.Sub
	if sub != nil {
		subEntry = minitable.Sub{Kind: minitable.SubMessageKind, Message: sub.table}
	}
	r.reg.Register(&minitable.Extension{
		Field:    field,
		Extendee: r.extendee.table,
		Sub:      subEntry,
	})
	return nil
}
