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

// Package wiredump renders raw protobuf wire bytes to and from Protoscope
// text, independent of any MiniTable: unlike the decoder package, this
// walks the wire format structurally (tag, wire type, length) without
// resolving field numbers against a schema, which is exactly what
// Protoscope's own textual notation is for.
package wiredump

import "github.com/protocolbuffers/protoscope"

// Disassemble renders raw wire bytes as Protoscope text: one line per
// field, annotated with wire type and, for length-delimited fields, a
// best-effort guess at whether the payload is itself a nested message.
func Disassemble(data []byte) string {
	return protoscope.Write(data, protoscope.WriterOptions{
		AllFieldsAreMessages: false,
	})
}

// Assemble parses Protoscope text back into raw wire bytes. Used to build
// test fixtures.
func Assemble(text string) ([]byte, error) {
	s := protoscope.NewScanner(text)
	return s.Exec()
}
