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

// Package minipb is a minimal, non-reflective Protocol Buffers wire-format
// runtime: a MiniTable schema representation (built from a compact base-92
// MiniDescriptor string, see [NewType]), and a decoder/encoder pair that
// read and write messages against it without touching descriptor.proto
// reflection or generated-code stubs.
//
// # Support status
//
// This package implements the wire format (scalars, groups, packed and
// unpacked repeated fields, maps, extensions and MessageSet) and the
// MiniTable/MiniDescriptor schema layer. It does not implement:
//
//   - descriptor.proto-based reflection (protoreflect.Message and friends).
//   - Generated-code stubs; MiniTables are built directly from
//     MiniDescriptors or assembled programmatically.
//   - Text-format or JSON marshaling.
package minipb
