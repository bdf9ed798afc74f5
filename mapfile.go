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
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MappedInput is a read-only memory-mapped file, usable directly as the
// buf argument to [Decode]. Reading a large payload this way avoids the
// up-front copy a plain os.ReadFile requires, at the cost of taking a page
// fault on first touch of each mapped page instead.
type MappedInput struct {
	data mmap.MMap
	f    *os.File
}

// MapFile opens and memory-maps the file at path for reading.
func MapFile(path string) (*MappedInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedInput{data: data, f: f}, nil
}

// Bytes returns the mapped file's contents. The slice is only valid until
// Close is called.
func (m *MappedInput) Bytes() []byte { return m.data }

// NewArena builds an Arena that serves allocations from this mapping's
// bytes before falling back to the heap, so a [Decode] with
// [AliasString] set can return StringViews that point directly into the
// mapped pages rather than copying them.
func (m *MappedInput) NewArena() *Arena { return NewArenaOverBuffer(m.data) }

// Close unmaps the file and closes its descriptor. Any Message decoded
// with AliasString set from this mapping's bytes must not be read after
// Close.
func (m *MappedInput) Close() error {
	if err := m.data.Unmap(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
