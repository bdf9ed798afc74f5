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

import "github.com/coreproto/minipb/internal/arena"

// Arena is a bump allocator that owns the memory backing every [Message],
// [Array], [Map], and [StringView] built from it. Freeing or fusing arenas
// is exposed directly from [internal/arena] via the small surface below;
// everything else about allocation happens implicitly as messages are
// decoded or constructed.
type Arena struct {
	raw *arena.Arena
}

// NewArena creates a fresh, growable Arena.
func NewArena() *Arena { return &Arena{raw: arena.New()} }

// NewArenaOverBuffer places an Arena over caller-provided memory (for
// instance, a [MappedInput]'s bytes). The arena serves allocations from
// buffer first, falling back to fresh heap blocks once it is exhausted.
// An arena built this way can never be fused with another, since its
// lifetime is tied to a buffer it does not own.
func NewArenaOverBuffer(buffer []byte) *Arena { return &Arena{raw: arena.Init(buffer, nil)} }

// Fuse links a and b's lifetimes so that both stay alive until every
// fused arena has been dropped. Returns false if either arena was built
// with [NewArenaOverBuffer], which can never be fused.
func Fuse(a, b *Arena) bool { return arena.Fuse(a.raw, b.raw) }

// SpaceAllocated returns the total bytes allocated across every arena
// fused into a's group.
func SpaceAllocated(a *Arena) int { return arena.SpaceAllocated(a.raw) }
