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

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/coreproto/minipb/internal/arena"
)

// TestConcurrentFuseConvergesToSingleGroup fuses a star of arenas into one
// hub from many goroutines at once, exercising Fuse's lock-free
// compare-and-swap retry loop under real contention rather than serially.
func TestConcurrentFuseConvergesToSingleGroup(t *testing.T) {
	const n = 32

	hub := arena.New()
	hub.Alloc(64)

	leaves := make([]*arena.Arena, n)
	total := arena.SpaceAllocated(hub)

	for i := range leaves {
		leaves[i] = arena.New()
		leaves[i].Alloc(16 * (i + 1))
		total += arena.SpaceAllocated(leaves[i])
	}

	var g errgroup.Group
	for _, leaf := range leaves {
		leaf := leaf
		g.Go(func() error {
			if !arena.Fuse(hub, leaf) {
				return errFuseRejected
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	// Every arena in the group must now report the same combined total,
	// regardless of which member is used to query it.
	require.Equal(t, total, arena.SpaceAllocated(hub))
	for _, leaf := range leaves {
		require.Equal(t, total, arena.SpaceAllocated(leaf))
	}
}

func TestFuseRejectsInitializedArena(t *testing.T) {
	a := arena.New()
	mapped := arena.Init(make([]byte, 32), nil)
	require.False(t, arena.Fuse(a, mapped))
}

var errFuseRejected = fuseRejectedError{}

type fuseRejectedError struct{}

func (fuseRejectedError) Error() string { return "fuse unexpectedly rejected" }
