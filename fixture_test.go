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
	"github.com/coreproto/minipb/internal/fixture"
	"github.com/coreproto/minipb/internal/wiredump"
)

// TestFixtureCorpus decodes the YAML-described Protoscope corpus against the
// same scalar schema used throughout this package's other tests, the way
// the pack's own YAML-driven test runners load cases before parsing them.
func TestFixtureCorpus(t *testing.T) {
	cases, err := fixture.Load()
	require.NoError(t, err)
	require.NotEmpty(t, cases)

	typ := buildScalarType(t)

	for _, c := range cases {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			wire, err := wiredump.Assemble(c.Protoscope)
			require.NoError(t, err, "assembling protoscope for %q", c.Name)

			m, perr := minipb.Unmarshal(wire, typ, 0)
			require.Nil(t, perr)

			for _, n := range c.WantFieldPresent {
				require.True(t, m.Has(n), "field %d should be present in %q", n, c.Name)
			}
			require.Equal(t, c.WantUnknown, len(m.UnknownBytes()) > 0, "unknown-bytes mismatch in %q", c.Name)
		})
	}
}
