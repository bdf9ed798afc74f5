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

package wireerr_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/wireerr"
)

func TestNewCarriesStatusAndOffset(t *testing.T) {
	err := wireerr.New(wireerr.StatusBadUTF8, 17)
	require.Equal(t, wireerr.StatusBadUTF8, err.Status)
	require.Equal(t, 17, err.Offset)
}

func TestErrorMessageIncludesOffset(t *testing.T) {
	err := wireerr.New(wireerr.StatusMaxDepth, 3)
	require.Contains(t, err.Error(), "3")
	require.Contains(t, err.Error(), wireerr.StatusMaxDepth.String())
}

func TestUnwrapSupportsErrorsIs(t *testing.T) {
	err := wireerr.New(wireerr.StatusTruncated, 0)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestStatusStringCoversEveryStatus(t *testing.T) {
	for s := wireerr.StatusOK; s <= wireerr.StatusUnlinkedSubMessage; s++ {
		require.NotEqual(t, "unknown error", s.String(), "status %d missing from String()", s)
	}
}
