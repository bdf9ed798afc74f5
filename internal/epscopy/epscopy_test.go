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

package epscopy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreproto/minipb/internal/arena"
	"github.com/coreproto/minipb/internal/epscopy"
)

func TestPushPopLimit(t *testing.T) {
	buf := []byte("hello world")
	s := epscopy.New(buf, true)

	require.False(t, s.Done(0))
	saved, ok := s.PushLimit(0, 5)
	require.True(t, ok)
	require.True(t, s.Done(5))
	require.False(t, s.Done(4))

	s.PopLimit(saved)
	require.False(t, s.Done(5))
	require.True(t, s.Done(len(buf)))
}

func TestPushLimitRejectsOverrun(t *testing.T) {
	buf := []byte("short")
	s := epscopy.New(buf, true)
	_, ok := s.PushLimit(0, 100)
	require.False(t, ok)
}

func TestReadStringAliasesInputWhenEnabled(t *testing.T) {
	buf := []byte("hello world")
	s := epscopy.New(buf, true)
	a := arena.New()

	sv, ok := s.ReadString(0, 5, a)
	require.True(t, ok)
	require.Equal(t, "hello", sv.String())
}

func TestReadStringCopiesWhenAliasingDisabled(t *testing.T) {
	buf := []byte("hello world")
	s := epscopy.New(buf, false)
	a := arena.New()

	sv, ok := s.ReadString(6, 5, a)
	require.True(t, ok)
	require.Equal(t, "world", sv.String())
}

func TestReadStringRejectsOutOfRange(t *testing.T) {
	buf := []byte("hi")
	s := epscopy.New(buf, true)
	a := arena.New()

	_, ok := s.ReadString(0, 10, a)
	require.False(t, ok)
}

func TestBytesAndRest(t *testing.T) {
	buf := []byte("0123456789")
	s := epscopy.New(buf, true)

	b, ok := s.Bytes(2, 3)
	require.True(t, ok)
	require.Equal(t, []byte("234"), b)

	require.Equal(t, []byte("456789"), s.Rest(4))
}
