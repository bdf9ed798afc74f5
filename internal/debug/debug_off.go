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

//go:build !debug

// Package debug includes debugging helpers used throughout the runtime's
// hot paths. It is compiled in only under the "debug" build tag, so that
// release builds pay nothing for it.
package debug

// Enabled is false in release builds. Code that guards expensive
// self-checks with this constant is compiled away entirely.
const Enabled = false

// Log is a no-op in release builds.
func Log([]any, string, string, ...any) {}

// Assert is a no-op in release builds.
func Assert(bool, string, ...any) {}

// Value is an empty placeholder in release builds.
type Value[T any] struct{}

// Get panics: debug values do not exist outside of debug builds.
func (v *Value[T]) Get() *T {
	panic("minipb: debug.Value accessed outside of a debug build")
}
