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

// Package fixture loads wire-format test cases from YAML files, the same
// shape the corpus uses for its own hex/textproto/protoscope test corpus,
// but scoped down to the one encoding this module understands natively.
package fixture

import (
	"embed"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed testdata/*.yaml
var testdata embed.FS

// Case is one named test vector: a schema-agnostic snippet of Protoscope
// text describing a message's wire bytes, plus what a decoder is expected
// to observe after parsing it.
type Case struct {
	Name string `yaml:"name"`

	// Protoscope is assembled to raw wire bytes before decoding.
	Protoscope string `yaml:"protoscope"`

	// WantFieldPresent lists field numbers the decoded message must report
	// present via Has.
	WantFieldPresent []uint32 `yaml:"want_field_present"`

	// WantUnknown is true if the decode is expected to leave unparsed
	// trailing bytes behind (an unrecognized field number).
	WantUnknown bool `yaml:"want_unknown"`
}

type document struct {
	Cases []Case `yaml:"cases"`
}

// Load reads every *.yaml file embedded under testdata/ and returns their
// cases concatenated, sorted by file name for determinism.
func Load() ([]Case, error) {
	var names []string
	err := fs.WalkDir(testdata, "testdata", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path.Ext(p) == ".yaml" {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var out []Case
	for _, name := range names {
		raw, err := testdata.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var doc document
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		out = append(out, doc.Cases...)
	}
	return out, nil
}
