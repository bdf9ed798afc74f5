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

// Command minidump is a thin inspector over the minipb package: it decodes
// raw wire bytes against a MiniDescriptor-described schema and prints the
// result as JSON, or disassembles wire bytes to Protoscope text. It
// contains no parsing logic of its own - it reads files with os.ReadFile
// and passes the bytes through minipb.Unmarshal or internal/wiredump.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreproto/minipb"
	"github.com/coreproto/minipb/internal/wiredump"
)

const version = "0.0.1"

func fail(err error) {
	fmt.Fprintln(os.Stderr, "minidump:", err)
	os.Exit(1)
}

func dumpMessage(m *minipb.Message) map[string]any {
	out := map[string]any{}
	for _, f := range m.Type().Fields() {
		if !m.Has(f.Number) && f.HasPresence {
			continue
		}
		key := fmt.Sprintf("%d", f.Number)
		switch f.Mode {
		case minipb.Scalar:
			out[key] = dumpScalar(m, f)
		case minipb.Array:
			arr, ok := m.GetArray(f.Number)
			if !ok {
				continue
			}
			vals := make([]any, arr.Len())
			for i := range vals {
				vals[i] = dumpArrayElem(arr, f, i)
			}
			out[key] = vals
		case minipb.MapField:
			mp, ok := m.GetMap(f.Number)
			if !ok {
				continue
			}
			// Renders string-keyed, string-valued maps; a FieldInfo carries
			// no value-kind of its own, so other map value shapes print as
			// empty strings here rather than risk misreading their bytes.
			entries := map[string]any{}
			mp.RangeString(func(k, v minipb.StringView) bool {
				entries[k.String()] = v.String()
				return true
			})
			out[key] = entries
		}
	}
	if unknown := m.UnknownBytes(); len(unknown) > 0 {
		out["unknown_bytes"] = len(unknown)
	}
	return out
}

func dumpScalar(m *minipb.Message, f minipb.FieldInfo) any {
	switch f.Kind {
	case minipb.KindString, minipb.KindBytes:
		return minipb.GetField[minipb.StringView](m, f.Number).String()
	case minipb.KindMessage, minipb.KindGroup:
		sub, ok := m.GetMessageField(f.Number)
		if !ok {
			return nil
		}
		return dumpMessage(sub)
	case minipb.KindBool:
		return minipb.GetField[byte](m, f.Number) != 0
	case minipb.KindDouble:
		return math.Float64frombits(minipb.GetField[uint64](m, f.Number))
	case minipb.KindFloat:
		return math.Float32frombits(minipb.GetField[uint32](m, f.Number))
	case minipb.KindInt32, minipb.KindSInt32, minipb.KindSFixed32:
		return int32(minipb.GetField[uint32](m, f.Number))
	case minipb.KindInt64, minipb.KindSInt64, minipb.KindSFixed64:
		return int64(minipb.GetField[uint64](m, f.Number))
	case minipb.KindUint32, minipb.KindFixed32, minipb.KindOpenEnum, minipb.KindClosedEnum:
		return minipb.GetField[uint32](m, f.Number)
	default: // KindUint64, KindFixed64
		return minipb.GetField[uint64](m, f.Number)
	}
}

func dumpArrayElem(arr minipb.Array, f minipb.FieldInfo, i int) any {
	switch f.Kind {
	case minipb.KindString, minipb.KindBytes:
		return arr.String(i).String()
	case minipb.KindMessage, minipb.KindGroup:
		return dumpMessage(arr.Message(i))
	case minipb.KindBool:
		return arr.Bool(i)
	case minipb.KindDouble, minipb.KindFixed64, minipb.KindSFixed64,
		minipb.KindInt64, minipb.KindUint64, minipb.KindSInt64:
		return arr.Uint64(i)
	default:
		return arr.Uint32(i)
	}
}

func runDump(cmd *cobra.Command, args []string) {
	descPath, _ := cmd.Flags().GetString("desc")
	descBytes, err := os.ReadFile(descPath)
	if err != nil {
		fail(err)
	}
	typ, err := minipb.NewType(string(descBytes))
	if err != nil {
		fail(err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fail(err)
	}

	msg, perr := minipb.Unmarshal(data, typ, minipb.DecodeOptions(0))
	if perr != nil {
		fail(perr)
	}

	out, err := json.MarshalIndent(dumpMessage(msg), "", "\t")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

func runWiredump(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fail(err)
	}
	fmt.Println(wiredump.Disassemble(data))
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "minidump",
		Short: "A MiniTable-driven protobuf wire inspector",
		Long:  "minidump decodes and disassembles raw protobuf wire bytes without a descriptor.proto-based compiler.",
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <wire-bytes-file>",
		Short: "Decode wire bytes against a MiniDescriptor and print JSON",
		Args:  cobra.ExactArgs(1),
		Run:   runDump,
	}
	dumpCmd.Flags().String("desc", "", "path to a base-92 MiniDescriptor file describing the message type")
	dumpCmd.MarkFlagRequired("desc")

	wiredumpCmd := &cobra.Command{
		Use:   "wiredump <wire-bytes-file>",
		Short: "Disassemble wire bytes to Protoscope text",
		Args:  cobra.ExactArgs(1),
		Run:   runWiredump,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the module version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("minidump version", version)
		},
	}

	rootCmd.AddCommand(dumpCmd, wiredumpCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
