// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/quadmap"
	"go.uber.org/zap"
)

const (
	defaultInitialCapacity = 7
	defaultLoadFactor      = 0.8
)

// script is a sequence of operations to replay against a fresh map. It is
// decoded from TOML:
//
//	initial-capacity = 7
//	load-factor = 0.8
//
//	[[op]]
//	kind = "insert"
//	key = 1
//	value = 10
type script struct {
	InitialCapacity int     `toml:"initial-capacity"`
	LoadFactor      float64 `toml:"load-factor"`
	Ops             []op    `toml:"op"`
}

type op struct {
	// Kind is one of insert, search, remove or print.
	Kind  string `toml:"kind"`
	Key   int    `toml:"key"`
	Value int    `toml:"value"`
}

// demoScript is run when no script file is given.
var demoScript = script{
	InitialCapacity: defaultInitialCapacity,
	LoadFactor:      defaultLoadFactor,
	Ops: []op{
		{Kind: "insert", Key: 1, Value: 1},
		{Kind: "insert", Key: 6, Value: 6},
		{Kind: "insert", Key: 15, Value: 15},
		{Kind: "insert", Key: 25, Value: 25},
		{Kind: "remove", Key: 15},
		{Kind: "insert", Key: 29, Value: 29},
		{Kind: "search", Key: 22},
	},
}

func loadScript(path string) (script, error) {
	var s script
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return script{}, errors.Wrapf(err, "decoding %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return script{}, errors.Newf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !md.IsDefined("initial-capacity") {
		s.InitialCapacity = defaultInitialCapacity
	}
	if !md.IsDefined("load-factor") {
		s.LoadFactor = defaultLoadFactor
	}
	for i, o := range s.Ops {
		switch o.Kind {
		case "insert", "search", "remove", "print":
		default:
			return script{}, errors.Newf("%s: op %d: unknown kind %q", path, i, o.Kind)
		}
	}
	return s, nil
}

// run replays s against a new map, writing the table to w after every
// mutation.
func run(w io.Writer, s script, logger *zap.Logger) error {
	m, err := quadmap.New(s.InitialCapacity,
		quadmap.WithLoadFactor(s.LoadFactor),
		quadmap.WithLogger(logger))
	if err != nil {
		return err
	}
	defer m.Close()

	for i, o := range s.Ops {
		switch o.Kind {
		case "insert":
			if err := m.Put(o.Key, o.Value); err != nil {
				return errors.Wrapf(err, "op %d: insert %d", i, o.Key)
			}
			fmt.Fprintf(w, "Insert %d:\n", o.Key)
			printTable(w, m)
		case "search":
			if v, ok := m.Get(o.Key); ok {
				fmt.Fprintf(w, "Search %d: found %d\n", o.Key, v)
			} else {
				fmt.Fprintf(w, "Search %d: not found\n", o.Key)
			}
		case "remove":
			if m.Delete(o.Key) {
				fmt.Fprintf(w, "Remove %d:\n", o.Key)
				printTable(w, m)
			} else {
				fmt.Fprintf(w, "Remove %d: not found\n", o.Key)
			}
		case "print":
			printTable(w, m)
		default:
			return errors.Newf("op %d: unknown kind %q", i, o.Kind)
		}
		logger.Debug("op",
			zap.Int("index", i),
			zap.String("kind", o.Kind),
			zap.Int("key", o.Key),
			zap.Int("len", m.Len()),
			zap.Int("capacity", m.Capacity()))
	}
	return nil
}

// printTable writes one line per slot followed by a blank line.
func printTable(w io.Writer, m *quadmap.Map) {
	m.Slots(func(i int, state quadmap.SlotState, key, value int) bool {
		switch state {
		case quadmap.Empty:
			fmt.Fprintf(w, "[%d]: (empty)\n", i)
		case quadmap.Tombstone:
			fmt.Fprintf(w, "[%d]: (deleted)\n", i)
		default:
			fmt.Fprintf(w, "[%d]: %d=%d\n", i, key, value)
		}
		return true
	})
	fmt.Fprintln(w)
}
