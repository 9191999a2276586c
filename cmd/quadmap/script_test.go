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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/quadmap"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeScript(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "script.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestRunDemo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(&buf, demoScript, zap.NewNop()))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "Insert 1:\n[0]: (empty)\n[1]: 1=1\n"), out)
	// 15 collides with 1 and lands in slot 2, which is a tombstone once it is
	// removed.
	require.Contains(t, out, "Remove 15:\n"+
		"[0]: (empty)\n"+
		"[1]: 1=1\n"+
		"[2]: (deleted)\n"+
		"[3]: (empty)\n"+
		"[4]: 25=25\n"+
		"[5]: (empty)\n"+
		"[6]: 6=6\n\n")
	// 29 also collides with 1 and reuses the tombstone.
	require.True(t, strings.HasSuffix(out, "Insert 29:\n"+
		"[0]: (empty)\n"+
		"[1]: 1=1\n"+
		"[2]: 29=29\n"+
		"[3]: (empty)\n"+
		"[4]: 25=25\n"+
		"[5]: (empty)\n"+
		"[6]: 6=6\n\n"+
		"Search 22: not found\n"), out)
}

func TestLoadScript(t *testing.T) {
	path := writeScript(t, `
initial-capacity = 3
load-factor = 0.5

[[op]]
kind = "insert"
key = 4
value = 40

[[op]]
kind = "search"
key = 4

[[op]]
kind = "remove"
key = 5

[[op]]
kind = "insert"
key = 5
value = 50

[[op]]
kind = "print"
`)
	s, err := loadScript(path)
	require.NoError(t, err)
	require.Equal(t, 3, s.InitialCapacity)
	require.Equal(t, 0.5, s.LoadFactor)
	require.Len(t, s.Ops, 5)
	require.Equal(t, op{Kind: "insert", Key: 5, Value: 50}, s.Ops[3])

	core, logs := observer.New(zap.DebugLevel)
	var buf bytes.Buffer
	require.NoError(t, run(&buf, s, zap.New(core)))
	out := buf.String()
	require.Contains(t, out, "Search 4: found 40\n")
	require.Contains(t, out, "Remove 5: not found\n")
	// 3 slots at a load factor of 0.5 grows to 7 on the second insert.
	require.True(t, strings.HasSuffix(out, "[6]: (empty)\n\n"), out)
	require.Equal(t, 1, logs.FilterMessage("resize").Len())
	require.Equal(t, 5, logs.FilterMessage("op").Len())
}

func TestLoadScriptDefaults(t *testing.T) {
	s, err := loadScript(writeScript(t, `
[[op]]
kind = "print"
`))
	require.NoError(t, err)
	require.Equal(t, defaultInitialCapacity, s.InitialCapacity)
	require.Equal(t, defaultLoadFactor, s.LoadFactor)
}

func TestLoadScriptErrors(t *testing.T) {
	testCases := []struct {
		contents string
		expected string
	}{
		{"initial-capacity = \"seven\"", "decoding"},
		{"capacity = 7", "unknown keys: capacity"},
		{"[[op]]\nkind = \"upsert\"", `op 0: unknown kind "upsert"`},
		{"[[op]]\nkind = \"insert\"\nvalu = 1", "unknown keys: op.valu"},
	}
	for _, c := range testCases {
		t.Run(c.expected, func(t *testing.T) {
			_, err := loadScript(writeScript(t, c.contents))
			require.Error(t, err)
			require.Contains(t, err.Error(), c.expected)
		})
	}

	_, err := loadScript(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestRunErrors(t *testing.T) {
	err := run(&bytes.Buffer{}, script{InitialCapacity: 7, LoadFactor: 1.5}, zap.NewNop())
	require.True(t, errors.Is(err, quadmap.ErrInvalidConfig), "%v", err)

	err = run(&bytes.Buffer{}, script{
		InitialCapacity: 7,
		LoadFactor:      0.99,
		Ops: []op{
			{Kind: "insert", Key: 0},
			{Kind: "insert", Key: 1},
			{Kind: "insert", Key: 2},
			{Kind: "insert", Key: 4},
			{Kind: "insert", Key: 7},
		},
	}, zap.NewNop())
	require.True(t, errors.Is(err, quadmap.ErrTableFull), "%v", err)
	require.Contains(t, err.Error(), "op 4: insert 7")

	err = run(&bytes.Buffer{}, script{
		InitialCapacity: 7,
		LoadFactor:      0.8,
		Ops:             []op{{Kind: "bogus"}},
	}, zap.NewNop())
	require.Error(t, err)
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quadmap.log")
	logger := newLogger(path, true)
	logger.Debug("resize", zap.Int("new-capacity", 17))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "resize")
	require.Contains(t, string(data), "new-capacity")

	quiet := newLogger(filepath.Join(t.TempDir(), "quiet.log"), false)
	require.False(t, quiet.Core().Enabled(zap.DebugLevel))
	require.True(t, quiet.Core().Enabled(zap.InfoLevel))
}
