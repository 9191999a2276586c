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

package quadmap

import "github.com/cockroachdb/errors"

var (
	// ErrTableFull is returned by Map.Put when the probe sequence for a key
	// is exhausted without finding an empty slot or a tombstone. Quadratic
	// probing over a prime capacity visits only about half of the slots, so
	// this can happen at high load factors even though free slots remain.
	ErrTableFull = errors.New("quadmap: probe sequence exhausted")

	// ErrInvalidConfig is returned by New for a non-positive initial
	// capacity or a load factor outside of (0,1).
	ErrInvalidConfig = errors.New("quadmap: invalid configuration")
)
