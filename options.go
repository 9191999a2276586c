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

import "go.uber.org/zap"

// option provide an interface to do work on Map while it is being created.
type option interface {
	apply(m *Map)
}

type loadFactorOption struct {
	loadFactor float64
}

func (op loadFactorOption) apply(m *Map) {
	m.loadFactor = op.loadFactor
}

// WithLoadFactor is an option to specify the fraction of occupied slots at
// which the Map grows. It must lie in the open interval (0,1). The default
// is 0.8.
func WithLoadFactor(loadFactor float64) option {
	return loadFactorOption{loadFactor}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Map. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots be
// freed then Map.Close must be called in order to ensure Free is called.
type Allocator interface {
	// Alloc should return a slice equivalent to make([]Slot, n).
	Alloc(n int) []Slot

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc.
	Free(v []Slot)
}

type defaultAllocator struct{}

func (defaultAllocator) Alloc(n int) []Slot {
	return make([]Slot, n)
}

func (defaultAllocator) Free(v []Slot) {
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(m *Map) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map.
func WithAllocator(allocator Allocator) option {
	return allocatorOption{allocator}
}

type loggerOption struct {
	logger *zap.Logger
}

func (op loggerOption) apply(m *Map) {
	if op.logger != nil {
		m.logger = op.logger
	}
}

// WithLogger is an option to specify the logger a Map reports resizes and
// probe exhaustion to. By default nothing is logged.
func WithLogger(logger *zap.Logger) option {
	return loggerOption{logger}
}
