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

// package quadmap is an open-addressing hash map from int keys to int values
// using quadratic probing over a prime sized table. See
// https://en.wikipedia.org/wiki/Quadratic_probing.
//
// # Layout
//
// A Map owns a single array of capacity slots where capacity is always
// prime. Each slot is in one of three states: empty (never used since the
// table was allocated), occupied (holds a live key and value) or a tombstone
// (previously occupied, since deleted). Tombstones are kept non-empty so
// that a probe for a key that was inserted past the deleted slot does not
// terminate early.
//
// # Probing
//
// The home slot of a key is key mod capacity (taken as the non-negative
// residue so negative keys work) and attempt i examines
//
//	p(i) := (home + i^2) mod capacity
//
// for i in [0, capacity). Unlike a power-of-two table with triangular
// probing, this sequence does not visit every slot: for an odd prime p it
// visits exactly (p+1)/2 distinct slots. The walk is therefore bounded at
// capacity attempts and Put reports ErrTableFull if it runs out of
// candidates, rather than spinning forever.
//
// Lookups stop at the first empty slot. Tombstones and occupied slots
// holding other keys continue the walk. Insertion of a new key reuses the
// first tombstone on the key's probe sequence, falling back to the empty
// slot that terminated the walk.
//
// # Growth
//
// Before a new key is added, the Map checks whether (Len()+1)/Capacity()
// would reach the load factor (0.8 by default). If so it allocates a table
// of nextPrime(2*capacity) slots and reinserts every live entry in slot
// order. Tombstones are never carried into the new table, which is what
// bounds their accumulation. Overwriting an existing key never grows the
// table and deleting never shrinks it.
package quadmap

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const defaultLoadFactor = 0.8

// SlotState is the state of a single slot in a Map.
type SlotState uint8

const (
	// Empty slots have not been used since the table was allocated. The zero
	// value of a Slot is empty.
	Empty SlotState = iota
	// Occupied slots hold a live key and value.
	Occupied
	// Tombstone slots held an entry which has since been deleted.
	Tombstone
)

func (s SlotState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Occupied:
		return "occupied"
	case Tombstone:
		return "tombstone"
	default:
		return fmt.Sprintf("SlotState(%d)", uint8(s))
	}
}

// Slot holds a key and value along with the slot's state.
type Slot struct {
	state SlotState
	key   int
	value int
}

// Map is an unordered map from int keys to int values with Put, Get, Delete,
// and All operations.
//
// A Map is NOT goroutine-safe. Resizing rewrites the whole table, so a Map
// shared between goroutines must be guarded by a single mutex around every
// call.
type Map struct {
	// slots is capacity in length.
	slots []Slot
	// The total number of slots. Always prime.
	capacity int
	// The number of occupied slots (i.e. the number of elements in the map).
	used int
	// The number of tombstone slots. Reset to zero on every resize.
	tombstones int
	// loadFactor is the occupancy at which a new key triggers a resize.
	loadFactor float64
	// The allocator to use for the slots slice.
	allocator Allocator
	logger    *zap.Logger
}

// New constructs a new Map with room for at least initialCapacity slots. The
// capacity is rounded up to the next prime. An error wrapping
// ErrInvalidConfig is returned if initialCapacity is not positive or the load
// factor does not lie in (0,1).
func New(initialCapacity int, options ...option) (*Map, error) {
	m := &Map{
		loadFactor: defaultLoadFactor,
		allocator:  defaultAllocator{},
		logger:     zap.NewNop(),
	}

	for _, op := range options {
		op.apply(m)
	}

	if initialCapacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig,
			"initial capacity %d must be positive", initialCapacity)
	}
	// NB: written so that NaN is rejected as well.
	if !(m.loadFactor > 0 && m.loadFactor < 1) {
		return nil, errors.Wrapf(ErrInvalidConfig,
			"load factor %v must lie in (0,1)", m.loadFactor)
	}
	if m.allocator == nil {
		m.allocator = defaultAllocator{}
	}

	m.capacity = nextPrime(initialCapacity)
	m.slots = m.alloc(m.capacity)
	m.checkInvariants()
	return m, nil
}

// Close closes the map, releasing any memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator. It
// is invalid to use a Map after it has been closed, though Close itself is
// idempotent.
func (m *Map) Close() {
	if m.slots != nil {
		m.allocator.Free(m.slots)
	}
	m.slots = nil
	m.capacity = 0
	m.used = 0
	m.tombstones = 0
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists. An error wrapping ErrTableFull is
// returned if the key's probe sequence holds neither an empty slot nor a
// tombstone, in which case the map is unchanged.
func (m *Map) Put(key, value int) error {
	i, found := m.find(key)
	if found {
		m.slots[i].value = value
		m.checkInvariants()
		return nil
	}

	// The growth check happens exactly once per Put and never during the
	// reinsertion performed by resize.
	if m.needsGrow() {
		if err := m.resize(m.growthCapacity()); err != nil {
			return err
		}
		if !m.uncheckedPut(key, value) {
			// A freshly grown table is at most half full and holds no
			// tombstones.
			return errors.WithAssertionFailure(m.tableFull(key))
		}
		m.checkInvariants()
		return nil
	}

	if i < 0 {
		return m.tableFull(key)
	}
	m.set(i, key, value)
	m.checkInvariants()
	return nil
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map) Get(key int) (value int, ok bool) {
	i, found := m.find(key)
	if !found {
		return 0, false
	}
	return m.slots[i].value, true
}

// Delete deletes the entry corresponding to the specified key from the map,
// leaving a tombstone in its slot. It returns false, and does nothing, if the
// key is not present.
func (m *Map) Delete(key int) bool {
	i, found := m.find(key)
	if !found {
		return false
	}
	m.slots[i] = Slot{state: Tombstone}
	m.used--
	m.tombstones++
	m.checkInvariants()
	return true
}

// Clear deletes all entries from the map resulting in an empty map. The
// capacity is retained and no tombstones are left behind.
func (m *Map) Clear() {
	clear(m.slots)
	m.used = 0
	m.tombstones = 0
	m.checkInvariants()
}

// All calls yield sequentially for each key and value present in the map, in
// slot order. If yield returns false, All stops the iteration. The map can be
// mutated during iteration, though there is no guarantee that the mutations
// will be visible to the iteration.
func (m *Map) All(yield func(key, value int) bool) {
	// Snapshot the slots so that iteration remains valid if the map is
	// resized during iteration.
	slots := m.slots
	for i := range slots {
		if s := &slots[i]; s.state == Occupied {
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}

// Slots calls yield sequentially for every slot in the table, including
// empty slots and tombstones. The key and value are zero unless the slot is
// occupied. If yield returns false, Slots stops the iteration.
func (m *Map) Slots(yield func(index int, state SlotState, key, value int) bool) {
	slots := m.slots
	for i := range slots {
		s := &slots[i]
		if !yield(i, s.state, s.key, s.value) {
			return
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	return m.used
}

// Capacity returns the number of slots in the table. It is always prime.
func (m *Map) Capacity() int {
	return m.capacity
}

// LoadFactor returns the occupancy at which the map grows.
func (m *Map) LoadFactor() float64 {
	return m.loadFactor
}

// Tombstones returns the number of deleted slots that have not been reused
// or dropped by a resize.
func (m *Map) Tombstones() int {
	return m.tombstones
}

// find walks the probe sequence for key. If the key is present, found is
// true and i is the index of its slot. Otherwise i is the slot a new entry
// for key belongs in: the first tombstone on the sequence if there is one,
// else the empty slot which ended the walk. i is -1 if the sequence was
// exhausted without seeing either.
func (m *Map) find(key int) (i int, found bool) {
	i = -1
	for seq := makeProbeSeq(key, m.capacity); seq.index < m.capacity; seq = seq.next() {
		s := &m.slots[seq.offset]
		switch s.state {
		case Empty:
			if i < 0 {
				i = seq.offset
			}
			return i, false
		case Tombstone:
			if i < 0 {
				i = seq.offset
			}
		default:
			if s.key == key {
				return seq.offset, true
			}
		}
	}
	return i, false
}

// set stores key and value at index i, which must not be occupied.
func (m *Map) set(i int, key, value int) {
	s := &m.slots[i]
	if s.state == Tombstone {
		m.tombstones--
	}
	*s = Slot{state: Occupied, key: key, value: value}
	m.used++
}

// uncheckedPut inserts an entry known not to be in the table into the first
// non-occupied slot of its probe sequence. Used by resize and by Put after a
// resize. Returns false if the probe sequence is exhausted.
func (m *Map) uncheckedPut(key, value int) bool {
	for seq := makeProbeSeq(key, m.capacity); seq.index < m.capacity; seq = seq.next() {
		if m.slots[seq.offset].state != Occupied {
			m.set(seq.offset, key, value)
			return true
		}
	}
	return false
}

// needsGrow returns true if adding one more entry would bring the map to its
// load factor.
func (m *Map) needsGrow() bool {
	return float64(m.used+1)/float64(m.capacity) >= m.loadFactor
}

// growthCapacity returns nextPrime(2*capacity), doubled again for as long as
// one more entry would still reach the load factor. Only very small tables
// with low load factors need more than one doubling.
func (m *Map) growthCapacity() int {
	newCapacity := nextPrime(2 * m.capacity)
	for float64(m.used+1)/float64(newCapacity) >= m.loadFactor {
		newCapacity = nextPrime(2 * newCapacity)
	}
	return newCapacity
}

// resize allocates a table of newCapacity slots, uncheckedPutting each live
// entry of the current table into it in slot order (we know no insertion
// here will Put an already-present key), and discards the old backing array
// along with its tombstones. If an entry cannot be placed the old table is
// restored and an assertion failure is returned.
func (m *Map) resize(newCapacity int) error {
	oldSlots := m.slots
	oldCapacity, oldUsed, oldTombstones := m.capacity, m.used, m.tombstones

	m.slots = m.alloc(newCapacity)
	m.capacity = newCapacity
	m.used = 0
	m.tombstones = 0

	for i := range oldSlots {
		s := &oldSlots[i]
		if s.state != Occupied {
			continue
		}
		if !m.uncheckedPut(s.key, s.value) {
			m.allocator.Free(m.slots)
			m.slots = oldSlots
			m.capacity, m.used, m.tombstones = oldCapacity, oldUsed, oldTombstones
			return errors.AssertionFailedf(
				"quadmap: resize %d->%d: probe sequence for key %d exhausted",
				oldCapacity, newCapacity, s.key)
		}
	}

	m.allocator.Free(oldSlots)
	m.logger.Debug("resize",
		zap.Int("old-capacity", oldCapacity),
		zap.Int("new-capacity", newCapacity),
		zap.Int("len", m.used),
		zap.Int("dropped-tombstones", oldTombstones))

	m.checkInvariants()
	return nil
}

func (m *Map) alloc(n int) []Slot {
	slots := m.allocator.Alloc(n)[:n]
	// An allocator may hand back recycled memory.
	clear(slots)
	return slots
}

func (m *Map) tableFull(key int) error {
	m.logger.Warn("probe sequence exhausted",
		zap.Int("key", key),
		zap.Int("capacity", m.capacity),
		zap.Int("len", m.used),
		zap.Int("tombstones", m.tombstones))
	return errors.Wrapf(ErrTableFull, "key %d, capacity %d", key, m.capacity)
}

func (m *Map) checkInvariants() {
	if invariants {
		if !isPrime(m.capacity) {
			panic(fmt.Sprintf("invariant failed: capacity %d is not prime", m.capacity))
		}
		if len(m.slots) != m.capacity {
			panic(fmt.Sprintf("invariant failed: %d slots, but capacity is %d", len(m.slots), m.capacity))
		}

		// For every occupied slot, verify we can retrieve the key using find
		// and that no key appears twice. Count the number of used and deleted
		// slots.
		seen := make(map[int]int, m.used)
		var used int
		var deleted int
		for i := range m.slots {
			s := &m.slots[i]
			switch s.state {
			case Empty:
			case Tombstone:
				deleted++
			case Occupied:
				if j, ok := seen[s.key]; ok {
					panic(fmt.Sprintf("invariant failed: key %d in slots %d and %d\n%s",
						s.key, j, i, m.debugString()))
				}
				seen[s.key] = i
				if j, found := m.find(s.key); !found || j != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %d not found\n%s",
						i, s.key, m.debugString()))
				}
				used++
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): unexpected state %s", i, s.state))
			}
		}

		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
		if deleted != m.tombstones {
			panic(fmt.Sprintf("invariant failed: found %d tombstones, but tombstone count is %d\n%s",
				deleted, m.tombstones, m.debugString()))
		}
		if float64(m.used)/float64(m.capacity) >= m.loadFactor {
			panic(fmt.Sprintf("invariant failed: %d/%d slots used exceeds load factor %v",
				m.used, m.capacity, m.loadFactor))
		}
	}
}

func (m *Map) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  tombstones=%d\n", m.capacity, m.used, m.tombstones)
	for i := range m.slots {
		switch s := &m.slots[i]; s.state {
		case Occupied:
			fmt.Fprintf(&buf, "  %4d: %d=%d [home=%d]\n", i, s.key, s.value,
				makeProbeSeq(s.key, m.capacity).offset)
		default:
			fmt.Fprintf(&buf, "  %4d: %s\n", i, s.state)
		}
	}
	return buf.String()
}

// probeSeq maintains the state for a probe sequence. The sequence is the
// quadratic progression
//
//	p(i) := (key mod capacity + i^2) mod capacity
//
// computed incrementally as p(i) = p(i-1) + 2i - 1 so that i^2 never
// overflows. Callers stop once index reaches capacity. For a prime capacity
// the sequence only visits about half of the slots, repeating itself after
// (capacity+1)/2 steps.
type probeSeq struct {
	capacity int
	offset   int
	index    int
}

func makeProbeSeq(key, capacity int) probeSeq {
	home := key % capacity
	if home < 0 {
		home += capacity
	}
	return probeSeq{
		capacity: capacity,
		offset:   home,
		index:    0,
	}
}

func (s probeSeq) next() probeSeq {
	s.index++
	s.offset = (s.offset + 2*s.index - 1) % s.capacity
	return s
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d offset=%d index=%d", s.capacity, s.offset, s.index)
}
