// Copyright 2025 BINARY Members
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

package filter

import (
	"encoding/binary"
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is a bloom filter over machine addresses.  A miss proves the
// address was never added since the last Reset, so the caller can skip a
// hash-table probe.  Slots store a generation number instead of a bit,
// which makes Reset O(1).
type Filter struct {
	slots []uint32
	seeds []uint32
	gen   uint32
	m     int
}

// New creates a Filter sized for n expected addresses at false-positive
// rate p.
// m = -(n * ln(p)) / (ln(2)^2)
// k = (m/n) * ln(2)
func New(n int, p float64) *Filter {
	m := int(math.Ceil(-float64(n) * math.Log(p) / math.Pow(math.Log(2), 2)))
	k := int(math.Round((float64(m) / float64(n)) * math.Log(2)))
	if k < 1 {
		k = 1
	}

	seeds := make([]uint32, k)
	for i := range k {
		seeds[i] = uint32(i)
	}

	return &Filter{
		slots: make([]uint32, m),
		seeds: seeds,
		gen:   1,
		m:     m,
	}
}

// Add marks an address as present.
func (f *Filter) Add(addr uintptr) {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(addr))
	for _, seed := range f.seeds {
		index := int(murmur3.Sum32WithSeed(key[:], seed)) % f.m
		if index < 0 {
			index += f.m
		}
		f.slots[index] = f.gen
	}
}

// Contains reports whether addr may have been added.  False means
// definitely absent.
func (f *Filter) Contains(addr uintptr) bool {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uint64(addr))
	for _, seed := range f.seeds {
		index := int(murmur3.Sum32WithSeed(key[:], seed)) % f.m
		if index < 0 {
			index += f.m
		}
		if f.slots[index] != f.gen {
			return false
		}
	}
	return true
}

// Reset empties the filter by bumping the generation.
func (f *Filter) Reset() {
	f.gen++
	if f.gen == 0 {
		clear(f.slots)
		f.gen = 1
	}
}
