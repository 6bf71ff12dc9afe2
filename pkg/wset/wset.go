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

package wset

import (
	"math/bits"
	"unsafe"

	"github.com/B1NARY-GR0UP/argentum/pkg/filter"
)

// FullMask selects every byte of a word.
const FullMask = ^uintptr(0)

// Entry is one buffered word write.  Mask selects the valid bytes of Val;
// a full mask is a whole-word store.  Entry doubles as the element type of
// undo and value logs, which need the same (address, word, mask) triple.
type Entry struct {
	Addr *uintptr
	Val  uintptr
	Mask uintptr
}

// Merge folds a later write to the same word into this entry, byte-wise.
// Coalescing repeated writes here is what makes intermediate values
// unobservable by other transactions.
func (e *Entry) Merge(val, mask uintptr) {
	e.Val = (e.Val &^ mask) | (val & mask)
	e.Mask |= mask
}

// WriteTo applies the entry to memory.  Partial masks read-modify-write the
// untouched bytes.
func (e *Entry) WriteTo() {
	if e.Mask == FullMask {
		*e.Addr = e.Val
		return
	}
	*e.Addr = (*e.Addr &^ e.Mask) | (e.Val & e.Mask)
}

type slot struct {
	version uint64
	addr    *uintptr
	index   int
}

// WriteSet is the redo log: a dense vector of entries with an
// open-addressed hash index on top.  The index clears in O(1) by bumping a
// version counter; a slot is live only while its stored version matches.
// A bloom filter in front of the index answers the common "no RAW hazard"
// read-barrier query without probing.
type WriteSet struct {
	index   []slot
	shift   uint
	version uint64

	list []Entry
	size int

	raw *filter.Filter
}

// Knuth multiplicative hash constant for the word size.
const _hashMagic = 0x9E3779B97F4A782F

const (
	_loadFactor = 3
	_rawFilterP = 0.02
)

func New(capacity int) *WriteSet {
	w := &WriteSet{
		shift:   uint(bits.UintSize),
		version: 1,
		list:    make([]Entry, capacity),
		raw:     filter.New(capacity, _rawFilterP),
	}
	for w.indexLen() < _loadFactor*capacity {
		w.shift--
	}
	w.index = make([]slot, w.indexLen())
	return w
}

func (w *WriteSet) indexLen() int {
	if w.shift >= uint(bits.UintSize) {
		return 1
	}
	return 1 << (uint(bits.UintSize) - w.shift)
}

func (w *WriteSet) hash(addr *uintptr) int {
	return int(uintptr(_hashMagic) * uintptr(unsafe.Pointer(addr)) >> w.shift)
}

// Size is the number of distinct words buffered; zero identifies a
// read-only transaction.
func (w *WriteSet) Size() int {
	return w.size
}

// Entries is the live log in insertion order; invalid after Reset.
func (w *WriteSet) Entries() []Entry {
	return w.list[:w.size]
}

// Find looks up a buffered write for the read-after-write check.  The
// returned mask is zero on a miss; on a hit it tells which bytes of val
// are valid.
func (w *WriteSet) Find(addr *uintptr) (val, mask uintptr) {
	if !w.raw.Contains(uintptr(unsafe.Pointer(addr))) {
		return 0, 0
	}
	h := w.hash(addr)
	for ; w.index[h].version == w.version; h = (h + 1) % len(w.index) {
		if w.index[h].addr == addr {
			e := &w.list[w.index[h].index]
			return e.Val, e.Mask
		}
	}
	return 0, 0
}

// Insert buffers a masked write, coalescing with any previous write to the
// same word.
func (w *WriteSet) Insert(addr *uintptr, val, mask uintptr) {
	h := w.hash(addr)
	for ; w.index[h].version == w.version; h = (h + 1) % len(w.index) {
		if w.index[h].addr == addr {
			w.list[w.index[h].index].Merge(val, mask)
			return
		}
	}
	w.insertAtEnd(addr, val, mask, h)
}

func (w *WriteSet) insertAtEnd(addr *uintptr, val, mask uintptr, h int) {
	if w.size == len(w.list) {
		next := make([]Entry, 2*len(w.list))
		copy(next, w.list)
		w.list = next
	}
	w.list[w.size] = Entry{Addr: addr, Val: val, Mask: mask}

	w.index[h] = slot{version: w.version, addr: addr, index: w.size}
	w.raw.Add(uintptr(unsafe.Pointer(addr)))
	w.size++

	if len(w.index) < _loadFactor*w.size {
		w.rebuild()
	}
}

// rebuild doubles the index and rehashes the live list.
func (w *WriteSet) rebuild() {
	w.shift--
	w.index = make([]slot, w.indexLen())
	for i := range w.size {
		h := w.hash(w.list[i].Addr)
		for w.index[h].version == w.version {
			h = (h + 1) % len(w.index)
		}
		w.index[h] = slot{version: w.version, addr: w.list[i].Addr, index: i}
	}
}

// Redo applies the log to memory in insertion order.
func (w *WriteSet) Redo() {
	for i := range w.size {
		w.list[i].WriteTo()
	}
}

// RedoProtected applies the log but skips words inside [lo, hi), the
// address range of an object the caller must not clobber (e.g. an
// exception payload in flight during rollback).
func (w *WriteSet) RedoProtected(lo, hi uintptr) {
	for i := range w.size {
		a := uintptr(unsafe.Pointer(w.list[i].Addr))
		if a >= lo && a < hi {
			continue
		}
		w.list[i].WriteTo()
	}
}

// Reset empties the set in O(1).
func (w *WriteSet) Reset() {
	w.size = 0
	w.raw.Reset()
	w.version++
	if w.version == 0 {
		clear(w.index)
		w.version = 1
	}
}
