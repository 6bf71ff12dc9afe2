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

// Package epoch buffers transactional allocation so that a doomed
// transaction can never touch memory that has already been recycled.
//
// Every thread publishes an epoch counter that is odd while the thread is
// inside a transaction.  Blocks freed at commit gather in a pre-limbo
// buffer; when it fills, the buffer is stamped with a snapshot of all
// epochs and parked in a limbo queue.  A limbo generation is recycled only
// once every thread has either left the transaction it was in at snapshot
// time or was not in one at all.
package epoch

import (
	"sync/atomic"
	"unsafe"
)

// MaxThreads bounds the number of descriptors; it matches the width of the
// visible-reader metadata in the runtime.
const MaxThreads = 60

const _prelimboCap = 32

type paddedEpoch struct {
	val atomic.Uint64
	_   [56]byte
}

var (
	epochs [MaxThreads]paddedEpoch

	// high-water mark of registered allocators, bounds epoch snapshots
	liveCount atomic.Int32
)

// generation is a sealed pre-limbo buffer plus the epoch snapshot taken
// when it was sealed.
type generation struct {
	snapshot []uint64
	blocks   [][]byte
}

// Allocator tracks one thread's transactional allocations.  All methods
// are called only by the owning thread; the epoch word alone is read by
// other threads.
type Allocator struct {
	id    int
	epoch *atomic.Uint64

	allocs [][]byte // free these if the transaction aborts
	frees  [][]byte // recycle these if the transaction commits

	prelimbo *generation
	limbo    []*generation // oldest first; snapshots taken in order

	pool map[int][][]byte // per-size freelists of recycled blocks
}

func NewAllocator(id int) *Allocator {
	for {
		n := liveCount.Load()
		if int32(id) < n || liveCount.CompareAndSwap(n, int32(id)+1) {
			break
		}
	}
	return &Allocator{
		id:       id,
		epoch:    &epochs[id].val,
		prelimbo: &generation{},
		pool:     make(map[int][][]byte),
	}
}

// OnTxBegin moves to an odd epoch: this thread may now hold speculative
// references to shared memory.
func (a *Allocator) OnTxBegin() {
	a.epoch.Add(1)
}

// OnTxCommit replays the buffered frees into pre-limbo, keeps the
// allocations, and moves to the next even epoch.
func (a *Allocator) OnTxCommit() {
	for _, b := range a.frees {
		a.schedForReclaim(b)
	}
	a.frees = a.frees[:0]
	a.allocs = a.allocs[:0]
	a.epoch.Add(1)
}

// OnTxAbort unrolls the allocations, discards the frees, and moves to the
// next even epoch.
func (a *Allocator) OnTxAbort() {
	for _, b := range a.allocs {
		a.recycle(b)
	}
	a.allocs = a.allocs[:0]
	a.frees = a.frees[:0]
	a.epoch.Add(1)
}

func (a *Allocator) inTx() bool {
	return a.epoch.Load()&1 == 1
}

// Alloc returns a word-aligned block of at least size bytes.  Inside a
// transaction the block is logged and reclaimed automatically on abort.
func (a *Allocator) Alloc(size int) []byte {
	b := a.take(size)
	if a.inTx() {
		a.allocs = append(a.allocs, b)
	}
	return b
}

// Free recycles a block.  Inside a transaction the free is deferred until
// commit and then held in limbo until no live transaction can observe the
// block.
func (a *Allocator) Free(b []byte) {
	if a.inTx() {
		a.frees = append(a.frees, b)
		return
	}
	a.schedForReclaim(b)
}

func (a *Allocator) schedForReclaim(b []byte) {
	a.prelimbo.blocks = append(a.prelimbo.blocks, b)
	if len(a.prelimbo.blocks) >= _prelimboCap {
		a.handleFullPrelimbo()
	}
}

// handleFullPrelimbo stamps the buffer with the current epoch snapshot,
// parks it in limbo, and sweeps whatever older generations have expired.
func (a *Allocator) handleFullPrelimbo() {
	n := int(liveCount.Load())
	snap := make([]uint64, n)
	for i := range n {
		snap[i] = epochs[i].val.Load()
	}
	a.prelimbo.snapshot = snap
	a.limbo = append(a.limbo, a.prelimbo)
	a.prelimbo = &generation{}

	a.Sweep()
}

// Sweep recycles every limbo generation whose snapshot no live transaction
// can still be inside.  Generations expire in order, so we stop at the
// first survivor.
func (a *Allocator) Sweep() {
	kept := 0
	for _, g := range a.limbo {
		if kept > 0 || !expired(g.snapshot) {
			a.limbo[kept] = g
			kept++
			continue
		}
		for _, b := range g.blocks {
			a.recycle(b)
		}
	}
	a.limbo = a.limbo[:kept]
}

// expired reports that every thread has moved past the snapshot: a thread
// blocks reclamation only if it was mid-transaction at snapshot time and
// is still in that same transaction.
func expired(snapshot []uint64) bool {
	for i, ts := range snapshot {
		if ts&1 == 1 && epochs[i].val.Load() == ts {
			return false
		}
	}
	return true
}

func (a *Allocator) take(size int) []byte {
	class := sizeClass(size)
	if free := a.pool[class]; len(free) > 0 {
		b := free[len(free)-1]
		a.pool[class] = free[:len(free)-1]
		clear(b)
		return b[:size]
	}
	// allocate words so the block is word-aligned regardless of size
	words := make([]uintptr, class/int(unsafe.Sizeof(uintptr(0))))
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), class)[:size]
}

func (a *Allocator) recycle(b []byte) {
	class := sizeClass(cap(b))
	a.pool[class] = append(a.pool[class], b[:cap(b)])
}

// sizeClass rounds up to the next power of two, with a one-word floor.
func sizeClass(size int) int {
	class := int(unsafe.Sizeof(uintptr(0)))
	for class < size {
		class <<= 1
	}
	return class
}
