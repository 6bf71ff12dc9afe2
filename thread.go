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

package argentum

import (
	"errors"
	"sync/atomic"

	"github.com/B1NARY-GR0UP/argentum/pkg/epoch"
	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
	"github.com/B1NARY-GR0UP/argentum/pkg/mvector"
	"github.com/B1NARY-GR0UP/argentum/pkg/wset"
	"github.com/B1NARY-GR0UP/argentum/types"
)

var ErrTooManyThreads = errors.New("thread descriptor limit reached")

// Thread is a per-thread transaction descriptor.  It is created once, lives
// for the process, and must not be shared between concurrently running
// goroutines.  Everything on it is owned by that thread except alive, which
// remote-kill algorithms may flip with a compare-and-swap.
type Thread struct {
	id       int
	lockWord uintptr // stamped into orecs this thread owns

	// flat-nesting depth; only the outermost Atomic does begin/commit work
	nesting int

	// clock snapshots, used differently by each algorithm
	startTime uintptr
	tsCache   uintptr
	endTime   uintptr
	order     int // commit ticket, -1 when unordered

	turbo      bool // in-place irrevocable mode
	tmlHasLock bool
	strongHG   bool // holding the hourglass

	rOrecs *mvector.Vector[*orec] // orecs whose version this tx consulted
	locks  *mvector.Vector[*orec] // orecs this tx holds

	rBytelocks *mvector.Vector[*bytelock]
	wBytelocks *mvector.Vector[*bytelock]
	rBitlocks  *mvector.Vector[*bitlock]
	wBitlocks  *mvector.Vector[*bitlock]

	writes  *wset.WriteSet
	vlist   *mvector.Vector[wset.Entry] // value log for NOrec validation
	undoLog *mvector.Vector[wset.Entry]

	commitHooks []func()
	abortHooks  []func()

	allocator *epoch.Allocator

	// CM state
	consecAborts uint32
	seed         uint32
	alive        atomic.Uint32

	// counters
	commitsRO uint64
	commitsRW uint64
	aborts    uint64
}

// ThreadInit allocates the calling thread's descriptor and publishes it in
// the threads table.  If the caller skipped SysInit, it runs implicitly
// with the configuration LoadConfig builds from the file and environment.
func ThreadInit() (*Thread, error) {
	ensureSysInit()

	id := int(threadCount.Add(1)) - 1
	if id >= maxThreads {
		threadCount.Add(-1)
		return nil, ErrTooManyThreads
	}

	t := &Thread{
		id:         id,
		lockWord:   makeLockWord(id),
		order:      -1,
		rOrecs:     mvector.New[*orec](curConfig.LogCapacity),
		locks:      mvector.New[*orec](curConfig.LogCapacity),
		rBytelocks: mvector.New[*bytelock](curConfig.LogCapacity),
		wBytelocks: mvector.New[*bytelock](curConfig.LogCapacity),
		rBitlocks:  mvector.New[*bitlock](curConfig.LogCapacity),
		wBitlocks:  mvector.New[*bitlock](curConfig.LogCapacity),
		writes:     wset.New(curConfig.WriteSetCapacity),
		vlist:      mvector.New[wset.Entry](curConfig.LogCapacity),
		undoLog:    mvector.New[wset.Entry](curConfig.LogCapacity),
		allocator:  epoch.NewAllocator(id),
		seed:       uint32(id)*2654435761 + 1,
	}
	t.alive.Store(uint32(types.TxActive))
	threads[id] = t
	return t, nil
}

// Shutdown retires the descriptor.  The id is not recycled; the
// counters stay readable for the shutdown report.
func (t *Thread) Shutdown() {
	if t.nesting != 0 {
		logger.GetLogger().Panicf("thread %d shut down inside a transaction", t.id)
	}
	t.allocator.Sweep()
}

// ID is the dense descriptor id.
func (t *Thread) ID() int {
	return t.id
}

// OnCommit queues fn to run after this transaction commits.
func (t *Thread) OnCommit(fn func()) {
	t.commitHooks = append(t.commitHooks, fn)
}

// OnAbort queues fn to run after this transaction rolls back.
func (t *Thread) OnAbort(fn func()) {
	t.abortHooks = append(t.abortHooks, fn)
}

// onCommitCommon finishes every successful commit path: allocator epoch,
// CM notification, counters, user callbacks.
func (t *Thread) onCommitCommon(readOnly bool) {
	t.allocator.OnTxCommit()
	curCM.OnCommit(t)
	t.consecAborts = 0
	if readOnly {
		t.commitsRO++
	} else {
		t.commitsRW++
	}
	hooks := t.commitHooks
	t.commitHooks = t.commitHooks[:0]
	t.abortHooks = t.abortHooks[:0]
	for _, fn := range hooks {
		fn()
	}
}

// onRollbackCommon finishes every rollback path.  The CM runs last so a
// backoff sleep happens after all shared state is released.
func (t *Thread) onRollbackCommon() {
	t.allocator.OnTxAbort()
	t.aborts++
	t.consecAborts++
	curCM.OnAbort(t)
	hooks := t.abortHooks
	t.commitHooks = t.commitHooks[:0]
	t.abortHooks = t.abortHooks[:0]
	for _, fn := range hooks {
		fn()
	}
}

// runUndoLog reverses in-place writes, newest first.
func (t *Thread) runUndoLog() {
	entries := t.undoLog.Items()
	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].WriteTo()
	}
}
