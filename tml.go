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

// TML: a single sequence lock covers all of memory.  Readers revalidate
// the clock after every read; the first write acquires the lock, and from
// then on the writer runs irrevocably in place.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
)

func init() {
	registerAlgorithm(&algorithm{
		name:              "TML",
		begin:             tmlBegin,
		read:              tmlRead,
		write:             tmlWrite,
		commit:            tmlCommit,
		rollback:          tmlRollback,
		isIrrevocable:     func(t *Thread) bool { return t.tmlHasLock },
		becomeIrrevocable: tmlBecomeIrrevocable,
		switcher:          tmlSwitcher,
		privatizationSafe: true,
	})
}

func tmlBegin(t *Thread) uint32 {
	curCM.OnBegin(t)

	// sample the sequence lock until it is even (unheld)
	for {
		st := timestamp.val.Load()
		if st&1 == 0 {
			t.startTime = st
			break
		}
		spin.Yield()
	}

	t.allocator.OnTxBegin()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

func tmlCommit(t *Thread) {
	if t.tmlHasLock {
		timestamp.val.Store(t.startTime + 1)
		t.tmlHasLock = false
		t.onCommitCommon(false)
		return
	}
	t.onCommitCommon(true)
}

func tmlRollback(t *Thread) {
	if t.tmlHasLock {
		// the writer updated memory in place under the lock; there is no
		// undo state to recover with
		logger.GetLogger().Panicf("TML writer cannot roll back")
	}
	t.onRollbackCommon()
}

func tmlRead(t *Thread, addr *uintptr) uintptr {
	val := *addr
	if t.tmlHasLock {
		return val
	}
	if timestamp.val.Load() != t.startTime {
		t.tmAbort()
	}
	return val
}

func tmlWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	if !t.tmlHasLock {
		// acquire the sequence lock, abort on failure
		if !timestamp.val.CompareAndSwap(t.startTime, t.startTime+1) {
			t.tmAbort()
		}
		t.startTime++
		t.tmlHasLock = true
	}
	*addr = overlay(*addr, val, mask)
}

// tmlBecomeIrrevocable takes the sequence lock early, which is all
// irrevocability means here.
func tmlBecomeIrrevocable(t *Thread) bool {
	if t.tmlHasLock {
		return true
	}
	if !timestamp.val.CompareAndSwap(t.startTime, t.startTime+1) {
		t.tmAbort()
	}
	t.startTime++
	t.tmlHasLock = true
	return true
}

// tmlSwitcher makes sure the sequence lock is even, or every transaction
// would block at begin.
func tmlSwitcher() {
	if timestamp.val.Load()&1 == 1 {
		timestamp.val.Add(1)
	}
}
