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

// OrecLazy: commit-time locking over a redo log, the "patient" counterpart
// of OrecEager.  Readers wait out lock holders instead of aborting, and
// writers touch no shared metadata until commit.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/spin"

func init() {
	registerAlgorithm(&algorithm{
		name:     "OrecLazy",
		begin:    orecLazyBegin,
		read:     orecLazyRead,
		write:    orecLazyWrite,
		commit:   orecLazyCommit,
		rollback: orecLazyRollback,
	})
}

func orecLazyBegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()
	t.startTime = timestamp.val.Load()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

func orecLazyCommit(t *Thread) {
	if t.writes.Size() == 0 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	acquireWriteSet(t)
	validateReadsHeld(t)

	t.writes.Redo()

	endTime := timestamp.val.Add(1)
	releaseLocks(t, endTime)

	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()
	t.onCommitCommon(false)
}

func orecLazyRollback(t *Thread) {
	releaseLocksPrev(t)
	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()
	t.onRollbackCommon()
}

func orecLazyRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	o := orecOf(addr)
	for {
		tmp := *addr
		ivt := o.v.Load()

		// common case: new read to an uncontended location
		if ivt <= t.startTime {
			t.rOrecs.Insert(o)
			if rawMask != 0 {
				tmp = overlay(tmp, rawVal, rawMask)
			}
			return tmp
		}

		// if locked, wait it out and retry
		if isLocked(ivt) {
			spin.Wait64()
			continue
		}

		// unlocked but too new: scale the timestamp forward
		newTS := timestamp.val.Load()
		validateReads(t)
		t.startTime = newTS
	}
}

func orecLazyWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	t.writes.Insert(addr, val, mask)
}
