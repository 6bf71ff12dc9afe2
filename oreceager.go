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

// OrecEager: encounter-time locking with in-place update and an undo log,
// in the manner of LSA/TinySTM.  An aborting transaction releases each
// orec at its displaced version plus one, then pushes the global clock
// forward if it overtook it; that keeps the clock at least as large as
// every unlocked orec without incarnation numbers.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/wset"

func init() {
	registerAlgorithm(&algorithm{
		name:     "OrecEager",
		begin:    orecEagerBegin,
		read:     orecEagerRead,
		write:    orecEagerWrite,
		commit:   orecEagerCommit,
		rollback: orecEagerRollback,
	})
}

func orecEagerBegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()
	t.startTime = timestamp.val.Load()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

func orecEagerCommit(t *Thread) {
	// the lock list identifies a read-only transaction
	if t.locks.Size() == 0 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	endTime := timestamp.val.Add(1)

	// skip validation if nobody else committed since my last validation
	if endTime != t.startTime+1 {
		validateReadsHeld(t)
	}

	releaseLocks(t, endTime)

	t.locks.Reset()
	t.undoLog.Reset()
	t.rOrecs.Reset()
	t.onCommitCommon(false)
}

func orecEagerRollback(t *Thread) {
	t.runUndoLog()

	// release the locks at displaced version + 1, tracking the highest
	// value installed
	var max uintptr
	for _, o := range t.locks.Items() {
		newVer := o.p + 1
		o.v.Store(newVer)
		if newVer > max {
			max = newVer
		}
	}
	// restore the invariant that the clock dominates every unlocked orec;
	// a transient CAS failure means someone else advanced it for us
	if ts := timestamp.val.Load(); max > ts {
		timestamp.val.CompareAndSwap(ts, ts+1)
	}

	t.rOrecs.Reset()
	t.undoLog.Reset()
	t.locks.Reset()
	t.onRollbackCommon()
}

// orecEagerRead checks the orec twice around the dereference and may scale
// the start time forward instead of aborting on a too-new version.
func orecEagerRead(t *Thread, addr *uintptr) uintptr {
	o := orecOf(addr)
	for {
		ivt := o.v.Load()
		tmp := *addr

		// best case: I locked it already, the value is mine
		if ivt == t.lockWord {
			return tmp
		}

		ivt2 := o.v.Load()
		if ivt == ivt2 && ivt <= t.startTime {
			t.rOrecs.Insert(o)
			return tmp
		}

		if isLocked(ivt) {
			t.tmAbort()
		}

		// unlocked but too new: scale the timestamp and try again
		newTS := timestamp.val.Load()
		validateReadsHeld(t)
		t.startTime = newTS
	}
}

// orecEagerWrite locks the orec, logs the old value, and writes in place.
func orecEagerWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	o := orecOf(addr)
	for {
		ivt := o.v.Load()

		// common case: uncontended location, lock it or die
		if ivt <= t.startTime {
			if !o.v.CompareAndSwap(ivt, t.lockWord) {
				t.tmAbort()
			}
			o.p = ivt
			t.locks.Insert(o)
			t.undoLog.Insert(wset.Entry{Addr: addr, Val: *addr, Mask: wset.FullMask})
			*addr = overlay(*addr, val, mask)
			return
		}

		// holding the lock does not mean this location is undo logged;
		// many locations hash to one orec
		if ivt == t.lockWord {
			t.undoLog.Insert(wset.Entry{Addr: addr, Val: *addr, Mask: wset.FullMask})
			*addr = overlay(*addr, val, mask)
			return
		}

		if isLocked(ivt) {
			t.tmAbort()
		}

		newTS := timestamp.val.Load()
		validateReadsHeld(t)
		t.startTime = newTS
	}
}
