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

// OrecEagerRedo: encounter-time locking like OrecEager, but writes buffer
// in a redo log and hit memory only at commit.  Rollback is then just a
// matter of restoring the displaced orec versions.

package argentum

func init() {
	registerAlgorithm(&algorithm{
		name:     "OrecEagerRedo",
		begin:    orecEagerBegin, // same clock sample as OrecEager
		read:     orecEagerRedoRead,
		write:    orecEagerRedoWrite,
		commit:   orecEagerRedoCommit,
		rollback: orecEagerRedoRollback,
	})
}

func orecEagerRedoCommit(t *Thread) {
	if t.locks.Size() == 0 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	endTime := timestamp.val.Add(1)

	if endTime != t.startTime+1 {
		validateReadsHeld(t)
	}

	t.writes.Redo()
	releaseLocks(t, endTime)

	t.locks.Reset()
	t.writes.Reset()
	t.rOrecs.Reset()
	t.onCommitCommon(false)
}

func orecEagerRedoRollback(t *Thread) {
	// no in-place writes happened, so the displaced versions are still
	// current
	releaseLocksPrev(t)
	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()
	t.onRollbackCommon()
}

func orecEagerRedoRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	o := orecOf(addr)
	for {
		ivt := o.v.Load()
		tmp := *addr

		// I own the stripe: memory is clean, the log has my bytes
		if ivt == t.lockWord {
			return overlay(tmp, rawVal, rawMask)
		}

		ivt2 := o.v.Load()
		if ivt == ivt2 && ivt <= t.startTime {
			t.rOrecs.Insert(o)
			return overlay(tmp, rawVal, rawMask)
		}

		if isLocked(ivt) {
			t.tmAbort()
		}

		newTS := timestamp.val.Load()
		validateReadsHeld(t)
		t.startTime = newTS
	}
}

// orecEagerRedoWrite acquires at the barrier but only buffers the value.
func orecEagerRedoWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	o := orecOf(addr)
	for {
		ivt := o.v.Load()

		if ivt <= t.startTime {
			if !o.v.CompareAndSwap(ivt, t.lockWord) {
				t.tmAbort()
			}
			o.p = ivt
			t.locks.Insert(o)
			t.writes.Insert(addr, val, mask)
			return
		}

		if ivt == t.lockWord {
			t.writes.Insert(addr, val, mask)
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
