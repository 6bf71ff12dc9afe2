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

// LLT: the classic TL2-style algorithm.  Check-twice orec reads against a
// fixed start time, commit-time lock acquisition, and a fetch-and-add on
// the global clock to order writers.

package argentum

func init() {
	registerAlgorithm(&algorithm{
		name:     "LLT",
		begin:    lltBegin,
		read:     lltRead,
		write:    lltWrite,
		commit:   lltCommit,
		rollback: lltRollback,
	})
}

func lltBegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()
	t.startTime = timestamp.val.Load()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

func lltCommit(t *Thread) {
	// read-only, so just reset lists
	if t.writes.Size() == 0 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	acquireWriteSet(t)

	endTime := timestamp.val.Add(1)

	// skip validation if nobody else committed
	if endTime != t.startTime+1 {
		validateReadsHeld(t)
	}

	t.writes.Redo()
	releaseLocks(t, endTime)

	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()
	t.onCommitCommon(false)
}

func lltRollback(t *Thread) {
	releaseLocksPrev(t)
	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()
	t.onRollbackCommon()
}

// lltRead uses "check twice" timestamps: orec, value, orec again.
func lltRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	o := orecOf(addr)

	ivt := o.v.Load()
	tmp := *addr
	ivt2 := o.v.Load()

	// too new, locked, or torn: any of them is a conflict
	if ivt > t.startTime || ivt != ivt2 {
		t.tmAbort()
	}

	t.rOrecs.Insert(o)
	if rawMask != 0 {
		tmp = overlay(tmp, rawVal, rawMask)
	}
	return tmp
}

func lltWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	t.writes.Insert(addr, val, mask)
}
