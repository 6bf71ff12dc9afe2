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

// OrecALA: OrecLazy made privatization safe.  Readers poll the commit
// clock to catch doomed-transaction races, and writers depart commit in
// clock order through lastComplete so deferred updates cannot leak into
// privatized memory.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/spin"

func init() {
	registerAlgorithm(&algorithm{
		name:              "OrecALA",
		begin:             orecALABegin,
		read:              orecALARead,
		write:             orecLazyWrite,
		commit:            orecALACommit,
		rollback:          orecALARollback,
		switcher:          orderedSwitcher,
		privatizationSafe: true,
	})
}

// orderedSwitcher brings lastComplete up to the commit clock so begin does
// not start transactions in the past of surviving orec versions.
func orderedSwitcher() {
	lastComplete.val.Store(timestamp.val.Load())
}

func orecALABegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()

	// start after the last cleanup, not the last commit, so begin never
	// spins on an in-flight writeback
	t.startTime = lastComplete.val.Load()
	t.tsCache = t.startTime
	t.endTime = 0
	return ActionRunInstrumented | ActionSaveLiveVariables
}

func orecALACommit(t *Thread) {
	if t.writes.Size() == 0 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	acquireWriteSet(t)

	t.endTime = timestamp.val.Add(1)

	if t.endTime != t.tsCache+1 {
		validateReadsHeld(t)
	}

	t.writes.Redo()
	releaseLocks(t, t.endTime)

	// depart in commit order; this closes the deferred-update half of the
	// privatization problem
	for lastComplete.val.Load() != t.endTime-1 {
		spin.Wait64()
	}
	lastComplete.val.Store(t.endTime)

	t.endTime = 0
	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()
	t.onCommitCommon(false)
}

func orecALARollback(t *Thread) {
	releaseLocksPrev(t)
	t.rOrecs.Reset()
	t.writes.Reset()
	t.locks.Reset()

	// aborted between the clock increment and release: the ticket still
	// has to pass through the departure order
	if t.endTime != 0 {
		for lastComplete.val.Load() < t.endTime-1 {
			spin.Wait64()
		}
		lastComplete.val.Store(t.endTime)
		t.endTime = 0
	}
	t.onRollbackCommon()
}

// orecALAPrivtest revalidates the read set against a fresh clock sample;
// catching the doomed-transaction half of the privatization problem.
func orecALAPrivtest(t *Thread, ts uintptr) {
	for _, o := range t.rOrecs.Items() {
		if o.v.Load() > t.startTime {
			t.tmAbort()
		}
	}
	t.tsCache = ts
}

func orecALARead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	tmp := *addr
	o := orecOf(addr)
	t.rOrecs.Insert(o)

	if o.v.Load() > t.startTime {
		t.tmAbort()
	}

	// poll the clock; if anyone committed, validate before using the value
	if ts := timestamp.val.Load(); ts != t.tsCache {
		orecALAPrivtest(t, ts)
	}

	if rawMask != 0 {
		tmp = overlay(tmp, rawVal, rawMask)
	}
	return tmp
}
