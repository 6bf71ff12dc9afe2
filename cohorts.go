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

// Cohorts: transactions run in groups.  Nobody may start while a group is
// committing, and group members commit one at a time in ticket order, so
// in-flight transactions never observe a writeback.  The population is
// tracked by three cumulative counters: started, pending, committed.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/spin"

func init() {
	registerAlgorithm(&algorithm{
		name:         "Cohorts",
		begin:        cohortsBegin,
		read:         cohortsRead,
		write:        cohortsWrite,
		commit:       cohortsCommit,
		rollback:     cohortsRollback,
		switcher:     orderedSwitcher,
		turboCapable: true,
	})
}

func cohortsBegin(t *Thread) uint32 {
	curCM.OnBegin(t)

	for {
		// wait until the committing cohort has drained
		for cohPending.Load() != cohCommitted.Load() || cohInplace.Load() != 0 {
			spin.Yield()
		}

		cohStarted.Add(1)

		// double check: somebody may have moved to commit between the
		// test and the increment
		if cohPending.Load() == cohCommitted.Load() && cohInplace.Load() == 0 {
			break
		}
		cohStarted.Add(-1)
	}

	t.allocator.OnTxBegin()
	t.tsCache = lastComplete.val.Load()
	t.order = -1
	return ActionRunInstrumented | ActionSaveLiveVariables
}

// cohortsValidate runs at commit with a ticket held.  A failure must still
// complete the ticket before aborting or the rest of the cohort deadlocks.
func cohortsValidate(t *Thread) {
	for _, o := range t.rOrecs.Items() {
		if o.v.Load() > t.tsCache {
			cohCommitted.Add(1)
			lastComplete.val.Store(uintptr(t.order))
			t.tmAbort()
		}
	}
}

func cohortsCommit(t *Thread) {
	if t.writes.Size() == 0 {
		cohStarted.Add(-1)
		t.rOrecs.Reset()
		t.order = -1
		t.onCommitCommon(true)
		return
	}

	// the pending count is the commit ticket
	t.order = int(cohPending.Add(1))

	// wait for my turn
	for lastComplete.val.Load() != uintptr(t.order)-1 {
		spin.Wait64()
	}

	// the first committer of a cohort saw every earlier cohort complete
	// before it started and needs no validation
	if t.order != int(cohLastOrder.Load()) {
		cohortsValidate(t)
	}

	// mark the orecs so later members of this cohort see the conflict
	for _, e := range t.writes.Entries() {
		orecOf(e.Addr).v.Store(uintptr(t.order))
	}

	// wait until the whole cohort is ready to commit
	for cohPending.Load() < cohStarted.Load() {
		spin.Wait64()
	}

	t.writes.Redo()

	cohLastOrder.Store(cohStarted.Load() + 1)
	lastComplete.val.Store(uintptr(t.order))
	cohCommitted.Add(1)

	t.order = -1
	t.rOrecs.Reset()
	t.writes.Reset()
	t.onCommitCommon(false)
}

func cohortsRollback(t *Thread) {
	// a mid-flight abort leaves the cohort; a commit-time abort already
	// completed its ticket in cohortsValidate
	if t.order == -1 {
		cohStarted.Add(-1)
	}
	t.order = -1
	t.rOrecs.Reset()
	t.writes.Reset()
	t.onRollbackCommon()
}

func cohortsRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	tmp := *addr

	o := orecOf(addr)
	if o.v.Load() > t.tsCache {
		t.tmAbort()
	}
	t.rOrecs.Insert(o)

	if rawMask != 0 {
		tmp = overlay(tmp, rawVal, rawMask)
	}
	return tmp
}

func cohortsWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	t.writes.Insert(addr, val, mask)
}
