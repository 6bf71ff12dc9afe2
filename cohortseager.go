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

// CohortsEager: Cohorts, except that a writer who discovers it is the last
// running member of its cohort skips the redo log and writes in place as a
// turbo transaction.  Everyone else in the cohort has already queued to
// commit, so nobody can observe the early writes out of order.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
)

func init() {
	registerAlgorithm(&algorithm{
		name:          "CohortsEager",
		begin:         cohortsBegin,
		read:          cohortsEagerRead,
		write:         cohortsEagerWrite,
		commit:        cohortsEagerCommit,
		rollback:      cohortsEagerRollback,
		isIrrevocable: func(t *Thread) bool { return t.turbo },
		switcher:      orderedSwitcher,
		turboCapable:  true,
	})
}

func cohortsEagerRead(t *Thread, addr *uintptr) uintptr {
	if t.turbo {
		return *addr
	}
	return cohortsRead(t, addr)
}

func cohortsEagerWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	if t.turbo {
		orecOf(addr).v.Store(uintptr(t.order))
		*addr = overlay(*addr, val, mask)
		return
	}

	// on first write, if every other cohort member is already queued to
	// commit, this transaction is the cohort's tail and may elide the
	// write-through entirely
	if t.writes.Size() == 0 &&
		cohPending.Load()+1 == cohStarted.Load() &&
		cohInplace.CompareAndSwap(0, 1) {

		// a transaction can clear the begin gate between the population
		// test and the claim; with the claim published, re-test before
		// committing to in-place mode, and buffer the write if the cohort
		// grew under us
		if cohPending.Load()+1 != cohStarted.Load() {
			cohInplace.Store(0)
			t.writes.Insert(addr, val, mask)
			return
		}

		t.order = int(cohPending.Add(1))

		// predecessors are all waiting on the pending/started gate; let
		// them finish in order before touching memory
		for lastComplete.val.Load() != uintptr(t.order)-1 {
			spin.Wait64()
		}

		// reads must still be consistent to enter turbo
		for _, o := range t.rOrecs.Items() {
			if o.v.Load() > t.tsCache {
				cohCommitted.Add(1)
				lastComplete.val.Store(uintptr(t.order))
				cohInplace.Store(0)
				t.tmAbort()
			}
		}

		t.turbo = true
		orecOf(addr).v.Store(uintptr(t.order))
		*addr = overlay(*addr, val, mask)
		return
	}

	t.writes.Insert(addr, val, mask)
}

func cohortsEagerCommit(t *Thread) {
	if t.turbo {
		lastComplete.val.Store(uintptr(t.order))
		cohCommitted.Add(1)
		cohLastOrder.Store(cohStarted.Load() + 1)
		cohInplace.Store(0)

		t.turbo = false
		t.order = -1
		t.rOrecs.Reset()
		t.onCommitCommon(false)
		return
	}
	cohortsCommit(t)
}

func cohortsEagerRollback(t *Thread) {
	if t.turbo {
		logger.GetLogger().Panicf("turbo transaction cannot roll back")
	}
	cohortsRollback(t)
}
