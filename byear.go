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

// ByEAR: bytelock metadata with a redo log and remote abort.  Instead of
// waiting out a conflicting transaction, flip its alive word from ACTIVE
// to ABORTED; a killed owner is waited on only until it drops its lock,
// and killed readers are not waited on.  Every transaction polls its own
// alive word after each potentially conflicting step, and a writer seals
// its fate at commit with a CAS from ACTIVE to COMMITTED.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
	"github.com/B1NARY-GR0UP/argentum/types"
)

func init() {
	registerAlgorithm(&algorithm{
		name:              "ByEAR",
		begin:             byEARBegin,
		read:              byEARRead,
		write:             byEARWrite,
		commit:            byEARCommit,
		rollback:          byteEagerRedoRollback, // same metadata, same unwind
		privatizationSafe: true,
	})
}

func byEARBegin(t *Thread) uint32 {
	t.alive.Store(uint32(types.TxActive))
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

// byEARSelfCheck aborts if a remote transaction killed us.
func byEARSelfCheck(t *Thread) {
	if types.TxStatus(t.alive.Load()) == types.TxAborted {
		t.tmAbort()
	}
}

// byEARKill moves a victim from ACTIVE to ABORTED.  A failed CAS means the
// victim committed or was already dead; either way there is nothing more
// to do but re-examine the lock.
func byEARKill(victim int) {
	if v := threads[victim]; v != nil {
		v.alive.CompareAndSwap(uint32(types.TxActive), uint32(types.TxAborted))
	}
}

func byEARCommit(t *Thread) {
	if t.wBytelocks.Size() == 0 {
		byEARSelfCheck(t)
		for _, l := range t.rBytelocks.Items() {
			l.reader[t.id].Store(0)
		}
		t.rBytelocks.Reset()
		t.onCommitCommon(true)
		return
	}

	// seal the outcome: once COMMITTED, no remote abort can take hold
	if !t.alive.CompareAndSwap(uint32(types.TxActive), uint32(types.TxCommitted)) {
		t.tmAbort()
	}

	t.writes.Redo()

	for _, l := range t.wBytelocks.Items() {
		l.owner.Store(0)
	}
	for _, l := range t.rBytelocks.Items() {
		l.reader[t.id].Store(0)
	}

	t.rBytelocks.Reset()
	t.wBytelocks.Reset()
	t.writes.Reset()
	t.onCommitCommon(false)
}

func byEARRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	if lock.owner.Load() != me {
		if lock.reader[t.id].Load() == 0 {
			t.rBytelocks.Insert(lock)
			lock.reader[t.id].Store(1)
		}

		// abort the owner, then wait only until it releases the lock
		for {
			owner := lock.owner.Load()
			if owner == 0 {
				break
			}
			byEARKill(int(owner) - 1)
			byEARSelfCheck(t)
			spin.Yield()
		}
	}

	result := *addr

	byEARSelfCheck(t)
	return overlay(result, rawVal, rawMask)
}

func byEARWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	if lock.owner.Load() != me {
		// kill the current owner, then take the lock
		for {
			if owner := lock.owner.Load(); owner != 0 {
				byEARKill(int(owner) - 1)
			} else if lock.owner.CompareAndSwap(0, me) {
				break
			}
			byEARSelfCheck(t)
		}

		t.wBytelocks.Insert(lock)
		lock.reader[t.id].Store(0)

		// abort the visible readers; they will notice at their next
		// barrier
		for i := range lock.reader {
			if i != t.id && lock.reader[i].Load() != 0 {
				byEARKill(i)
			}
		}
	}

	t.writes.Insert(addr, val, mask)
	byEARSelfCheck(t)
}
