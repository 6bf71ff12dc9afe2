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

// ByEAU: eager bytelocks, in-place update with undo, and remote abort
// mediated by the contention manager: a transaction may only kill a
// conflicting peer when MayKill agrees, and must abort itself otherwise to
// avoid deadlock.  Pair it with FCM for priority, with HyperAggressive for
// pure attacker-wins.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/types"
)

func init() {
	registerAlgorithm(&algorithm{
		name:              "ByEAU",
		begin:             byEARBegin,
		read:              byEAURead,
		write:             byEAUWrite,
		commit:            byEAUCommit,
		rollback:          byEAURollback,
		privatizationSafe: true,
	})
}

// byEAUKill aborts the victim if the contention manager permits; otherwise
// the caller dies to keep the conflict acyclic.
func byEAUKill(t *Thread, victim int) {
	if !curCM.MayKill(t, victim) {
		t.tmAbort()
	}
	if v := threads[victim]; v != nil {
		v.alive.CompareAndSwap(uint32(types.TxActive), uint32(types.TxAborted))
	}
}

func byEAUCommit(t *Thread) {
	if t.wBytelocks.Size() == 0 {
		for _, l := range t.rBytelocks.Items() {
			l.reader[t.id].Store(0)
		}
		t.rBytelocks.Reset()
		t.onCommitCommon(true)
		return
	}

	// in-place writes are already memory; just drop the locks
	for _, l := range t.wBytelocks.Items() {
		l.owner.Store(0)
	}
	for _, l := range t.rBytelocks.Items() {
		l.reader[t.id].Store(0)
	}

	t.rBytelocks.Reset()
	t.wBytelocks.Reset()
	t.undoLog.Reset()
	t.onCommitCommon(false)
}

func byEAURollback(t *Thread) {
	// undo before releasing the write locks, or a waiting attacker could
	// see half-restored state
	t.runUndoLog()

	for _, l := range t.wBytelocks.Items() {
		l.owner.Store(0)
	}
	for _, l := range t.rBytelocks.Items() {
		l.reader[t.id].Store(0)
	}

	t.rBytelocks.Reset()
	t.wBytelocks.Reset()
	t.undoLog.Reset()
	t.onRollbackCommon()
}

func byEAURead(t *Thread, addr *uintptr) uintptr {
	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	// skip instrumentation if I am the writer
	if lock.owner.Load() != me {
		if lock.reader[t.id].Load() == 0 {
			t.rBytelocks.Insert(lock)
			lock.reader[t.id].Store(1)
		}

		// abort the owner and wait until it cleans up
		for {
			owner := lock.owner.Load()
			if owner == 0 {
				break
			}
			byEAUKill(t, int(owner)-1)
			byEARSelfCheck(t)
		}
	}

	result := *addr

	byEARSelfCheck(t)
	return result
}

func byEAUWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	if lock.owner.Load() != me {
		// abort the current owner, wait for release, then acquire
		for {
			if owner := lock.owner.Load(); owner != 0 {
				byEAUKill(t, int(owner)-1)
			} else if lock.owner.CompareAndSwap(0, me) {
				break
			}
			byEARSelfCheck(t)
		}

		t.wBytelocks.Insert(lock)
		lock.reader[t.id].Store(0)

		// abort the active readers, with permission
		for i := range lock.reader {
			if i != t.id && lock.reader[i].Load() != 0 {
				byEAUKill(t, i)
			}
		}
	}

	t.undoLog.Insert(byteEagerUndoEntry(addr))
	*addr = overlay(*addr, val, mask)

	byEARSelfCheck(t)
}
