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

// ByteEager: TLRW-style visible readers.  Every stripe carries one reader
// slot per thread plus a writer id; readers and writers wait each other
// out with bounded spins and treat a timeout as a conflict.  In-place
// update with undo, so commit is nothing but lock release.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/wset"

// byteEagerUndoEntry snapshots the current word for the undo log.
func byteEagerUndoEntry(addr *uintptr) wset.Entry {
	return wset.Entry{Addr: addr, Val: *addr, Mask: wset.FullMask}
}

func init() {
	registerAlgorithm(&algorithm{
		name:              "ByteEager",
		begin:             byteEagerBegin,
		read:              byteEagerRead,
		write:             byteEagerWrite,
		commit:            byteEagerCommit,
		rollback:          byteEagerRollback,
		privatizationSafe: true,
	})
}

func byteEagerBegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

func byteEagerCommit(t *Thread) {
	// read-only: release read locks and be done
	if t.wBytelocks.Size() == 0 {
		for _, l := range t.rBytelocks.Items() {
			l.reader[t.id].Store(0)
		}
		t.rBytelocks.Reset()
		t.onCommitCommon(true)
		return
	}

	// release write locks, then read locks
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

func byteEagerRollback(t *Thread) {
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

	// visible readers make waiting cheap but retries expensive; always
	// back off before retrying
	expBackoff(t)
	t.onRollbackCommon()
}

func byteEagerRead(t *Thread, addr *uintptr) uintptr {
	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	// writer or reader lock already held, nothing to do
	if lock.owner.Load() == me {
		return *addr
	}
	if lock.reader[t.id].Load() == 1 {
		return *addr
	}

	t.rBytelocks.Insert(lock)

	var tries uint32
	for {
		// mark my reader slot
		lock.reader[t.id].Store(1)

		if lock.owner.Load() == 0 {
			return *addr
		}

		// drop the read lock and wait out the writer, bounded
		lock.reader[t.id].Store(0)
		for lock.owner.Load() != 0 {
			tries++
			if tries > curConfig.ReadTimeout {
				t.tmAbort()
			}
		}
	}
}

func byteEagerWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	// already the owner: undo log and write through
	if lock.owner.Load() == me {
		t.undoLog.Insert(byteEagerUndoEntry(addr))
		*addr = overlay(*addr, val, mask)
		return
	}

	// acquire the write lock, bounded
	var tries uint32
	for !lock.owner.CompareAndSwap(0, me) {
		tries++
		if tries > curConfig.AcquireTimeout {
			t.tmAbort()
		}
	}

	t.wBytelocks.Insert(lock)
	lock.reader[t.id].Store(0)

	// wait for the other readers to drain, bounded per slot
	for i := range lock.reader {
		tries = 0
		for lock.reader[i].Load() != 0 {
			tries++
			if tries > curConfig.DrainTimeout {
				t.tmAbort()
			}
		}
	}

	t.undoLog.Insert(byteEagerUndoEntry(addr))
	*addr = overlay(*addr, val, mask)
}
