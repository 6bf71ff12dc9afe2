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

// ByteEagerRedo: ByteEager's locking with a redo log instead of undo.
// Writes buffer until commit, which makes rollback write-free; the price
// is a read-after-write lookup on every read.

package argentum

func init() {
	registerAlgorithm(&algorithm{
		name:              "ByteEagerRedo",
		begin:             byteEagerBegin,
		read:              byteEagerRedoRead,
		write:             byteEagerRedoWrite,
		commit:            byteEagerRedoCommit,
		rollback:          byteEagerRedoRollback,
		privatizationSafe: true,
	})
}

func byteEagerRedoCommit(t *Thread) {
	if t.wBytelocks.Size() == 0 {
		for _, l := range t.rBytelocks.Items() {
			l.reader[t.id].Store(0)
		}
		t.rBytelocks.Reset()
		t.onCommitCommon(true)
		return
	}

	// write back while the locks pin out every reader, then release
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

func byteEagerRedoRollback(t *Thread) {
	for _, l := range t.wBytelocks.Items() {
		l.owner.Store(0)
	}
	for _, l := range t.rBytelocks.Items() {
		l.reader[t.id].Store(0)
	}

	t.rBytelocks.Reset()
	t.wBytelocks.Reset()
	t.writes.Reset()

	expBackoff(t)
	t.onRollbackCommon()
}

func byteEagerRedoRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	if lock.owner.Load() == me || lock.reader[t.id].Load() == 1 {
		return overlay(*addr, rawVal, rawMask)
	}

	t.rBytelocks.Insert(lock)

	var tries uint32
	for {
		lock.reader[t.id].Store(1)

		if lock.owner.Load() == 0 {
			return overlay(*addr, rawVal, rawMask)
		}

		lock.reader[t.id].Store(0)
		for lock.owner.Load() != 0 {
			tries++
			if tries > curConfig.ReadTimeout {
				t.tmAbort()
			}
		}
	}
}

func byteEagerRedoWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	lock := bytelockOf(addr)
	me := uint32(t.id + 1)

	if lock.owner.Load() == me {
		t.writes.Insert(addr, val, mask)
		return
	}

	var tries uint32
	for !lock.owner.CompareAndSwap(0, me) {
		tries++
		if tries > curConfig.AcquireTimeout {
			t.tmAbort()
		}
	}

	t.wBytelocks.Insert(lock)
	lock.reader[t.id].Store(0)

	for i := range lock.reader {
		tries = 0
		for lock.reader[i].Load() != 0 {
			tries++
			if tries > curConfig.DrainTimeout {
				t.tmAbort()
			}
		}
	}

	t.writes.Insert(addr, val, mask)
}
