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

// BitEager: ByteEager with the reader vector packed into a single word,
// one bit per thread.  Readers announce themselves with fetch-and-or, and
// a writer drains the whole stripe by watching one word go to zero.

package argentum

func init() {
	registerAlgorithm(&algorithm{
		name:              "BitEager",
		begin:             byteEagerBegin,
		read:              bitEagerRead,
		write:             bitEagerWrite,
		commit:            bitEagerCommit,
		rollback:          bitEagerRollback,
		privatizationSafe: true,
	})
}

func bitEagerCommit(t *Thread) {
	if t.wBitlocks.Size() == 0 {
		for _, l := range t.rBitlocks.Items() {
			l.readers.And(^(uint64(1) << t.id))
		}
		t.rBitlocks.Reset()
		t.onCommitCommon(true)
		return
	}

	for _, l := range t.wBitlocks.Items() {
		l.owner.Store(0)
	}
	for _, l := range t.rBitlocks.Items() {
		l.readers.And(^(uint64(1) << t.id))
	}

	t.rBitlocks.Reset()
	t.wBitlocks.Reset()
	t.undoLog.Reset()
	t.onCommitCommon(false)
}

func bitEagerRollback(t *Thread) {
	t.runUndoLog()

	for _, l := range t.wBitlocks.Items() {
		l.owner.Store(0)
	}
	for _, l := range t.rBitlocks.Items() {
		l.readers.And(^(uint64(1) << t.id))
	}

	t.rBitlocks.Reset()
	t.wBitlocks.Reset()
	t.undoLog.Reset()

	expBackoff(t)
	t.onRollbackCommon()
}

func bitEagerRead(t *Thread, addr *uintptr) uintptr {
	lock := bitlockOf(addr)
	me := uint32(t.id + 1)
	myBit := uint64(1) << t.id

	if lock.owner.Load() == me {
		return *addr
	}
	if lock.readers.Load()&myBit != 0 {
		return *addr
	}

	t.rBitlocks.Insert(lock)

	var tries uint32
	for {
		lock.readers.Or(myBit)

		if lock.owner.Load() == 0 {
			return *addr
		}

		lock.readers.And(^myBit)
		for lock.owner.Load() != 0 {
			tries++
			if tries > curConfig.ReadTimeout {
				t.tmAbort()
			}
		}
	}
}

func bitEagerWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	lock := bitlockOf(addr)
	me := uint32(t.id + 1)
	myBit := uint64(1) << t.id

	if lock.owner.Load() == me {
		t.undoLog.Insert(byteEagerUndoEntry(addr))
		*addr = overlay(*addr, val, mask)
		return
	}

	var tries uint32
	for !lock.owner.CompareAndSwap(0, me) {
		tries++
		if tries > curConfig.AcquireTimeout {
			t.tmAbort()
		}
	}

	t.wBitlocks.Insert(lock)
	lock.readers.And(^myBit)

	// one word tells us when every reader has drained
	tries = 0
	for lock.readers.Load() != 0 {
		tries++
		if tries > curConfig.DrainTimeout {
			t.tmAbort()
		}
	}

	t.undoLog.Insert(byteEagerUndoEntry(addr))
	*addr = overlay(*addr, val, mask)
}
