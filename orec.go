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

package argentum

// Validation and lock-management helpers shared by the orec family.

// overlay folds buffered bytes over a word read from memory.
func overlay(mem, val, mask uintptr) uintptr {
	return (mem &^ mask) | (val & mask)
}

// validateReads aborts unless every consulted orec is still no newer than
// startTime.  A locked orec compares newer by construction, so this also
// rejects locations locked by anyone, including the caller.
func validateReads(t *Thread) {
	for _, o := range t.rOrecs.Items() {
		if o.v.Load() > t.startTime {
			t.tmAbort()
		}
	}
}

// validateReadsHeld is validateReads for contexts where the caller holds
// locks: its own lock word is acceptable.
func validateReadsHeld(t *Thread) {
	for _, o := range t.rOrecs.Items() {
		ivt := o.v.Load()
		if ivt > t.startTime && ivt != t.lockWord {
			t.tmAbort()
		}
	}
}

// acquireWriteSet locks the orec of every address in the write set, saving
// the displaced version for rollback.  Commit-time acquisition for the
// lazy algorithms; a single failed compare-and-swap is a conflict.
func acquireWriteSet(t *Thread) {
	for i := range t.writes.Entries() {
		o := orecOf(t.writes.Entries()[i].Addr)
		ivt := o.v.Load()

		if ivt <= t.startTime {
			if !o.v.CompareAndSwap(ivt, t.lockWord) {
				t.tmAbort()
			}
			o.p = ivt
			t.locks.Insert(o)
		} else if ivt != t.lockWord {
			t.tmAbort()
		}
	}
}

// releaseLocks installs val into every held orec.  Callers pass the commit
// time; val must exceed every version the locks displaced.
func releaseLocks(t *Thread, val uintptr) {
	for _, o := range t.locks.Items() {
		o.v.Store(val)
	}
}

// releaseLocksPrev restores the displaced versions, undoing acquisition.
func releaseLocksPrev(t *Thread) {
	for _, o := range t.locks.Items() {
		o.v.Store(o.p)
	}
}

// rawFind consults the write log before a read.  The bool is true when the
// whole word was already written and the read can be served immediately.
func rawFind(t *Thread, addr *uintptr) (val, mask uintptr, full bool) {
	if t.writes.Size() == 0 {
		return 0, 0, false
	}
	val, mask = t.writes.Find(addr)
	return val, mask, mask == ^uintptr(0)
}
