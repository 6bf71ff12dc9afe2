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

// NOrec: one sequence lock plus value-based validation.  No ownership
// records at all; a reader proves consistency by re-checking the values it
// observed whenever the seqlock moves.  Semantics at least as strong as
// asymmetric lock atomicity.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
	"github.com/B1NARY-GR0UP/argentum/pkg/wset"
)

// norecValidationFailed is odd, so it can never collide with a successful
// (even) seqlock sample.
const norecValidationFailed = uintptr(1)

func init() {
	registerAlgorithm(&algorithm{
		name:              "NOrec",
		begin:             norecBegin,
		read:              norecRead,
		write:             norecWrite,
		commit:            norecCommit,
		rollback:          norecRollback,
		switcher:          norecSwitcher,
		privatizationSafe: true,
	})
}

func norecBegin(t *Thread) uint32 {
	curCM.OnBegin(t)

	// sample the seqlock, rounding down to even rather than waiting for
	// the writer to finish
	t.startTime = timestamp.val.Load() &^ 1

	t.allocator.OnTxBegin()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

// norecValidate re-checks every value this transaction has read against a
// stable (even) seqlock.  It returns the sample the read set was proven
// valid at, or norecValidationFailed.
func norecValidate(t *Thread) uintptr {
	for {
		s := timestamp.val.Load()
		if s&1 == 1 {
			spin.Yield()
			continue
		}

		for _, e := range t.vlist.Items() {
			if (*e.Addr)&e.Mask != e.Val&e.Mask {
				return norecValidationFailed
			}
		}

		// restart if a writer slipped in during read-set iteration
		if timestamp.val.Load() == s {
			return s
		}
	}
}

func norecCommit(t *Thread) {
	// read-only is trivially successful at its last read
	if t.writes.Size() == 0 {
		t.vlist.Reset()
		t.onCommitCommon(true)
		return
	}

	// from a valid state, bump the seqlock odd, write back, bump it even
	for !timestamp.val.CompareAndSwap(t.startTime, t.startTime+1) {
		if t.startTime = norecValidate(t); t.startTime == norecValidationFailed {
			t.tmAbort()
		}
	}

	t.writes.Redo()
	timestamp.val.Store(t.startTime + 2)

	t.vlist.Reset()
	t.writes.Reset()
	t.onCommitCommon(false)
}

func norecRollback(t *Thread) {
	t.vlist.Reset()
	t.writes.Reset()
	t.onRollbackCommon()
}

func norecRead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	tmp := *addr

	// a read is valid only while the seqlock is even and unchanged; poll
	// it and revalidate the whole read set when it moved
	for t.startTime != timestamp.val.Load() {
		if t.startTime = norecValidate(t); t.startTime == norecValidationFailed {
			t.tmAbort()
		}
		tmp = *addr
	}

	t.vlist.Insert(wset.Entry{Addr: addr, Val: tmp, Mask: wset.FullMask})
	if rawMask != 0 {
		tmp = overlay(tmp, rawVal, rawMask)
	}
	return tmp
}

func norecWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	t.writes.Insert(addr, val, mask)
}

func norecSwitcher() {
	if timestamp.val.Load()&1 == 1 {
		timestamp.val.Add(1)
	}
}
