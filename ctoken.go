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

// CToken: writers draw a ticket from the clock at their first write and
// commit strictly in ticket order.  Readers validate against the last
// completed ticket.  A ticket outlives an abort: the retry must finish the
// ordered commit even if it ends up read-only, so the order state is never
// reset on rollback.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/spin"

func init() {
	registerAlgorithm(&algorithm{
		name:     "CToken",
		begin:    ctokenBegin,
		read:     ctokenRead,
		write:    ctokenWrite,
		commit:   ctokenCommit,
		rollback: ctokenRollback,
		switcher: orderedSwitcher,
		// pending tickets survive outside any in-flight transaction, so
		// live switching is off the table
		turboCapable: true,
	})
}

func ctokenBegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()

	// time of the last finished transaction
	t.tsCache = lastComplete.val.Load()
	return ActionRunInstrumented | ActionSaveLiveVariables
}

// ctokenValidate aborts on any read newer than the validation cache, then
// records that we were valid at finish.
func ctokenValidate(t *Thread, finish uintptr) {
	for _, o := range t.rOrecs.Items() {
		if o.v.Load() > t.tsCache {
			t.tmAbort()
		}
	}
	t.tsCache = finish
}

func ctokenCommit(t *Thread) {
	// no ticket, so no order to keep
	if t.order == -1 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	// wait for my turn
	for lastComplete.val.Load() != uintptr(t.order)-1 {
		spin.Wait64()
	}

	if uintptr(t.order)-1 > t.tsCache {
		ctokenValidate(t, uintptr(t.order)-1)
	}

	// mark every location in the write set, then write back
	for _, e := range t.writes.Entries() {
		o := orecOf(e.Addr)
		o.v.Store(uintptr(t.order))
		e.WriteTo()
	}

	lastComplete.val.Store(uintptr(t.order))
	t.order = -1

	t.rOrecs.Reset()
	t.writes.Reset()
	t.onCommitCommon(false)
}

func ctokenRollback(t *Thread) {
	// the ticket survives: a transaction that wrote, aborted, and retries
	// read-only still commits through the ordered path
	t.rOrecs.Reset()
	t.writes.Reset()
	t.onRollbackCommon()
}

func ctokenRead(t *Thread, addr *uintptr) uintptr {
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

	if lc := lastComplete.val.Load(); lc > t.tsCache {
		ctokenValidate(t, lc)
	}

	if rawMask != 0 {
		tmp = overlay(tmp, rawVal, rawMask)
	}
	return tmp
}

func ctokenWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	if t.order == -1 {
		// first write: draw the commit ticket
		t.order = int(timestamp.val.Add(1))
	}
	t.writes.Insert(addr, val, mask)
}
