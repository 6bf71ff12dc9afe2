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

// CTokenTurbo: CToken, except that the writer holding the oldest pending
// ticket flips into turbo mode and writes in place with no further
// validation.  A turbo transaction is irrevocable; a self-abort there is a
// caller bug and fatal.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
)

func init() {
	registerAlgorithm(&algorithm{
		name:          "CTokenTurbo",
		begin:         ctokenTurboBegin,
		read:          ctokenTurboRead,
		write:         ctokenTurboWrite,
		commit:        ctokenTurboCommit,
		rollback:      ctokenTurboRollback,
		isIrrevocable: func(t *Thread) bool { return t.turbo },
		switcher:      orderedSwitcher,
		turboCapable:  true,
	})
}

func ctokenTurboBegin(t *Thread) uint32 {
	curCM.OnBegin(t)
	t.allocator.OnTxBegin()
	t.tsCache = lastComplete.val.Load()

	// a transaction that aborted after taking a ticket may come back as
	// the oldest pending writer and start in turbo directly
	if t.order != -1 && t.tsCache == uintptr(t.order)-1 {
		t.turbo = true
	}
	return ActionRunInstrumented | ActionSaveLiveVariables
}

// ctokenTurboValidate is ctokenValidate plus the turbo transition: when we
// become the oldest pending writer, write back early and go in-place.
func ctokenTurboValidate(t *Thread, finish uintptr) {
	for _, o := range t.rOrecs.Items() {
		if o.v.Load() > t.tsCache {
			t.tmAbort()
		}
	}
	t.tsCache = finish

	if t.order != -1 && t.tsCache == uintptr(t.order)-1 && t.writes.Size() != 0 {
		for _, e := range t.writes.Entries() {
			o := orecOf(e.Addr)
			o.v.Store(uintptr(t.order))
			e.WriteTo()
		}
		t.turbo = true
	}
}

func ctokenTurboCommit(t *Thread) {
	if t.turbo {
		// writes already hit memory; just complete the ticket
		lastComplete.val.Store(uintptr(t.order))
		t.order = -1
		t.turbo = false

		t.rOrecs.Reset()
		t.writes.Reset()
		t.onCommitCommon(false)
		return
	}

	if t.order == -1 {
		t.rOrecs.Reset()
		t.onCommitCommon(true)
		return
	}

	for lastComplete.val.Load() != uintptr(t.order)-1 {
		spin.Wait64()
	}

	for _, o := range t.rOrecs.Items() {
		if o.v.Load() > t.tsCache {
			t.tmAbort()
		}
	}

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

func ctokenTurboRollback(t *Thread) {
	if t.turbo {
		logger.GetLogger().Panicf("turbo transaction cannot roll back")
	}
	t.rOrecs.Reset()
	t.writes.Reset()
	t.onRollbackCommon()
}

func ctokenTurboRead(t *Thread, addr *uintptr) uintptr {
	if t.turbo {
		return *addr
	}

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
		if t.order != -1 {
			ctokenTurboValidate(t, lc)
		} else {
			ctokenValidate(t, lc)
		}
	}

	if rawMask != 0 {
		tmp = overlay(tmp, rawVal, rawMask)
	}
	return tmp
}

func ctokenTurboWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	if t.turbo {
		// mark the orec, then update the location directly
		o := orecOf(addr)
		o.v.Store(uintptr(t.order))
		*addr = overlay(*addr, val, mask)
		return
	}

	if t.order == -1 {
		// first write: take a ticket, then see if we are already the
		// oldest writer and may go turbo at once
		t.order = int(timestamp.val.Add(1))
		t.writes.Insert(addr, val, mask)
		ctokenTurboValidate(t, lastComplete.val.Load())
		return
	}

	t.writes.Insert(addr, val, mask)
}
