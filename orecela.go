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

// OrecELA: ordered commit like OrecALA, but a reader that meets a too-new
// orec extends its start time forward instead of aborting.  Buys fewer
// false conflicts at the price of full-read-set validation on extension.

package argentum

import "github.com/B1NARY-GR0UP/argentum/pkg/spin"

func init() {
	registerAlgorithm(&algorithm{
		name:              "OrecELA",
		begin:             orecALABegin,
		read:              orecELARead,
		write:             orecLazyWrite,
		commit:            orecALACommit,
		rollback:          orecALARollback,
		switcher:          orderedSwitcher,
		privatizationSafe: true,
	})
}

func orecELARead(t *Thread, addr *uintptr) uintptr {
	rawVal, rawMask, full := rawFind(t, addr)
	if full {
		return rawVal
	}

	o := orecOf(addr)
	for {
		tmp := *addr
		ivt := o.v.Load()

		if ivt <= t.startTime {
			t.rOrecs.Insert(o)
			if rawMask != 0 {
				tmp = overlay(tmp, rawVal, rawMask)
			}
			return tmp
		}

		if isLocked(ivt) {
			spin.Wait64()
			continue
		}

		// extendable timestamps: prove the read set still holds, then
		// scale startTime up to the sampled clock and retry
		newTS := timestamp.val.Load()
		validateReads(t)
		t.startTime = newTS
		t.tsCache = newTS
	}
}
