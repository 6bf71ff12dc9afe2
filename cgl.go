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

// CGL: every transaction takes one global test-and-set lock, runs in
// place, and cannot abort.  The baseline the speculative algorithms are
// measured against, and the only fully serial member of the family.

package argentum

import (
	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
)

func init() {
	registerAlgorithm(&algorithm{
		name:              "CGL",
		begin:             cglBegin,
		read:              cglRead,
		write:             cglWrite,
		commit:            cglCommit,
		rollback:          cglRollback,
		isIrrevocable:     func(*Thread) bool { return true },
		becomeIrrevocable: func(*Thread) bool { return true },
		privatizationSafe: true,
	})
}

// cglLock is CGL's own lock word; reusing the commit clock would destroy
// its monotonicity across algorithm switches.
var cglLock padWord

func cglBegin(t *Thread) uint32 {
	for !cglLock.val.CompareAndSwap(0, 1) {
		spin.Wait64()
	}
	return ActionRunUninstrumented
}

func cglCommit(t *Thread) {
	cglLock.val.Store(0)
	t.consecAborts = 0
	t.commitsRW++

	hooks := t.commitHooks
	t.commitHooks = t.commitHooks[:0]
	t.abortHooks = t.abortHooks[:0]
	for _, fn := range hooks {
		fn()
	}
}

// cglRollback exists only to satisfy the dispatch row; nothing can abort a
// CGL transaction.
func cglRollback(t *Thread) {
	logger.GetLogger().Panicf("CGL transaction cannot roll back")
}

func cglRead(t *Thread, addr *uintptr) uintptr {
	return *addr
}

func cglWrite(t *Thread, addr *uintptr, val, mask uintptr) {
	*addr = overlay(*addr, val, mask)
}
