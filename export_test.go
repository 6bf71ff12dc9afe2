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

import (
	"sync"
	"testing"

	"github.com/B1NARY-GR0UP/argentum/types"
)

// resetWorld zeroes the shared metadata so each algorithm under test runs
// against a virgin clock and orec table, the state it would see in a fresh
// process.  Must run under quiescence.
func resetWorld() {
	for i := range orecs {
		orecs[i].v.Store(0)
		orecs[i].p = 0
	}
	timestamp.val.Store(0)
	lastComplete.val.Store(0)
	fcmTimestamp.val.Store(0)
	cglLock.val.Store(0)
	cohStarted.Store(0)
	cohPending.Store(0)
	cohCommitted.Store(0)
	cohLastOrder.Store(0)
	cohInplace.Store(0)

	for i := 0; i < liveThreads(); i++ {
		t := threads[i]
		if t == nil {
			continue
		}
		t.startTime = 0
		t.tsCache = 0
		t.endTime = 0
		t.order = -1
		t.turbo = false
		t.tmlHasLock = false
		t.strongHG = false
		t.consecAborts = 0
		t.alive.Store(uint32(types.TxActive))
	}
}

// useAlgorithm installs an algorithm for the duration of a test, bypassing
// the turbo switching restriction so every variant is testable.
func useAlgorithm(tb testing.TB, name string) {
	tb.Helper()
	next, ok := registry[name]
	if !ok {
		tb.Fatalf("no such algorithm: %s", name)
	}
	inflight.Pause(func() {
		resetWorld()
		next.switcher()
		curAlg = next
	})
}

// useCM installs a contention manager for the duration of a test and
// restores the default afterwards.
func useCM(tb testing.TB, name string) {
	tb.Helper()
	factory, ok := cmRegistry[name]
	if !ok {
		tb.Fatalf("no such contention manager: %s", name)
	}
	curCM = factory()
	tb.Cleanup(func() {
		curCM = cmRegistry[DefaultConfig.ContentionManager]()
	})
}

var (
	threadPoolMu sync.Mutex
	threadPool   []*Thread
)

// getThread hands out a descriptor for the duration of a test.  Ids are
// never recycled, so tests share a small pool instead of minting one
// descriptor per subtest.
func getThread(tb testing.TB) *Thread {
	tb.Helper()

	threadPoolMu.Lock()
	defer threadPoolMu.Unlock()

	var t *Thread
	if n := len(threadPool); n > 0 {
		t = threadPool[n-1]
		threadPool = threadPool[:n-1]
	} else {
		var err error
		t, err = ThreadInit()
		if err != nil {
			tb.Fatalf("thread init: %v", err)
		}
	}

	tb.Cleanup(func() {
		threadPoolMu.Lock()
		threadPool = append(threadPool, t)
		threadPoolMu.Unlock()
	})
	return t
}
