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

package spin

import (
	"runtime"
	"time"
)

const _pauseRounds = 64

// Wait64 burns roughly 64 pause slots before the caller re-reads contended
// metadata.  The scheduler yield keeps a spinning goroutine from starving
// the lock holder on an oversubscribed machine.
func Wait64() {
	for i := 0; i < _pauseRounds; i++ {
		pause()
	}
	runtime.Gosched()
}

// Yield gives up the processor without burning cycles first.
func Yield() {
	runtime.Gosched()
}

//go:noinline
func pause() {
}

// SleepNanos waits for at least d nanoseconds by polling the monotonic
// clock.  Short contention-management waits are too fine-grained for the
// runtime timer wheel, so we busy-wait and yield.
func SleepNanos(d uint64) {
	start := time.Now()
	for uint64(time.Since(start)) < d {
		Yield()
	}
}

// NextRand is a marsaglia xor-shift generator.  Seeds live in the
// transaction descriptor so backoff decisions need no shared state.
func NextRand(seed uint32) uint32 {
	seed ^= seed << 13
	seed ^= seed >> 17
	seed ^= seed << 5
	return seed
}
