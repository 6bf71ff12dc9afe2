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
	"sync/atomic"
	"unsafe"

	"github.com/B1NARY-GR0UP/argentum/pkg/epoch"
)

const (
	// maxThreads matches the reader-vector width of the visible-reader
	// metadata; descriptor ids are never recycled.
	maxThreads = epoch.MaxThreads

	// numStripes orecs; an address maps to its stripe by (addr>>3)%N
	numStripes = 1 << 20

	// visible-reader tables carry a per-thread vector per stripe, so they
	// use fewer, wider stripes than the orec table
	numByteStripes = 1 << 16
	numBitStripes  = 1 << 16
)

// lockBit is the MSB of an orec's version word.  Locked words therefore
// compare greater than every timestamp, which lets validation treat
// "locked by someone" and "too new" as the same comparison.
const lockBit = ^(^uintptr(0) >> 1)

func makeLockWord(id int) uintptr {
	return lockBit | uintptr(id)
}

func isLocked(v uintptr) bool {
	return v&lockBit != 0
}

// orec is an ownership record: v holds a version number when unlocked or
// the owner's lock word when locked; p is the pre-acquire version, valid
// only while the lock bit is set, and only the owner touches it.
type orec struct {
	v atomic.Uintptr
	p uintptr
}

var orecs [numStripes]orec

func orecOf(addr *uintptr) *orec {
	return &orecs[(uintptr(unsafe.Pointer(addr))>>3)%numStripes]
}

// bytelock is a visible-reader stripe: a single writer id plus one reader
// slot per thread.
type bytelock struct {
	owner  atomic.Uint32
	reader [maxThreads]atomic.Uint32
}

var bytelocks [numByteStripes]bytelock

func bytelockOf(addr *uintptr) *bytelock {
	return &bytelocks[(uintptr(unsafe.Pointer(addr))>>3)%numByteStripes]
}

// bitlock packs the reader vector into a single word, one bit per thread.
type bitlock struct {
	owner   atomic.Uint32
	readers atomic.Uint64
}

var bitlocks [numBitStripes]bitlock

func bitlockOf(addr *uintptr) *bitlock {
	return &bitlocks[(uintptr(unsafe.Pointer(addr))>>3)%numBitStripes]
}

// padWord is a cache-line padded global counter.
type padWord struct {
	val atomic.Uintptr
	_   [56]byte
}

var (
	// timestamp is the global commit clock; it doubles as the TML/NOrec
	// sequence lock
	timestamp padWord

	// lastComplete trails timestamp and orders writeback departure for the
	// privatization-safe algorithms
	lastComplete padWord

	// fcmTimestamp is the FCM fairness clock and the hourglass token
	fcmTimestamp padWord

	// cmEpochs holds per-thread FCM priorities
	cmEpochs [maxThreads]padWord
)

// cohort population counters
var (
	cohStarted   atomic.Int32
	cohPending   atomic.Int32
	cohCommitted atomic.Int32
	cohLastOrder atomic.Int32
	cohInplace   atomic.Int32
)

var (
	threads     [maxThreads]*Thread
	threadCount atomic.Int32
)

// liveThreads clamps the counter to the table size; a rejected ThreadInit
// can leave it transiently past the end.
func liveThreads() int {
	n := int(threadCount.Load())
	if n > maxThreads {
		n = maxThreads
	}
	return n
}
