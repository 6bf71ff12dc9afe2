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
	"unsafe"

	"github.com/B1NARY-GR0UP/argentum/pkg/wset"
)

const _wordBytes = unsafe.Sizeof(uintptr(0))

// ReadWord is the word-granularity read barrier.
func (t *Thread) ReadWord(addr *uintptr) uintptr {
	return curAlg.read(t, addr)
}

// WriteWord is the word-granularity write barrier.
func (t *Thread) WriteWord(addr *uintptr, val uintptr) {
	curAlg.write(t, addr, val, wset.FullMask)
}

// Alloc returns memory that is reclaimed automatically if the transaction
// aborts.
func (t *Thread) Alloc(size int) []byte {
	return curAlg.alloc(t, size)
}

// Free releases memory.  Inside an aborting transaction the free never
// happens; inside a committing one it happens after every concurrent
// transaction that could observe the block has finished.
func (t *Thread) Free(b []byte) {
	curAlg.free(t, b)
}

// Load reads a value of any fixed size through the word barriers.  The
// access decomposes into one read per word it touches: at most
// ceil(size/word) word reads, plus one more when the address is unaligned.
func Load[T any](t *Thread, addr *T) T {
	var out T
	size := unsafe.Sizeof(out)
	if size == 0 {
		return out
	}

	p := uintptr(unsafe.Pointer(addr))
	if size == _wordBytes && p%_wordBytes == 0 {
		word := curAlg.read(t, (*uintptr)(unsafe.Pointer(addr)))
		return *(*T)(unsafe.Pointer(&word))
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out)), size)
	base := p &^ (_wordBytes - 1)
	offset := p - base

	var copied uintptr
	for copied < size {
		word := curAlg.read(t, (*uintptr)(unsafe.Pointer(base)))
		wb := unsafe.Slice((*byte)(unsafe.Pointer(&word)), _wordBytes)

		n := copy(dst[copied:], wb[offset:])
		copied += uintptr(n)
		offset = 0
		base += _wordBytes
	}
	return out
}

// Store writes a value of any fixed size through the word barriers, with
// byte masks covering exactly the touched range.
func Store[T any](t *Thread, addr *T, val T) {
	size := unsafe.Sizeof(val)
	if size == 0 {
		return
	}

	p := uintptr(unsafe.Pointer(addr))
	if size == _wordBytes && p%_wordBytes == 0 {
		curAlg.write(t, (*uintptr)(unsafe.Pointer(addr)), *(*uintptr)(unsafe.Pointer(&val)), wset.FullMask)
		return
	}

	src := unsafe.Slice((*byte)(unsafe.Pointer(&val)), size)
	base := p &^ (_wordBytes - 1)
	offset := p - base

	var copied uintptr
	for copied < size {
		var word, mask uintptr
		wb := unsafe.Slice((*byte)(unsafe.Pointer(&word)), _wordBytes)
		mb := unsafe.Slice((*byte)(unsafe.Pointer(&mask)), _wordBytes)

		n := copy(wb[offset:], src[copied:])
		for i := offset; i < offset+uintptr(n); i++ {
			mb[i] = 0xFF
		}

		curAlg.write(t, (*uintptr)(unsafe.Pointer(base)), word, mask)
		copied += uintptr(n)
		offset = 0
		base += _wordBytes
	}
}
