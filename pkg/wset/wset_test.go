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

package wset

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestInsertFind(t *testing.T) {
	w := New(4)
	var cells [8]uintptr

	for i := range cells {
		w.Insert(&cells[i], uintptr(i*10), FullMask)
	}
	assert.Equal(t, 8, w.Size())

	for i := range cells {
		val, mask := w.Find(&cells[i])
		assert.Equal(t, FullMask, mask)
		assert.Equal(t, uintptr(i*10), val)
	}

	var other uintptr
	_, mask := w.Find(&other)
	assert.Equal(t, uintptr(0), mask)
}

func TestInsertCoalesces(t *testing.T) {
	w := New(4)
	var cell uintptr

	w.Insert(&cell, 1, FullMask)
	w.Insert(&cell, 2, FullMask)
	assert.Equal(t, 1, w.Size())

	val, _ := w.Find(&cell)
	assert.Equal(t, uintptr(2), val)
}

func TestByteMasksUnion(t *testing.T) {
	w := New(4)
	var cell uintptr

	// low byte then byte 3
	w.Insert(&cell, 0x11, 0xFF)
	w.Insert(&cell, 0x44<<24, 0xFF<<24)
	assert.Equal(t, 1, w.Size())

	val, mask := w.Find(&cell)
	assert.Equal(t, uintptr(0xFF<<24|0xFF), mask)
	assert.Equal(t, uintptr(0x44<<24|0x11), val)

	w.Redo()
	assert.Equal(t, uintptr(0x44000011), cell)
}

func TestRedoAppliesInOrder(t *testing.T) {
	w := New(4)
	var a, b uintptr

	w.Insert(&a, 7, FullMask)
	w.Insert(&b, 9, FullMask)
	w.Redo()

	assert.Equal(t, uintptr(7), a)
	assert.Equal(t, uintptr(9), b)
}

func TestRedoProtectedSkipsRange(t *testing.T) {
	w := New(4)
	var cells [2]uintptr

	w.Insert(&cells[0], 1, FullMask)
	w.Insert(&cells[1], 2, FullMask)

	lo := uintptr(unsafe.Pointer(&cells[0]))
	w.RedoProtected(lo, lo+unsafe.Sizeof(uintptr(0)))

	assert.Equal(t, uintptr(0), cells[0])
	assert.Equal(t, uintptr(2), cells[1])
}

func TestResetIsCheapAndComplete(t *testing.T) {
	w := New(4)
	var cell uintptr

	w.Insert(&cell, 5, FullMask)
	w.Reset()
	assert.Equal(t, 0, w.Size())

	_, mask := w.Find(&cell)
	assert.Equal(t, uintptr(0), mask)

	// the set stays usable across many generations
	for range 100 {
		w.Insert(&cell, 9, FullMask)
		assert.Equal(t, 1, w.Size())
		w.Reset()
	}
}

func TestGrowthRebuildsIndex(t *testing.T) {
	w := New(2)
	cells := make([]uintptr, 500)

	for i := range cells {
		w.Insert(&cells[i], uintptr(i), FullMask)
	}
	assert.Equal(t, 500, w.Size())

	for i := range cells {
		val, mask := w.Find(&cells[i])
		assert.Equal(t, FullMask, mask)
		assert.Equal(t, uintptr(i), val)
	}
}
