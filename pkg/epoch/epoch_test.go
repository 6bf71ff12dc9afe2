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

package epoch

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	a := NewAllocator(0)

	for _, size := range []int{1, 7, 8, 63, 64, 1000} {
		b := a.Alloc(size)
		require.Len(t, b, size)
		assert.Zero(t, uintptr(unsafe.Pointer(&b[0]))%unsafe.Sizeof(uintptr(0)))
	}
}

func TestAbortRecyclesAllocations(t *testing.T) {
	a := NewAllocator(1)

	a.OnTxBegin()
	b := a.Alloc(64)
	p := &b[0]
	a.OnTxAbort()

	// the aborted block is back in the pool; the next same-class request
	// reuses it
	b2 := a.Alloc(64)
	assert.Equal(t, p, &b2[0])
}

func TestCommitKeepsAllocations(t *testing.T) {
	a := NewAllocator(2)

	a.OnTxBegin()
	b := a.Alloc(64)
	p := &b[0]
	a.OnTxCommit()

	b2 := a.Alloc(64)
	assert.NotEqual(t, p, &b2[0])
}

func TestAbortDiscardsFrees(t *testing.T) {
	a := NewAllocator(3)
	b := a.Alloc(32)
	p := &b[0]

	a.OnTxBegin()
	a.Free(b)
	a.OnTxAbort()

	// the free never happened; the block is still ours, not in the pool
	b2 := a.Alloc(32)
	assert.NotEqual(t, p, &b2[0])
}

func TestLimboHoldsWhileTransactionLive(t *testing.T) {
	a := NewAllocator(4)
	other := NewAllocator(5)

	// the other thread sits inside a transaction for the whole test
	other.OnTxBegin()

	// push enough frees through pre-limbo to seal a generation
	for range _prelimboCap + 1 {
		a.Free(a.Alloc(16))
	}
	require.NotEmpty(t, a.limbo, "a sealed generation should be parked in limbo")

	a.Sweep()
	assert.NotEmpty(t, a.limbo, "limbo must hold while a snapshot transaction is live")

	// once the transaction finishes, the generation expires
	other.OnTxCommit()
	a.Sweep()
	assert.Empty(t, a.limbo)
}

func TestEpochParity(t *testing.T) {
	a := NewAllocator(6)

	assert.False(t, a.inTx())
	a.OnTxBegin()
	assert.True(t, a.inTx())
	a.OnTxCommit()
	assert.False(t, a.inTx())
}

func TestSizeClass(t *testing.T) {
	word := int(unsafe.Sizeof(uintptr(0)))
	tests := []struct {
		size     int
		expected int
	}{
		{1, word},
		{word, word},
		{word + 1, 2 * word},
		{100, 128},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sizeClass(tt.size))
	}
}
