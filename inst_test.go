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
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sub-word stores must only touch their own bytes, under redo logging,
// undo logging, and visible readers alike.
func TestSubWordAccess(t *testing.T) {
	for _, name := range []string{"NOrec", "OrecEager", "ByteEager"} {
		t.Run(name, func(t *testing.T) {
			useAlgorithm(t, name)
			th := getThread(t)

			var buf [4]uint64
			buf[0] = 0x1111111111111111

			// bytes 4..8 of the first word
			p32 := (*uint32)(unsafe.Add(unsafe.Pointer(&buf[0]), 4))

			err := th.Atomic(func() error {
				Store(th, p32, uint32(0xAABBCCDD))
				assert.Equal(t, uint32(0xAABBCCDD), Load(th, p32))
				return nil
			})
			require.NoError(t, err)

			assert.Equal(t, uint32(0xAABBCCDD), *p32)
			// the low half of the word is untouched
			assert.Equal(t, uint32(0x11111111), uint32(buf[0]))
		})
	}
}

// An access that straddles a word boundary decomposes into two masked
// word barriers.
func TestUnalignedCrossWordAccess(t *testing.T) {
	useAlgorithm(t, "NOrec")
	th := getThread(t)

	var buf [4]uint64
	buf[0] = 0xAAAAAAAAAAAAAAAA
	buf[1] = 0xBBBBBBBBBBBBBBBB

	// 8 bytes starting at offset 4: upper half of word 0, lower half of
	// word 1
	span := (*[2]uint32)(unsafe.Add(unsafe.Pointer(&buf[0]), 4))

	err := th.Atomic(func() error {
		Store(th, span, [2]uint32{0x01020304, 0x05060708})
		assert.Equal(t, [2]uint32{0x01020304, 0x05060708}, Load(th, span))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, [2]uint32{0x01020304, 0x05060708}, *span)
	// neighbors keep their bytes
	assert.Equal(t, uint32(0xAAAAAAAA), uint32(buf[0]))
	assert.Equal(t, uint32(0xBBBBBBBB), uint32(buf[1]>>32))
}

// A rolled-back transaction leaves sub-word targets untouched.
func TestSubWordRollback(t *testing.T) {
	errBoom := errors.New("boom")
	for _, name := range []string{"NOrec", "OrecEager"} {
		t.Run(name, func(t *testing.T) {
			useAlgorithm(t, name)
			th := getThread(t)

			var val uint64 = 0x1234567812345678
			p8 := (*uint8)(unsafe.Pointer(&val))

			err := th.Atomic(func() error {
				Store(th, p8, uint8(0xFF))
				return errBoom
			})
			assert.Equal(t, errBoom, err)
			assert.Equal(t, uint64(0x1234567812345678), val)
		})
	}
}

// Byte-masked writes to the same word coalesce without losing bytes.
func TestByteMaskCoalescing(t *testing.T) {
	useAlgorithm(t, "OrecLazy")
	th := getThread(t)

	var word uint64
	b0 := (*uint8)(unsafe.Pointer(&word))
	b3 := (*uint8)(unsafe.Add(unsafe.Pointer(&word), 3))

	err := th.Atomic(func() error {
		Store(th, b0, uint8(0x11))
		Store(th, b3, uint8(0x44))
		assert.Equal(t, uint8(0x11), Load(th, b0))
		assert.Equal(t, uint8(0x44), Load(th, b3))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(0x44000011), word)
}
