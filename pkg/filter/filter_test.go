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

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddContains(t *testing.T) {
	f := New(64, 0.01)

	for addr := uintptr(0x1000); addr < 0x1200; addr += 8 {
		f.Add(addr)
	}
	for addr := uintptr(0x1000); addr < 0x1200; addr += 8 {
		assert.True(t, f.Contains(addr))
	}
}

func TestContainsNeverFalseNegative(t *testing.T) {
	f := New(16, 0.02)
	f.Add(0xDEADBEEF)
	assert.True(t, f.Contains(0xDEADBEEF))
}

func TestReset(t *testing.T) {
	f := New(64, 0.01)
	f.Add(0x2000)
	assert.True(t, f.Contains(0x2000))

	f.Reset()
	assert.False(t, f.Contains(0x2000))

	// usable again after reset
	f.Add(0x3000)
	assert.True(t, f.Contains(0x3000))
}

func TestFalsePositiveRate(t *testing.T) {
	n := 1000
	f := New(n, 0.01)
	for i := range n {
		f.Add(uintptr(i * 8))
	}

	hits := 0
	probes := 10000
	for i := range probes {
		if f.Contains(uintptr(i)*0x9E3779B9 + 3) {
			hits++
		}
	}
	// generous bound; expected ~1%
	assert.Less(t, hits, probes/10)
}
