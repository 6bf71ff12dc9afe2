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

package mvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertAndItems(t *testing.T) {
	v := New[int](4)
	for i := range 10 {
		v.Insert(i)
	}

	assert.Equal(t, 10, v.Size())
	items := v.Items()
	for i := range 10 {
		assert.Equal(t, i, items[i])
	}
}

func TestGrowthDoubles(t *testing.T) {
	v := New[int](2)
	for i := range 100 {
		v.Insert(i)
	}
	assert.Equal(t, 100, v.Size())
	assert.Equal(t, 99, v.Items()[99])
}

func TestResetKeepsCapacity(t *testing.T) {
	v := New[int](4)
	for i := range 8 {
		v.Insert(i)
	}

	v.Reset()
	assert.Equal(t, 0, v.Size())
	assert.Empty(t, v.Items())

	v.Insert(42)
	assert.Equal(t, 1, v.Size())
	assert.Equal(t, 42, v.Items()[0])
}
