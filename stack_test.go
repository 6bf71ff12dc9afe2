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

	"github.com/stretchr/testify/assert"
)

// txStack is a bounded stack whose every access goes through the word
// barriers.
type txStack struct {
	top   uintptr
	items [8192]uintptr
}

func (s *txStack) push(th *Thread, v uintptr) error {
	return th.Atomic(func() error {
		top := th.ReadWord(&s.top)
		th.WriteWord(&s.items[top], v)
		th.WriteWord(&s.top, top+1)
		return nil
	})
}

func (s *txStack) pop(th *Thread) (uintptr, bool, error) {
	var v uintptr
	var ok bool
	err := th.Atomic(func() error {
		top := th.ReadWord(&s.top)
		if top == 0 {
			ok = false
			return nil
		}
		v = th.ReadWord(&s.items[top-1])
		th.WriteWord(&s.top, top-1)
		ok = true
		return nil
	})
	return v, ok, err
}

// Concurrent pushes and pops must conserve elements: nothing lost, nothing
// popped twice.
func TestStackPushPop(t *testing.T) {
	const (
		workers   = 2
		pushPerID = 600
		popsPerID = 400
	)

	for _, name := range []string{"NOrec", "OrecEager", "OrecLazy", "ByteEager", "CToken"} {
		t.Run(name, func(t *testing.T) {
			useAlgorithm(t, name)

			stack := &txStack{}
			popped := make([][]uintptr, workers)
			ths := make([]*Thread, workers)
			for i := range ths {
				ths[i] = getThread(t)
			}

			var wg sync.WaitGroup
			for w := range workers {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					th := ths[w]
					for i := range pushPerID {
						v := uintptr(w+1)<<32 | uintptr(i)
						assert.NoError(t, stack.push(th, v))

						if i < popsPerID {
							v, ok, err := stack.pop(th)
							assert.NoError(t, err)
							if ok {
								popped[w] = append(popped[w], v)
							}
						}
					}
				}(w)
			}
			wg.Wait()

			// multiset conservation: popped + remaining == pushed
			seen := make(map[uintptr]int)
			for _, vals := range popped {
				for _, v := range vals {
					seen[v]++
				}
			}
			for i := uintptr(0); i < stack.top; i++ {
				seen[stack.items[i]]++
			}

			total := 0
			for v, n := range seen {
				assert.Equal(t, 1, n, "element %x seen %d times", v, n)
				total += n
			}
			assert.Equal(t, workers*pushPerID, total)
		})
	}
}
