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
	"sort"

	"github.com/B1NARY-GR0UP/argentum/pkg/quiesce"
)

var (
	ErrUnknownAlgorithm  = errors.New("unknown algorithm")
	ErrUnknownCM         = errors.New("unknown contention manager")
	ErrSwitchUnsupported = errors.New("algorithm does not support live switching")
)

// algorithm is one row of the dispatch table: the begin/read/write/commit/
// rollback state machine of a concurrency-control discipline, plus its
// capability flags.
type algorithm struct {
	name string

	begin    func(t *Thread) uint32
	read     func(t *Thread, addr *uintptr) uintptr
	write    func(t *Thread, addr *uintptr, val, mask uintptr)
	commit   func(t *Thread)
	rollback func(t *Thread)

	alloc func(t *Thread, size int) []byte
	free  func(t *Thread, b []byte)

	isIrrevocable     func(t *Thread) bool
	becomeIrrevocable func(t *Thread) bool

	// switcher runs under quiescence when this algorithm is switched in; it
	// must make its own clocks dominate any surviving orec versions
	switcher func()

	privatizationSafe bool

	// turboCapable algorithms keep commit-order state across transactions
	// and therefore refuse adaptive switching
	turboCapable bool
}

var registry = make(map[string]*algorithm)

// registerAlgorithm is called from each algorithm file's init.
func registerAlgorithm(a *algorithm) {
	if a.alloc == nil {
		a.alloc = defaultAlloc
	}
	if a.free == nil {
		a.free = defaultFree
	}
	if a.isIrrevocable == nil {
		a.isIrrevocable = func(*Thread) bool { return false }
	}
	if a.becomeIrrevocable == nil {
		a.becomeIrrevocable = func(*Thread) bool { return false }
	}
	if a.switcher == nil {
		a.switcher = func() {}
	}
	registry[a.name] = a
}

func defaultAlloc(t *Thread, size int) []byte {
	return t.allocator.Alloc(size)
}

func defaultFree(t *Thread, b []byte) {
	t.allocator.Free(b)
}

// curAlg is the dispatched row.  It is written at startup and inside
// quiescent switches only.
var curAlg *algorithm

// inflight gates transaction entry during algorithm switches.
var inflight = quiesce.New()

// Algorithms lists every registered algorithm name.
func Algorithms() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AlgName reports the active algorithm.
func AlgName() string {
	return curAlg.name
}

// SetAlgorithm switches the runtime to another algorithm.  It drains all
// in-flight transactions, lets the incoming algorithm observe the commit
// clock, and swaps the dispatch row.
func SetAlgorithm(name string) error {
	next, ok := registry[name]
	if !ok {
		return ErrUnknownAlgorithm
	}
	if next == curAlg {
		return nil
	}
	if curAlg.turboCapable || next.turboCapable {
		return ErrSwitchUnsupported
	}
	inflight.Pause(func() {
		next.switcher()
		curAlg = next
	})
	return nil
}
