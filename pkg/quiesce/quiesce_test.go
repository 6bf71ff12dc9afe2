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

package quiesce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnterExit(t *testing.T) {
	tr := New()

	tr.Enter()
	tr.Enter()
	assert.Equal(t, uint64(2), tr.state.Load()&_activeMask)

	tr.Exit()
	tr.Exit()
	assert.Equal(t, uint64(0), tr.state.Load())
}

func TestPauseWaitsForDrain(t *testing.T) {
	tr := New()
	tr.Enter()

	var paused atomic.Bool
	done := make(chan struct{})
	go func() {
		tr.Pause(func() {
			paused.Store(true)
		})
		close(done)
	}()

	// the pause cannot complete while we are inside
	time.Sleep(10 * time.Millisecond)
	assert.False(t, paused.Load())

	tr.Exit()
	<-done
	assert.True(t, paused.Load())
	assert.Equal(t, uint64(0), tr.state.Load())
}

func TestGateBlocksEnter(t *testing.T) {
	tr := New()

	release := make(chan struct{})
	pauseRunning := make(chan struct{})
	go tr.Pause(func() {
		close(pauseRunning)
		<-release
	})

	<-pauseRunning

	entered := make(chan struct{})
	go func() {
		tr.Enter()
		defer tr.Exit()
		close(entered)
	}()

	select {
	case <-entered:
		t.Fatal("Enter must block while the gate is closed")
	case <-time.After(10 * time.Millisecond):
	}

	close(release)
	<-entered
}

func TestConcurrentChurn(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	var inside atomic.Int64
	var maxDuringPause atomic.Int64

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				tr.Enter()
				inside.Add(1)
				inside.Add(-1)
				tr.Exit()
			}
		}()
	}

	for range 10 {
		tr.Pause(func() {
			if n := inside.Load(); n > maxDuringPause.Load() {
				maxDuringPause.Store(n)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int64(0), maxDuringPause.Load())
	assert.Equal(t, uint64(0), tr.state.Load())
}
