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

	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
	"github.com/B1NARY-GR0UP/argentum/types"
)

var ErrUserAbort = errors.New("transaction cancelled by user")

// Actions a begin barrier may instruct the caller to take.
const (
	ActionRunInstrumented uint32 = 1 << iota
	ActionRunUninstrumented
	ActionSaveLiveVariables
	ActionRestoreLiveVariables
	ActionAbortTransaction
)

// abortSignal unwinds an aborted transaction back to the Atomic retry
// loop.  Rollback has already run by the time it is raised.
type abortSignal struct {
	reason types.AbortReason
}

// Atomic runs fn as a transaction and retries it until it commits.  A
// non-nil error from fn rolls the transaction back and is returned to the
// caller; Restart re-executes from the top; any other panic rolls back and
// propagates.
//
// Nested calls are flattened: only the outermost Atomic begins, commits,
// and recovers.
func (t *Thread) Atomic(fn func() error) error {
	if t.nesting > 0 {
		t.nesting++
		defer func() {
			t.nesting--
		}()
		return fn()
	}

	for {
		err, retry := t.attempt(fn)
		if !retry {
			return err
		}
	}
}

func (t *Thread) attempt(fn func() error) (err error, retry bool) {
	inflight.Enter()
	// the dispatch row is stable from here: switches only happen with the
	// gate closed and the in-flight count drained
	alg := curAlg
	t.nesting = 1

	defer func() {
		r := recover()
		if r != nil {
			if _, ok := r.(abortSignal); !ok {
				// a foreign panic is escaping the transaction; release
				// everything it holds before letting it unwind further
				alg.rollback(t)
				t.nesting = 0
				inflight.Exit()
				panic(r)
			}
		}
		t.nesting = 0
		inflight.Exit()
		if r == nil {
			return
		}
		switch r.(abortSignal).reason {
		case types.AbortConflict, types.AbortRetry:
			retry = true
		default:
			err = ErrUserAbort
		}
	}()

	alg.begin(t)
	if uerr := fn(); uerr != nil {
		alg.rollback(t)
		return uerr, false
	}
	alg.commit(t)
	return nil, false
}

// tmAbort rolls the transaction back and unwinds to the checkpoint.  Every
// barrier is a potential call site.
func (t *Thread) tmAbort() {
	curAlg.rollback(t)
	panic(abortSignal{reason: types.AbortConflict})
}

// Restart rolls the transaction back and re-executes it from the top.
func (t *Thread) Restart() {
	curAlg.rollback(t)
	panic(abortSignal{reason: types.AbortRetry})
}

// Cancel rolls the transaction back and makes Atomic return ErrUserAbort.
func (t *Thread) Cancel() {
	curAlg.rollback(t)
	panic(abortSignal{reason: types.AbortUser})
}

// IsIrrevocable reports whether the running transaction can no longer
// abort.
func (t *Thread) IsIrrevocable() bool {
	return curAlg.isIrrevocable(t)
}

// BecomeIrrevocable asks the algorithm to make the running transaction
// irrevocable.  Most algorithms have no such path, which is fatal by
// contract rather than a recoverable error.
func (t *Thread) BecomeIrrevocable() {
	if !curAlg.becomeIrrevocable(t) {
		logger.GetLogger().Panicf("%s cannot become irrevocable", curAlg.name)
	}
}
