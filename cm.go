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
	"github.com/B1NARY-GR0UP/argentum/pkg/spin"
	"github.com/B1NARY-GR0UP/argentum/types"
)

// ContentionManager is the policy hook an algorithm consults around its
// conflict rule.  Any algorithm composes with any policy.
type ContentionManager interface {
	OnBegin(t *Thread)
	OnAbort(t *Thread)
	OnCommit(t *Thread)
	// MayKill asks whether t may remotely abort the transaction owned by
	// thread other.
	MayKill(t *Thread, other int) bool
}

var cmRegistry = map[string]func() ContentionManager{
	"HyperAggressive":  func() ContentionManager { return hyperAggressiveCM{} },
	"Backoff":          func() ContentionManager { return backoffCM{} },
	"FCM":              func() ContentionManager { return fcmCM{} },
	"Hourglass":        func() ContentionManager { return &hourglassCM{} },
	"StrongHourglass":  func() ContentionManager { return &hourglassCM{strong: true} },
	"HourglassBackoff": func() ContentionManager { return &hourglassCM{backoff: true} },
}

var curCM ContentionManager = hyperAggressiveCM{}

// expBackoff sleeps for a randomized interval that doubles with each
// consecutive abort, bounded by the configured exponents.
func expBackoff(t *Thread) {
	shift := curConfig.BackoffMinExp + t.consecAborts
	if shift > curConfig.BackoffMaxExp {
		shift = curConfig.BackoffMaxExp
	}
	t.seed = spin.NextRand(t.seed)
	spin.SleepNanos(uint64(t.seed) % (uint64(1) << shift))
}

// hyperAggressiveCM never yields; the algorithm's own conflict rule decides
// every outcome.
type hyperAggressiveCM struct{}

func (hyperAggressiveCM) OnBegin(*Thread)           {}
func (hyperAggressiveCM) OnAbort(*Thread)           {}
func (hyperAggressiveCM) OnCommit(*Thread)          {}
func (hyperAggressiveCM) MayKill(*Thread, int) bool { return true }

// backoffCM sleeps on abort.
type backoffCM struct{}

func (backoffCM) OnBegin(*Thread)           {}
func (backoffCM) OnCommit(*Thread)          {}
func (backoffCM) MayKill(*Thread, int) bool { return true }

func (backoffCM) OnAbort(t *Thread) {
	expBackoff(t)
}

// fcmCM stamps each transaction with a fairness timestamp at begin; older
// transactions may kill younger ones.
type fcmCM struct{}

func (fcmCM) OnAbort(*Thread)  {}
func (fcmCM) OnCommit(*Thread) {}

func (fcmCM) OnBegin(t *Thread) {
	cmEpochs[t.id].val.Store(fcmTimestamp.val.Add(1) - 1)
}

func (fcmCM) MayKill(t *Thread, other int) bool {
	return threads[other] != nil &&
		types.TxStatus(threads[other].alive.Load()) == types.TxActive &&
		cmEpochs[t.id].val.Load() < cmEpochs[other].val.Load()
}

// hourglassCM serializes a distressed transaction: after enough
// consecutive aborts it takes the hourglass token and runs alone until it
// commits.  The strong variant insists on entering; the backoff variant
// sleeps after each abort that has not yet passed the threshold.
type hourglassCM struct {
	strong  bool
	backoff bool
}

func (h *hourglassCM) OnBegin(t *Thread) {
	if t.strongHG {
		return
	}
	for fcmTimestamp.val.Load() != 0 {
		spin.Yield()
	}
}

func (h *hourglassCM) OnAbort(t *Thread) {
	// already serialized, nothing more to escalate
	if t.strongHG {
		return
	}
	if t.consecAborts > curConfig.AbortThreshold {
		if h.strong {
			for {
				if fcmTimestamp.val.CompareAndSwap(0, 1) {
					t.strongHG = true
					return
				}
				for fcmTimestamp.val.Load() != 0 {
					spin.Yield()
				}
			}
		}
		if fcmTimestamp.val.CompareAndSwap(0, 1) {
			t.strongHG = true
		}
		return
	}
	if h.backoff {
		expBackoff(t)
	}
}

func (h *hourglassCM) OnCommit(t *Thread) {
	if t.strongHG {
		fcmTimestamp.val.Store(0)
		t.strongHG = false
	}
}

func (h *hourglassCM) MayKill(*Thread, int) bool { return true }
