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

	"github.com/B1NARY-GR0UP/argentum/pkg/logger"
)

type State uint32

const (
	_ State = iota
	StateInitialize
	StateOpened
	StateClosed
)

var (
	sysMu     sync.Mutex
	sysState  State
	curConfig = DefaultConfig
)

// SysInit installs the configured algorithm and contention manager.  It is
// idempotent; a second call while open is a no-op.
func SysInit(config Config) error {
	sysMu.Lock()
	defer sysMu.Unlock()

	if sysState == StateOpened {
		return nil
	}
	sysState = StateInitialize

	if err := config.validate(); err != nil {
		return err
	}
	curConfig = config
	curCM = cmRegistry[config.ContentionManager]()

	next := registry[config.Algorithm]
	next.switcher()
	curAlg = next

	sysState = StateOpened
	logger.GetLogger().Infof("stm runtime up: algorithm=%s cm=%s", config.Algorithm, config.ContentionManager)
	return nil
}

// SysShutdown reports per-thread statistics and, when configured, writes
// the compressed profile dump.  Idempotent.
func SysShutdown() {
	sysMu.Lock()
	defer sysMu.Unlock()

	if sysState != StateOpened {
		return
	}
	sysState = StateClosed

	log := logger.GetLogger()
	for i := 0; i < liveThreads(); i++ {
		t := threads[i]
		if t == nil {
			continue
		}
		log.Infof("thread: %d; ro commits: %d; rw commits: %d; aborts: %d",
			t.id, t.commitsRO, t.commitsRW, t.aborts)
	}

	if curConfig.StatsFile != "" {
		if err := dumpProfile(curConfig.StatsFile); err != nil {
			log.Errorf("failed to dump profile: %v", err)
		}
	}
}

// ensureSysInit backs the lazy path: a ThreadInit with no prior SysInit
// brings the runtime up from the environment.
func ensureSysInit() {
	sysMu.Lock()
	opened := sysState == StateOpened
	sysMu.Unlock()
	if opened {
		return
	}

	config, err := LoadConfig()
	if err != nil {
		logger.GetLogger().Panicf("failed to load stm config: %v", err)
	}
	if err := SysInit(config); err != nil {
		logger.GetLogger().Panicf("failed to init stm runtime: %v", err)
	}
}
