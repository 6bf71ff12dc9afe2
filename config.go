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
	"encoding/json"
	"os"

	"github.com/tailscale/hujson"
)

// Environment variables recognized by LoadConfig.
const (
	EnvConfig     = "STM_CONFIG"
	EnvCM         = "STM_CM"
	EnvStats      = "STM_STATS"
	EnvConfigFile = "STM_CONFIG_FILE"
)

type Config struct {
	// Algorithm selected at startup
	Algorithm string `json:"algorithm"`

	// ContentionManager plugged into the algorithm
	ContentionManager string `json:"contention_manager"`

	// Backoff Config
	// randomized exponential backoff sleeps for a random number of
	// nanoseconds below 2^(min+consecutive aborts), capped at 2^max
	BackoffMinExp uint32 `json:"backoff_min_exp"`
	BackoffMaxExp uint32 `json:"backoff_max_exp"`

	// Hourglass Config
	// consecutive aborts before a transaction requests serial execution
	AbortThreshold uint32 `json:"abort_threshold"`

	// Visible-reader Config
	// spin bounds before a byte/bitlock wait becomes a conflict
	ReadTimeout    uint32 `json:"read_timeout"`
	AcquireTimeout uint32 `json:"acquire_timeout"`
	DrainTimeout   uint32 `json:"drain_timeout"`

	// Log Config
	WriteSetCapacity int `json:"write_set_capacity"`
	LogCapacity      int `json:"log_capacity"`

	// StatsFile receives a compressed profile dump at shutdown
	StatsFile string `json:"stats_file"`
}

var DefaultConfig = Config{
	Algorithm:         "NOrec",
	ContentionManager: "HyperAggressive",
	BackoffMinExp:     4,
	BackoffMaxExp:     16,
	AbortThreshold:    2,
	ReadTimeout:       32,
	AcquireTimeout:    128,
	DrainTimeout:      256,
	WriteSetCapacity:  64,
	LogCapacity:       64,
}

func (c *Config) validate() error {
	if c.Algorithm == "" {
		c.Algorithm = DefaultConfig.Algorithm
	}
	if c.ContentionManager == "" {
		c.ContentionManager = DefaultConfig.ContentionManager
	}
	if c.BackoffMinExp == 0 {
		c.BackoffMinExp = DefaultConfig.BackoffMinExp
	}
	if c.BackoffMaxExp <= c.BackoffMinExp {
		c.BackoffMaxExp = c.BackoffMinExp + (DefaultConfig.BackoffMaxExp - DefaultConfig.BackoffMinExp)
	}
	if c.AbortThreshold == 0 {
		c.AbortThreshold = DefaultConfig.AbortThreshold
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultConfig.ReadTimeout
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = DefaultConfig.AcquireTimeout
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = DefaultConfig.DrainTimeout
	}
	if c.WriteSetCapacity <= 0 {
		c.WriteSetCapacity = DefaultConfig.WriteSetCapacity
	}
	if c.LogCapacity <= 0 {
		c.LogCapacity = DefaultConfig.LogCapacity
	}
	if _, ok := registry[c.Algorithm]; !ok {
		return ErrUnknownAlgorithm
	}
	if _, ok := cmRegistry[c.ContentionManager]; !ok {
		return ErrUnknownCM
	}
	return nil
}

// LoadConfig layers the startup configuration: defaults, then the HuJSON
// file named by STM_CONFIG_FILE, then the environment variables.
func LoadConfig() (Config, error) {
	config := DefaultConfig

	if file := os.Getenv(EnvConfigFile); file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return config, err
		}
		std, err := hujson.Standardize(raw)
		if err != nil {
			return config, err
		}
		if err := json.Unmarshal(std, &config); err != nil {
			return config, err
		}
	}

	if alg := os.Getenv(EnvConfig); alg != "" {
		config.Algorithm = alg
	}
	if cm := os.Getenv(EnvCM); cm != "" {
		config.ContentionManager = cm
	}
	if stats := os.Getenv(EnvStats); stats != "" {
		config.StatsFile = stats
	}
	return config, nil
}
