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
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsDefaults(t *testing.T) {
	var config Config
	require.NoError(t, config.validate())

	if diff := cmp.Diff(DefaultConfig, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateRejectsUnknownNames(t *testing.T) {
	config := Config{Algorithm: "NoSuchSTM"}
	assert.Equal(t, ErrUnknownAlgorithm, config.validate())

	config = Config{ContentionManager: "NoSuchCM"}
	assert.Equal(t, ErrUnknownCM, config.validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stm.hujson")

	// HuJSON: comments and trailing commas are fine
	raw := `{
		// pick the visible-reader algorithm
		"algorithm": "ByteEager",
		"contention_manager": "Backoff",
		"read_timeout": 64,
	}`
	require.NoError(t, os.WriteFile(file, []byte(raw), 0644))

	t.Setenv(EnvConfigFile, file)
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvCM, "")
	t.Setenv(EnvStats, "")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "ByteEager", config.Algorithm)
	assert.Equal(t, "Backoff", config.ContentionManager)
	assert.Equal(t, uint32(64), config.ReadTimeout)
	// untouched fields keep their defaults
	assert.Equal(t, DefaultConfig.AcquireTimeout, config.AcquireTimeout)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stm.hujson")
	require.NoError(t, os.WriteFile(file, []byte(`{"algorithm": "TML"}`), 0644))

	t.Setenv(EnvConfigFile, file)
	t.Setenv(EnvConfig, "OrecELA")
	t.Setenv(EnvCM, "FCM")
	t.Setenv(EnvStats, "/tmp/stats.bin")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "OrecELA", config.Algorithm)
	assert.Equal(t, "FCM", config.ContentionManager)
	assert.Equal(t, "/tmp/stats.bin", config.StatsFile)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.hujson"))

	_, err := LoadConfig()
	assert.Error(t, err)
}
