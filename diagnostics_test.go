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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCountsCommits(t *testing.T) {
	useAlgorithm(t, "NOrec")
	th := getThread(t)
	cell := new(uintptr)

	require.NoError(t, increment(th, cell))
	require.NoError(t, th.Atomic(func() error { return nil }))

	profile := Report()
	assert.Equal(t, "NOrec", profile.Algorithm)

	var found bool
	for _, stats := range profile.Threads {
		if int(stats.ID) == th.ID() {
			found = true
			assert.GreaterOrEqual(t, stats.CommitsRW, int64(1))
			assert.GreaterOrEqual(t, stats.CommitsRO, int64(1))
		}
	}
	assert.True(t, found)
}

func TestProfileDumpRoundTrip(t *testing.T) {
	useAlgorithm(t, "NOrec")
	th := getThread(t)
	cell := new(uintptr)
	require.NoError(t, increment(th, cell))

	path := filepath.Join(t.TempDir(), "stm-stats.bin")
	require.NoError(t, dumpProfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	profile, err := ReadProfile(data)
	require.NoError(t, err)

	assert.Equal(t, "NOrec", profile.Algorithm)
	assert.NotEmpty(t, profile.Threads)
}
