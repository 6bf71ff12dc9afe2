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
	"bytes"

	natomic "github.com/natefinch/atomic"

	"github.com/B1NARY-GR0UP/argentum/pkg/bufferpool"
	"github.com/B1NARY-GR0UP/argentum/pkg/utils"
	"github.com/B1NARY-GR0UP/argentum/types"
)

// Report snapshots every descriptor's counters.  Counters are maintained
// by their owning threads without atomics, so a report taken while
// transactions are running is approximate.
func Report() *types.Profile {
	profile := types.NewProfile()
	profile.Algorithm = AlgName()
	for i := 0; i < liveThreads(); i++ {
		t := threads[i]
		if t == nil {
			continue
		}
		profile.Threads = append(profile.Threads, &types.ThreadStats{
			ID:        int32(t.id),
			CommitsRO: int64(t.commitsRO),
			CommitsRW: int64(t.commitsRW),
			Aborts:    int64(t.aborts),
		})
	}
	return profile
}

// dumpProfile serializes the profile, compresses it, and writes the file
// atomically so a crash mid-dump never leaves a torn stats file.
func dumpProfile(path string) error {
	raw, err := utils.TMarshal(Report())
	if err != nil {
		return err
	}

	compressed := bufferpool.Get()
	defer bufferpool.Put(compressed)
	if err := utils.Compress(bytes.NewReader(raw), compressed); err != nil {
		return err
	}

	return natomic.WriteFile(path, compressed)
}

// ReadProfile decodes a dump written by a previous run.
func ReadProfile(data []byte) (*types.Profile, error) {
	decompressed := bufferpool.Get()
	defer bufferpool.Put(decompressed)
	if err := utils.Decompress(bytes.NewReader(data), decompressed); err != nil {
		return nil, err
	}

	profile := types.NewProfile()
	if err := utils.TUnmarshal(decompressed.Bytes(), profile); err != nil {
		return nil, err
	}
	return profile, nil
}
