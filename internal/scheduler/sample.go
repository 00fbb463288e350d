// Copyright 2026 The Ultrasearch Authors
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

package scheduler

import "time"

// LoadSample is one tick's OS-level load reading: global
// CPU/memory percentages, an aggregate physical-disk byte rate, and the
// two binary flags (AC power, full-screen/game-mode) the content queue's
// gating consults.
type LoadSample struct {
	CPUPercent      float64 // 0..1
	MemPercent      float64 // 0..1
	DiskBytesPerSec int64
	OnBattery       bool
	GameMode        bool
}

// DiskBusy reports whether the sample's disk throughput meets or exceeds
// the configured threshold.
func (l LoadSample) DiskBusy(threshold int64) bool {
	return l.DiskBytesPerSec >= threshold
}

// Sampler produces one load reading and the duration since the last user
// input, once per scheduler tick. It is implemented per-platform
// (sample_windows.go drives GetLastInputInfo and the system's perf
// counters; sample_other.go is a portable fallback for non-Windows
// development builds), the same split internal/volume, internal/mft, and
// internal/usn use for their own OS boundaries. Tests inject a fakeSampler
// directly rather than going through a platform file.
type Sampler interface {
	Sample() (LoadSample, time.Duration)
}

// fakeSampler is a scriptable Sampler used by this package's own tests.
type fakeSampler struct {
	sample LoadSample
	idle   time.Duration
}

func (f *fakeSampler) Sample() (LoadSample, time.Duration) { return f.sample, f.idle }
