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

//go:build !windows

package scheduler

import "time"

// osSampler is the portable fallback used by non-Windows development
// builds: the idle/load signals (GetLastInputInfo, perf counters)
// are Windows-only, so off-Windows this reports a permanently-idle,
// zero-load machine rather than guessing at a substitute API. Production
// deployments are Windows-only; this keeps the module
// buildable elsewhere for development and the test suite.
type osSampler struct{}

// NewOSSampler builds the portable fallback Sampler.
func NewOSSampler() Sampler { return &osSampler{} }

func (s *osSampler) Sample() (LoadSample, time.Duration) {
	return LoadSample{}, 24 * time.Hour
}
