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

// budget is the per-tick (max_files, max_bytes) admission ceiling,
// computed from the current idle/load state and filled from the
// highest-priority queue down. Active state only has room for the critical queue's own per-tick
// cap (so critical admission, tested independently of this budget, is
// never starved by it); WarmIdle adds metadata's room; DeepIdle adds
// content's.
type budget struct {
	MaxFiles int
	MaxBytes int64
}

func computeBudget(cfg Config, idle IdleState) budget {
	switch idle {
	case WarmIdle:
		return budget{
			MaxFiles: cfg.CriticalPerTick + cfg.MetadataPerTick,
			MaxBytes: cfg.MaxBytesPerTick / 2,
		}
	case DeepIdle:
		return budget{
			MaxFiles: cfg.CriticalPerTick + cfg.MetadataPerTick + cfg.ContentPerTick,
			MaxBytes: cfg.MaxBytesPerTick,
		}
	default: // Active
		return budget{
			MaxFiles: cfg.CriticalPerTick,
			MaxBytes: cfg.MaxBytesPerTick / 4,
		}
	}
}
