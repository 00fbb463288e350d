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

package cfg

import (
	"os"
	"path/filepath"
)

// DefaultDataRoot returns the platform data root: %PROGRAMDATA%\ultrasearch
// on Windows, XDG data home (or ~/.local/share) elsewhere.
func DefaultDataRoot() string {
	if pd := os.Getenv("PROGRAMDATA"); pd != "" {
		return filepath.Join(pd, "ultrasearch")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ultrasearch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "ultrasearch")
}

// DefaultIPCEndpoint returns the platform-natural local duplex address:
// a named pipe path on Windows, a unix socket path elsewhere (used by this
// module's tests and by non-Windows development builds).
func DefaultIPCEndpoint() string {
	return defaultIPCEndpoint()
}

// Default returns a Config populated with the stock defaults.
func Default() *Config {
	return &Config{
		AppName:  "ultrasearch",
		DataRoot: DefaultDataRoot(),
		Logging: LoggingConfig{
			Severity: SeverityInfo,
			Format:   "text",
			LogRotate: LogRotateConfig{
				MaxFileSizeMb:   100,
				BackupFileCount: 5,
				Compress:        true,
			},
		},
		Index: IndexConfig{
			HotHeapSizeMb:     32,
			ColdHeapSizeMb:    256,
			PathCacheCapacity: 1000,
		},
		Scheduler: SchedulerConfig{
			WarmThresholdSecs:   15,
			DeepThresholdSecs:   60,
			MetadataCPUCap:      0.5,
			ContentCPUCap:       0.2,
			DiskBusyBytesPerSec: 50 << 20,
			CriticalPerTick:     16,
			MetadataPerTick:     256,
			ContentPerTick:      64,
			ContentBatchSize:    16,
			QueueHighWaterMark:  10_000,
			MaxBytesPerTick:     64 << 20,
		},
		Extraction: ExtractionConfig{
			MaxBytes:            10 << 20,
			MaxChars:             100_000,
			OCREnabled:           false,
			WorkerCPUCapPercent:  20,
			RequeueLimit:         1,
		},
		IPC: IPCConfig{
			Endpoint:      DefaultIPCEndpoint(),
			MaxFrameBytes: 256 * 1024,
		},
	}
}
