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

import "fmt"

func isValidLogRotateConfig(c *LogRotateConfig) error {
	if c.MaxFileSizeMb <= 0 {
		return fmt.Errorf("logging.log-rotate.max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("logging.log-rotate.backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

func isValidSchedulerConfig(c *SchedulerConfig) error {
	if c.WarmThresholdSecs < 0 || c.DeepThresholdSecs < 0 {
		return fmt.Errorf("scheduler thresholds must be non-negative")
	}
	if c.DeepThresholdSecs < c.WarmThresholdSecs {
		return fmt.Errorf("scheduler.deep-threshold-secs must be >= scheduler.warm-threshold-secs")
	}
	if c.MetadataCPUCap <= 0 || c.MetadataCPUCap > 1 {
		return fmt.Errorf("scheduler.metadata-cpu-cap must be in (0, 1]")
	}
	if c.ContentCPUCap <= 0 || c.ContentCPUCap > 1 {
		return fmt.Errorf("scheduler.content-cpu-cap must be in (0, 1]")
	}
	if c.CriticalPerTick <= 0 || c.MetadataPerTick <= 0 || c.ContentPerTick <= 0 {
		return fmt.Errorf("scheduler per-tick admission limits must be positive")
	}
	if c.MaxBytesPerTick <= 0 {
		return fmt.Errorf("scheduler.max-bytes-per-tick must be positive")
	}
	return nil
}

func isValidExtractionConfig(c *ExtractionConfig) error {
	if c.MaxBytes <= 0 {
		return fmt.Errorf("extraction.max-bytes must be positive")
	}
	if c.MaxChars <= 0 {
		return fmt.Errorf("extraction.max-chars must be positive")
	}
	if c.WorkerCPUCapPercent <= 0 || c.WorkerCPUCapPercent > 100 {
		return fmt.Errorf("extraction.worker-cpu-cap-percent must be in (0, 100]")
	}
	return nil
}

func isValidIPCConfig(c *IPCConfig) error {
	if c.Endpoint == "" {
		return fmt.Errorf("ipc.endpoint must not be empty")
	}
	if c.MaxFrameBytes <= 0 || c.MaxFrameBytes > 256*1024 {
		return fmt.Errorf("ipc.max-frame-bytes must be in (0, 262144]")
	}
	return nil
}

// Validate returns a non-nil error if the config is invalid.
func Validate(c *Config) error {
	if err := isValidLogRotateConfig(&c.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing logging config: %w", err)
	}
	if err := isValidSchedulerConfig(&c.Scheduler); err != nil {
		return fmt.Errorf("error parsing scheduler config: %w", err)
	}
	if err := isValidExtractionConfig(&c.Extraction); err != nil {
		return fmt.Errorf("error parsing extraction config: %w", err)
	}
	if err := isValidIPCConfig(&c.IPC); err != nil {
		return fmt.Errorf("error parsing ipc config: %w", err)
	}
	if c.DataRoot == "" {
		return fmt.Errorf("data-root must not be empty")
	}
	return nil
}
