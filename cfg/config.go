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

// Package cfg holds the indexer's configuration surface: the Config struct,
// its cobra/pflag/viper bindings, defaults, and validation.
package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Severity is the logging/verbosity ladder shared by the logger and the
// fuse-style legacy debug flags.
type Severity string

const (
	SeverityOff     Severity = "off"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
	SeverityTrace   Severity = "trace"
)

// Rank orders severities so callers can compare "at least as verbose as."
func (s Severity) Rank() int {
	switch s {
	case SeverityOff:
		return 0
	case SeverityError:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 3
	case SeverityDebug:
		return 4
	case SeverityTrace:
		return 5
	default:
		return 3
	}
}

type Config struct {
	AppName string `yaml:"app-name" mapstructure:"app-name"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	DataRoot string `yaml:"data-root" mapstructure:"data-root"`

	Volumes VolumesConfig `yaml:"volumes" mapstructure:"volumes"`

	Index IndexConfig `yaml:"index" mapstructure:"index"`

	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`

	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`

	IPC IPCConfig `yaml:"ipc" mapstructure:"ipc"`

	Debug DebugConfig `yaml:"debug" mapstructure:"debug"`
}

type LoggingConfig struct {
	Severity  Severity         `yaml:"severity" mapstructure:"severity"`
	Format    string           `yaml:"format" mapstructure:"format"`
	FilePath  string           `yaml:"file-path" mapstructure:"file-path"`
	LogRotate LogRotateConfig  `yaml:"log-rotate" mapstructure:"log-rotate"`
}

type LogRotateConfig struct {
	MaxFileSizeMb   int  `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`
	BackupFileCount int  `yaml:"backup-file-count" mapstructure:"backup-file-count"`
	Compress        bool `yaml:"compress" mapstructure:"compress"`
}

type VolumesConfig struct {
	// Include, if non-empty, restricts discovery to these drive letters or
	// GUID paths. Empty means "all fixed NTFS volumes."
	Include []string `yaml:"include" mapstructure:"include"`
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`
}

type IndexConfig struct {
	HotHeapSizeMb     int `yaml:"hot-heap-size-mb" mapstructure:"hot-heap-size-mb"`
	ColdHeapSizeMb    int `yaml:"cold-heap-size-mb" mapstructure:"cold-heap-size-mb"`
	PathCacheCapacity int `yaml:"path-cache-capacity" mapstructure:"path-cache-capacity"`
}

type SchedulerConfig struct {
	WarmThresholdSecs  int     `yaml:"warm-threshold-secs" mapstructure:"warm-threshold-secs"`
	DeepThresholdSecs  int     `yaml:"deep-threshold-secs" mapstructure:"deep-threshold-secs"`
	MetadataCPUCap     float64 `yaml:"metadata-cpu-cap" mapstructure:"metadata-cpu-cap"`
	ContentCPUCap      float64 `yaml:"content-cpu-cap" mapstructure:"content-cpu-cap"`
	DiskBusyBytesPerSec int64  `yaml:"disk-busy-bytes-per-sec" mapstructure:"disk-busy-bytes-per-sec"`
	CriticalPerTick    int     `yaml:"critical-per-tick" mapstructure:"critical-per-tick"`
	MetadataPerTick    int     `yaml:"metadata-per-tick" mapstructure:"metadata-per-tick"`
	ContentPerTick     int     `yaml:"content-per-tick" mapstructure:"content-per-tick"`
	ContentBatchSize   int     `yaml:"content-batch-size" mapstructure:"content-batch-size"`
	QueueHighWaterMark int     `yaml:"queue-high-water-mark" mapstructure:"queue-high-water-mark"`
	MaxBytesPerTick    int64   `yaml:"max-bytes-per-tick" mapstructure:"max-bytes-per-tick"`
}

type ExtractionConfig struct {
	MaxBytes     int64 `yaml:"max-bytes" mapstructure:"max-bytes"`
	MaxChars     int   `yaml:"max-chars" mapstructure:"max-chars"`
	OCREnabled   bool  `yaml:"ocr-enabled" mapstructure:"ocr-enabled"`
	WorkerCPUCapPercent int `yaml:"worker-cpu-cap-percent" mapstructure:"worker-cpu-cap-percent"`
	RequeueLimit int   `yaml:"requeue-limit" mapstructure:"requeue-limit"`
}

type IPCConfig struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	MaxFrameBytes   int    `yaml:"max-frame-bytes" mapstructure:"max-frame-bytes"`
}

type DebugConfig struct {
	ExitOnInvariantViolation bool `yaml:"exit-on-invariant-violation" mapstructure:"exit-on-invariant-violation"`
	LogMutex                 bool `yaml:"log-mutex" mapstructure:"log-mutex"`
}

// BindFlags registers every flag on flagSet and binds it into viper under
// the same dotted key used by the YAML config file, following a
// one-flag-one-bind idiom.
func BindFlags(flagSet *pflag.FlagSet) error {
	bind := func(key string) error {
		return viper.BindPFlag(key, flagSet.Lookup(key))
	}

	flagSet.StringP("app-name", "", "ultrasearch", "Name reported in logs and IPC status responses.")
	if err := bind("app-name"); err != nil {
		return err
	}

	flagSet.StringP("data-root", "", DefaultDataRoot(), "Root directory for index/volumes/jobs/log data.")
	if err := bind("data-root"); err != nil {
		return err
	}

	flagSet.StringP("logging.severity", "", string(SeverityInfo), "Minimum severity logged: off|error|warning|info|debug|trace.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("logging.severity")); err != nil {
		return err
	}

	flagSet.StringP("logging.format", "", "text", "Log encoding: text or json.")
	if err := viper.BindPFlag("logging.format", flagSet.Lookup("logging.format")); err != nil {
		return err
	}

	flagSet.IntP("scheduler.warm-threshold-secs", "", 15, "Idle seconds before WarmIdle classification.")
	if err := viper.BindPFlag("scheduler.warm-threshold-secs", flagSet.Lookup("scheduler.warm-threshold-secs")); err != nil {
		return err
	}

	flagSet.IntP("scheduler.deep-threshold-secs", "", 60, "Idle seconds before DeepIdle classification.")
	if err := viper.BindPFlag("scheduler.deep-threshold-secs", flagSet.Lookup("scheduler.deep-threshold-secs")); err != nil {
		return err
	}

	flagSet.Int64P("scheduler.max-bytes-per-tick", "", 64<<20, "Total byte budget admitted across all queues in one scheduler tick.")
	if err := viper.BindPFlag("scheduler.max-bytes-per-tick", flagSet.Lookup("scheduler.max-bytes-per-tick")); err != nil {
		return err
	}

	flagSet.Int64P("extraction.max-bytes", "", 10<<20, "Maximum input bytes an extraction worker reads per file.")
	if err := viper.BindPFlag("extraction.max-bytes", flagSet.Lookup("extraction.max-bytes")); err != nil {
		return err
	}

	flagSet.IntP("extraction.max-chars", "", 100_000, "Maximum characters an extraction worker emits per file.")
	if err := viper.BindPFlag("extraction.max-chars", flagSet.Lookup("extraction.max-chars")); err != nil {
		return err
	}

	flagSet.StringP("ipc.endpoint", "", DefaultIPCEndpoint(), "Local duplex endpoint: named pipe path (Windows) or socket path.")
	if err := viper.BindPFlag("ipc.endpoint", flagSet.Lookup("ipc.endpoint")); err != nil {
		return err
	}

	flagSet.IntP("ipc.max-frame-bytes", "", 256*1024, "Maximum accepted IPC frame payload size in bytes.")
	if err := viper.BindPFlag("ipc.max-frame-bytes", flagSet.Lookup("ipc.max-frame-bytes")); err != nil {
		return err
	}

	flagSet.BoolP("debug.exit-on-invariant-violation", "", false, "Exit when internal invariants are violated.")
	if err := viper.BindPFlag("debug.exit-on-invariant-violation", flagSet.Lookup("debug.exit-on-invariant-violation")); err != nil {
		return err
	}

	return nil
}
