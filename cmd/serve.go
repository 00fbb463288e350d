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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shaneholloman/ultrasearch/cfg"
	"github.com/shaneholloman/ultrasearch/internal/app"
	"github.com/shaneholloman/ultrasearch/internal/ipc"
	"github.com/shaneholloman/ultrasearch/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the indexing core: volume discovery, MFT/USN ingest, IPC server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := configErr(); err != nil {
		return err
	}
	if err := cfg.Validate(&Config); err != nil {
		return err
	}
	if err := logger.Init(&Config, Config.AppName); err != nil {
		return err
	}

	workerBinary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own executable path: %w", err)
	}

	svc, err := app.New(&Config, app.Options{
		WorkerBinary: workerBinary,
		ReloadConfig: reloadConfig,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	// Config-file edits, like the IPC ReloadConfig request, re-read and
	// validate the configuration and apply the log format immediately;
	// every other setting, log severity included, takes effect on restart.
	if cfgFile != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			logger.Infof("serve: config file %s changed; applying hot-swappable settings", e.Name)
			if err := reloadConfig(context.Background()); err != nil {
				logger.Warnf("serve: reloading config: %v", err)
			}
		})
		viper.WatchConfig()
	}

	ln, err := ipc.Listen(Config.IPC.Endpoint)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", Config.IPC.Endpoint, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("serve: %s listening on %s, data root %s", Config.AppName, Config.IPC.Endpoint, Config.DataRoot)
	return svc.Run(ctx, ln)
}

// reloadConfig re-reads the active configuration sources and applies the
// settings that can change without a restart.
func reloadConfig(ctx context.Context) error {
	var fresh cfg.Config
	if err := viper.Unmarshal(&fresh, viper.DecodeHook(cfg.DecodeHook())); err != nil {
		return err
	}
	if err := cfg.Validate(&fresh); err != nil {
		return err
	}
	logger.SetFormat(fresh.Logging.Format)
	Config.Logging = fresh.Logging
	return nil
}
