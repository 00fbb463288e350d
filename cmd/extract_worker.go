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
	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultrasearch/internal/worker"
)

// extractWorkerCmd is the entry point of the out-of-process extraction
// worker: the scheduler re-execs this same binary with the
// hidden subcommand, a content-index directory, and a batch manifest path.
// Exit status 0 means the batch was processed (per-entry Unsupported
// records included); non-zero means the whole batch failed and the parent
// applies its once-only requeue policy.
var extractWorkerCmd = &cobra.Command{
	Use:    "extract-worker <manifest-file>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE:   runExtractWorker,
}

var (
	extractWorkerContentDir string
	extractWorkerOCR        bool
)

func init() {
	extractWorkerCmd.Flags().StringVar(&extractWorkerContentDir, "content-index-dir", "",
		"Directory of the content index the batch's records are committed to.")
	extractWorkerCmd.Flags().BoolVar(&extractWorkerOCR, "ocr", false,
		"Allow the OCR backend to claim raster-image jobs.")
	_ = extractWorkerCmd.MarkFlagRequired("content-index-dir")
	rootCmd.AddCommand(extractWorkerCmd)
}

func runExtractWorker(cmd *cobra.Command, args []string) error {
	return worker.RunBatch(cmd.Context(), args[0], extractWorkerContentDir, worker.DefaultStack(extractWorkerOCR))
}
