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
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultrasearch/internal/ipc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the running indexer's per-volume progress and health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := configErr(); err != nil {
		return err
	}

	id := uuid.New()
	resp, err := roundTrip(id, ipc.EncodeStatusRequest(ipc.StatusRequest{ID: id}))
	if err != nil {
		return err
	}

	fmt.Printf("served by:  %s\n", resp.ServedBy)
	fmt.Printf("scheduler:  %s\n", resp.SchedulerState)
	if resp.LastCommitTS != 0 {
		fmt.Printf("last commit: %s\n", humanize.Time(time.Unix(0, resp.LastCommitTS)))
	}
	for _, v := range resp.Volumes {
		fmt.Printf("volume %d:   %s files indexed, %s pending, usn=%d journal=%#x\n",
			v.Volume,
			humanize.Comma(int64(v.IndexedFiles)),
			humanize.Comma(int64(v.PendingFiles)),
			v.LastUSN, v.JournalID)
	}
	m := resp.Metrics
	fmt.Printf("workers:    %d failures, %d jobs dropped\n", m.WorkerFailuresTotal, m.JobsDroppedTotal)
	fmt.Printf("journal:    %d gaps detected, %d compactions\n", m.GapDetectedTotal, m.CompactionsTotal)
	for q, n := range m.QueueDropped {
		if n > 0 {
			fmt.Printf("dropped:    %s queue lost %s entries to backpressure\n", q, humanize.Comma(int64(n)))
		}
	}
	return nil
}
