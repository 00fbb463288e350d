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

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaneholloman/ultrasearch/internal/ipc"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Ask the running indexer for a full MFT re-enumeration of every volume",
	Args:  cobra.NoArgs,
	RunE:  runRescan,
}

func init() {
	rootCmd.AddCommand(rescanCmd)
}

func runRescan(cmd *cobra.Command, args []string) error {
	if err := configErr(); err != nil {
		return err
	}

	id := uuid.New()
	resp, err := roundTrip(id, ipc.EncodeRescanRequest(ipc.RescanRequest{ID: id}))
	if err != nil {
		return err
	}
	if resp.ServedBy != "" {
		fmt.Println(resp.ServedBy)
	}
	fmt.Println("rescan scheduled")
	return nil
}
