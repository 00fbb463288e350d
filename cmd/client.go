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

	"github.com/shaneholloman/ultrasearch/internal/ipc"
)

// roundTrip dials the serve process's IPC endpoint, sends one encoded
// request frame, and returns the decoded StatusResponse, verifying the
// server echoed the request's UUID.
func roundTrip(id uuid.UUID, payload []byte) (ipc.StatusResponse, error) {
	conn, err := ipc.Dial(Config.IPC.Endpoint)
	if err != nil {
		return ipc.StatusResponse{}, fmt.Errorf("dialing %s (is `ultrasearch serve` running?): %w", Config.IPC.Endpoint, err)
	}
	defer conn.Close()

	if err := ipc.WriteFrame(conn, payload); err != nil {
		return ipc.StatusResponse{}, err
	}
	respPayload, err := ipc.ReadFrame(conn)
	if err != nil {
		return ipc.StatusResponse{}, err
	}
	resp, err := ipc.DecodeStatusResponse(respPayload)
	if err != nil {
		return ipc.StatusResponse{}, err
	}
	if resp.ID != id {
		return ipc.StatusResponse{}, fmt.Errorf("response UUID %s does not match request %s", resp.ID, id)
	}
	return resp, nil
}
