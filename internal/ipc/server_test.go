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

package ipc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/index"
	"github.com/shaneholloman/ultrasearch/internal/query"
	"github.com/shaneholloman/ultrasearch/internal/search"
)

// servePipe wires an in-memory net.Pipe connection to srv, returning the
// client-side half. Tests drive the client half directly with
// ReadFrame/WriteFrame, avoiding any dependency on a real OS transport.
func servePipe(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
	})
	go srv.ServeConn(ctx, server)
	return client
}

func TestServePingFastPath(t *testing.T) {
	// Sending "PING" || uuid_bytes(16) returns
	// exactly those 16 bytes.
	client := servePipe(t, &Server{})

	id := uuid.New()
	payload := append([]byte(pingMagic), id[:]...)
	require.NoError(t, WriteFrame(client, payload))

	got, err := ReadFrame(client)
	require.NoError(t, err)
	assert.Equal(t, id[:], got)
}

func TestServeSearchRequestRoundTrips(t *testing.T) {
	idx, err := index.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Upsert(index.Doc{DocKey: docid.Pack(1, 10), Name: "report.docx", Size: 42}))

	client := servePipe(t, &Server{Executor: &search.Executor{Meta: idx}})

	req := SearchRequest{
		ID:    uuid.New(),
		Query: query.Term(query.FieldName, "report", query.ModPrefix),
		Limit: 10,
		Mode:  search.NameOnly,
	}
	require.NoError(t, WriteFrame(client, EncodeSearchRequest(req)))

	payload, err := ReadFrame(client)
	require.NoError(t, err)
	resp, err := DecodeSearchResponse(payload)
	require.NoError(t, err)

	assert.Equal(t, req.ID, resp.ID)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "report.docx", resp.Hits[0].Name)
}

func TestServeStatusRequestEchoesID(t *testing.T) {
	called := false
	client := servePipe(t, &Server{
		Status: func(ctx context.Context) StatusResponse {
			called = true
			return StatusResponse{SchedulerState: "active"}
		},
	})

	req := StatusRequest{ID: uuid.New()}
	require.NoError(t, WriteFrame(client, EncodeStatusRequest(req)))

	payload, err := ReadFrame(client)
	require.NoError(t, err)
	resp, err := DecodeStatusResponse(payload)
	require.NoError(t, err)

	assert.True(t, called)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, "active", resp.SchedulerState)
}

func TestServeMalformedFrameClosesOnlyThatConnection(t *testing.T) {
	client := servePipe(t, &Server{})

	// A zero-length frame is malformed and must
	// terminate the connection with no response, written directly (not
	// via WriteFrame, which itself refuses to construct one).
	_, err := client.Write([]byte{0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = ReadFrame(client)
	assert.Error(t, err, "server should have closed the connection without responding")
}

func TestServeUndecodablePayloadClosesConnectionWithNoResponse(t *testing.T) {
	client := servePipe(t, &Server{})

	require.NoError(t, WriteFrame(client, []byte{0xAA, wireVersion}))

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err := ReadFrame(client)
	assert.Error(t, err)
}

func TestServeReloadConfigAndRescanInvokeHandlers(t *testing.T) {
	var reloadCalled, rescanCalled bool
	client := servePipe(t, &Server{
		ReloadConfig: func(ctx context.Context) error { reloadCalled = true; return nil },
		Rescan:       func(ctx context.Context) error { rescanCalled = true; return nil },
	})

	reloadReq := ReloadConfigRequest{ID: uuid.New()}
	require.NoError(t, WriteFrame(client, EncodeReloadConfigRequest(reloadReq)))
	payload, err := ReadFrame(client)
	require.NoError(t, err)
	resp, err := DecodeStatusResponse(payload)
	require.NoError(t, err)
	assert.True(t, reloadCalled)
	assert.Equal(t, reloadReq.ID, resp.ID)
	assert.Empty(t, resp.ServedBy)

	rescanReq := RescanRequest{ID: uuid.New()}
	require.NoError(t, WriteFrame(client, EncodeRescanRequest(rescanReq)))
	payload, err = ReadFrame(client)
	require.NoError(t, err)
	resp, err = DecodeStatusResponse(payload)
	require.NoError(t, err)
	assert.True(t, rescanCalled)
	assert.Equal(t, rescanReq.ID, resp.ID)
}
