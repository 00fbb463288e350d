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
	"bytes"
	"context"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/shaneholloman/ultrasearch/internal/logger"
	"github.com/shaneholloman/ultrasearch/internal/query"
	"github.com/shaneholloman/ultrasearch/internal/search"
)

const pingMagic = "PING"

// StatusFunc, ReloadConfigFunc and RescanFunc let the caller wire the
// server's three control-plane requests to the rest of the running
// process without this package importing the scheduler/volume/cursor
// packages directly.
type StatusFunc func(ctx context.Context) StatusResponse
type ReloadConfigFunc func(ctx context.Context) error
type RescanFunc func(ctx context.Context) error

// Server is the IPC request/response dispatcher: one task
// per connection, a malformed frame or undecodable payload closes only
// that connection, and a handler panic never reaches the listener loop.
type Server struct {
	Executor     *search.Executor
	Status       StatusFunc
	ReloadConfig ReloadConfigFunc
	Rescan       RescanFunc
}

// Serve accepts connections from ln until ctx is cancelled or Accept
// returns a permanent error, dispatching each to its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.serveConnSafely(ctx, conn)
	}
}

// serveConnSafely wraps ServeConn with panic recovery so one connection's
// handler bug cannot bring down the listener.
func (s *Server) serveConnSafely(ctx context.Context, conn io.ReadWriteCloser) {
	defer conn.Close()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("ipc: connection handler panicked: %v", rec)
		}
	}()
	s.ServeConn(ctx, conn)
}

// ServeConn reads and responds to frames on conn until a framing error,
// deserialization failure, or read/write error ends the connection
// ("each connection may carry multiple request/response
// pairs"). It is exported directly so tests can drive it over net.Pipe
// without a real OS-level listener.
func (s *Server) ServeConn(ctx context.Context, conn io.ReadWriteCloser) {
	for {
		payload, err := ReadFrame(conn)
		if err != nil {
			return
		}

		if echo, ok := pingPayload(payload); ok {
			if err := WriteFrame(conn, echo); err != nil {
				return
			}
			continue
		}

		req, err := DecodeRequest(payload)
		if err != nil {
			// Deserialization failure: close the connection with no
			// response.
			return
		}

		respPayload := s.dispatch(ctx, req)
		if err := WriteFrame(conn, respPayload); err != nil {
			return
		}
	}
}

// pingPayload recognizes the fast-path probe: 4-byte ASCII "PING" followed
// by a 16-byte UUID, echoing those 16 bytes back unchanged.
func pingPayload(payload []byte) ([]byte, bool) {
	if len(payload) != 20 || !bytes.Equal(payload[:4], []byte(pingMagic)) {
		return nil, false
	}
	echo := make([]byte, 16)
	copy(echo, payload[4:])
	return echo, true
}

func (s *Server) dispatch(ctx context.Context, req Request) []byte {
	switch r := req.(type) {
	case SearchRequest:
		return s.handleSearch(ctx, r)
	case StatusRequest:
		resp := StatusResponse{}
		if s.Status != nil {
			resp = s.Status(ctx)
		}
		resp.ID = r.ID
		return EncodeStatusResponse(resp)
	case ReloadConfigRequest:
		resp := s.runControlAction(ctx, r.ID, s.ReloadConfig)
		return EncodeStatusResponse(resp)
	case RescanRequest:
		resp := s.runControlAction(ctx, r.ID, s.Rescan)
		return EncodeStatusResponse(resp)
	default:
		return EncodeStatusResponse(StatusResponse{ID: req.RequestID(), ServedBy: "error: unrecognized request type"})
	}
}

// runControlAction is shared by ReloadConfig and Rescan: neither has a
// dedicated response body, so both echo the request's ID in
// a StatusResponse, with ServedBy carrying an error message on failure.
func (s *Server) runControlAction(ctx context.Context, id uuid.UUID, action func(context.Context) error) StatusResponse {
	resp := StatusResponse{ID: id}
	if action == nil {
		return resp
	}
	if err := action(ctx); err != nil {
		resp.ServedBy = "error: " + err.Error()
	}
	return resp
}

func (s *Server) handleSearch(ctx context.Context, r SearchRequest) []byte {
	start := time.Now()
	resp := SearchResponse{ID: r.ID}

	if s.Executor == nil {
		resp.ServedBy = "error: search executor unavailable"
		resp.TookMs = uint32(time.Since(start).Milliseconds())
		return EncodeSearchResponse(resp)
	}

	searchCtx := ctx
	if r.TimeoutMs > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, time.Duration(r.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	expr := r.Query
	if expr != nil {
		expr = query.Plan(expr)
	}

	result, err := s.Executor.Search(searchCtx, search.Request{
		Expr:   expr,
		Mode:   r.Mode,
		Limit:  int(r.Limit),
		Offset: int(r.Offset),
	})
	if err != nil {
		// Query error: total=0 with a diagnostic served_by suffix, the
		// connection stays open.
		resp.ServedBy = "error: " + err.Error()
		resp.TookMs = uint32(time.Since(start).Milliseconds())
		return EncodeSearchResponse(resp)
	}

	resp.Hits = make([]SearchHit, len(result.Hits))
	for i, h := range result.Hits {
		resp.Hits[i] = SearchHit{
			DocKey:   h.DocKey,
			Score:    float32(h.Score),
			Name:     h.Name,
			Path:     h.Path,
			Ext:      h.Ext,
			Size:     h.Size,
			Modified: h.Modified,
		}
	}
	resp.Total = uint64(len(resp.Hits))
	resp.Truncated = result.Truncated
	resp.TookMs = uint32(time.Since(start).Milliseconds())
	return EncodeSearchResponse(resp)
}
