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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/metrics"
	"github.com/shaneholloman/ultrasearch/internal/query"
	"github.com/shaneholloman/ultrasearch/internal/search"
)

func roundTripExpr(t *testing.T, e *query.Expr) *query.Expr {
	t.Helper()
	w := &wireWriter{}
	encodeExpr(w, e)
	got, err := decodeExpr(&wireReader{buf: w.buf})
	require.NoError(t, err)
	return got
}

func TestExprCodecRoundTripsTerm(t *testing.T) {
	e := query.FuzzyTerm(query.FieldName, "report", 2)
	got := roundTripExpr(t, e)
	assert.True(t, query.Equal(e, got))
}

func TestExprCodecRoundTripsRange(t *testing.T) {
	e := query.RangeExpr(query.FieldSize, query.OpBetween, 10, 1000)
	got := roundTripExpr(t, e)
	assert.True(t, query.Equal(e, got))
}

func TestExprCodecRoundTripsNestedBooleans(t *testing.T) {
	e := query.Not(query.And(
		query.Term(query.FieldName, "a", query.ModTerm),
		query.Or(query.Term(query.FieldPath, "b", query.ModPrefix), query.Term(query.FieldContent, "c", query.ModTerm)),
	))
	got := roundTripExpr(t, e)
	assert.True(t, query.Equal(e, got))
}

func TestSearchRequestCodecRoundTrips(t *testing.T) {
	req := SearchRequest{
		ID:        uuid.New(),
		Query:     query.Term(query.FieldName, "x", query.ModPrefix),
		Limit:     25,
		Offset:    5,
		Mode:      search.Hybrid,
		TimeoutMs: 1500,
	}
	payload := EncodeSearchRequest(req)
	decoded, err := DecodeRequest(payload)
	require.NoError(t, err)

	got, ok := decoded.(SearchRequest)
	require.True(t, ok)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.Limit, got.Limit)
	assert.Equal(t, req.Offset, got.Offset)
	assert.Equal(t, req.Mode, got.Mode)
	assert.Equal(t, req.TimeoutMs, got.TimeoutMs)
	assert.True(t, query.Equal(req.Query, got.Query))
}

func TestStatusRequestCodecRoundTripsAndEchoesID(t *testing.T) {
	req := StatusRequest{ID: uuid.New()}
	payload := EncodeStatusRequest(req)
	decoded, err := DecodeRequest(payload)
	require.NoError(t, err)
	got, ok := decoded.(StatusRequest)
	require.True(t, ok)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.ID, got.RequestID())
}

func TestReloadConfigAndRescanRequestCodecRoundTrip(t *testing.T) {
	rc := ReloadConfigRequest{ID: uuid.New()}
	decoded, err := DecodeRequest(EncodeReloadConfigRequest(rc))
	require.NoError(t, err)
	assert.Equal(t, rc, decoded)

	rs := RescanRequest{ID: uuid.New()}
	decoded, err = DecodeRequest(EncodeRescanRequest(rs))
	require.NoError(t, err)
	assert.Equal(t, rs, decoded)
}

func TestDecodeRequestRejectsUnknownMessageType(t *testing.T) {
	_, err := DecodeRequest([]byte{0xAA, wireVersion, 0, 0})
	assert.Error(t, err)
}

func TestDecodeRequestRejectsTruncatedPayload(t *testing.T) {
	_, err := DecodeRequest([]byte{msgStatusRequest})
	assert.Error(t, err)
}

func TestSearchResponseCodecRoundTrips(t *testing.T) {
	resp := SearchResponse{
		ID: uuid.New(),
		Hits: []SearchHit{
			{DocKey: docid.Pack(1, 10), Score: 1.5, Name: "a.txt", Path: `C:\a.txt`, Ext: ".txt", Size: 100, Modified: 123456},
			{DocKey: docid.Pack(1, 11), Score: 0.75, Name: "b.txt", Path: `C:\b.txt`, Ext: ".txt", Size: 200, Modified: 654321},
		},
		Total:     2,
		Truncated: true,
		TookMs:    42,
		ServedBy:  "core-01",
	}
	got, err := DecodeSearchResponse(EncodeSearchResponse(resp))
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestSearchResponseCodecRoundTripsEmptyHits(t *testing.T) {
	resp := SearchResponse{ID: uuid.New(), Total: 0}
	got, err := DecodeSearchResponse(EncodeSearchResponse(resp))
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.Empty(t, got.Hits)
}

func TestStatusResponseCodecRoundTrips(t *testing.T) {
	resp := StatusResponse{
		ID: uuid.New(),
		Volumes: []VolumeStatus{
			{Volume: 1, IndexedFiles: 100, PendingFiles: 3, LastUSN: 99, JournalID: 7},
		},
		LastCommitTS:   111222,
		SchedulerState: "warm_idle",
		Metrics: metrics.Snapshot{
			WorkerFailuresTotal: 1,
			JobsDroppedTotal:    2,
			GapDetectedTotal:    0,
			CompactionsTotal:    4,
			QueueDropped:        map[string]uint64{"critical": 0, "content": 5},
			QueueDepth:          map[string]uint64{"critical": 1, "content": 9},
		},
		ServedBy: "core-01",
	}
	got, err := DecodeStatusResponse(EncodeStatusResponse(resp))
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestDecodeSearchResponseRejectsWrongMessageType(t *testing.T) {
	_, err := DecodeSearchResponse(EncodeStatusResponse(StatusResponse{ID: uuid.New()}))
	assert.Error(t, err)
}
