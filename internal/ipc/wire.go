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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/shaneholloman/ultrasearch/internal/docid"
	"github.com/shaneholloman/ultrasearch/internal/metrics"
	"github.com/shaneholloman/ultrasearch/internal/query"
	"github.com/shaneholloman/ultrasearch/internal/search"
)

// wireVersion is the first byte of every encoded message after its type
// tag, letting a future incompatible change bump the version without
// guessing from payload shape ("versioned message types").
const wireVersion = 1

// Message type tags, the first byte of every encoded payload.
const (
	msgSearchRequest byte = iota + 1
	msgStatusRequest
	msgReloadConfigRequest
	msgRescanRequest
	msgSearchResponse
	msgStatusResponse
)

// Request is implemented by every request body; RequestID exposes the
// UUID the server must echo back.
type Request interface {
	RequestID() uuid.UUID
}

type SearchRequest struct {
	ID        uuid.UUID
	Query     *query.Expr
	Limit     uint32
	Offset    uint32
	Mode      search.Mode
	TimeoutMs uint64
}

func (r SearchRequest) RequestID() uuid.UUID { return r.ID }

type StatusRequest struct{ ID uuid.UUID }

func (r StatusRequest) RequestID() uuid.UUID { return r.ID }

type ReloadConfigRequest struct{ ID uuid.UUID }

func (r ReloadConfigRequest) RequestID() uuid.UUID { return r.ID }

type RescanRequest struct{ ID uuid.UUID }

func (r RescanRequest) RequestID() uuid.UUID { return r.ID }

type SearchHit struct {
	DocKey   docid.DocKey
	Score    float32
	Name     string
	Path     string
	Ext      string
	Size     uint64
	Modified int64
}

type SearchResponse struct {
	ID        uuid.UUID
	Hits      []SearchHit
	Total     uint64
	Truncated bool
	TookMs    uint32
	ServedBy  string
}

type VolumeStatus struct {
	Volume       uint16
	IndexedFiles uint64
	PendingFiles uint64
	LastUSN      uint64
	JournalID    uint64
}

type StatusResponse struct {
	ID             uuid.UUID
	Volumes        []VolumeStatus
	LastCommitTS   int64
	SchedulerState string
	Metrics        metrics.Snapshot
	ServedBy       string
}

// --- low-level writer/reader ---

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) byte(b byte)       { w.buf = append(w.buf, b) }
func (w *wireWriter) bool(b bool)       { if b { w.byte(1) } else { w.byte(0) } }
func (w *wireWriter) u32(v uint32)      { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *wireWriter) u64(v uint64)      { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *wireWriter) i64(v int64)       { w.u64(uint64(v)) }
func (w *wireWriter) f32(v float32)     { w.u32(math.Float32bits(v)) }
func (w *wireWriter) uuidBytes(id uuid.UUID) { w.buf = append(w.buf, id[:]...) }
func (w *wireWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
func (w *wireWriter) strMap(m map[string]uint64) {
	w.u32(uint32(len(m)))
	for k, v := range m {
		w.str(k)
		w.u64(v)
	}
}

type wireReader struct {
	buf []byte
	pos int
}

func (r *wireReader) remaining() int { return len(r.buf) - r.pos }

func (r *wireReader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("ipc: unexpected end of message reading a byte")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *wireReader) boolean() (bool, error) {
	b, err := r.byte()
	return b != 0, err
}

func (r *wireReader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("ipc: unexpected end of message reading a u32")
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *wireReader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("ipc: unexpected end of message reading a u64")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *wireReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *wireReader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *wireReader) uuidBytes() (uuid.UUID, error) {
	var id uuid.UUID
	if r.remaining() < 16 {
		return id, fmt.Errorf("ipc: unexpected end of message reading a uuid")
	}
	copy(id[:], r.buf[r.pos:r.pos+16])
	r.pos += 16
	return id, nil
}

func (r *wireReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.remaining() < int(n) {
		return "", fmt.Errorf("ipc: unexpected end of message reading a string")
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *wireReader) strMap() (map[string]uint64, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	m := make(map[string]uint64, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.str()
		if err != nil {
			return nil, err
		}
		v, err := r.u64()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// --- query.Expr codec ---

func encodeExpr(w *wireWriter, e *query.Expr) {
	if e == nil {
		w.byte(0xff) // sentinel "nil" kind: a nil query or a nil Not child
		return
	}
	w.byte(byte(e.Kind))
	switch e.Kind {
	case query.KindTerm:
		w.str(string(e.Field))
		w.str(e.Value)
		w.byte(byte(e.Mod))
		w.u32(uint32(e.MaxEditDist))
	case query.KindRange:
		w.str(string(e.RangeField))
		w.byte(byte(e.RangeOp))
		w.i64(e.Low)
		w.i64(e.High)
	case query.KindNot:
		encodeExpr(w, e.Child)
	case query.KindAnd, query.KindOr:
		w.u32(uint32(len(e.Children)))
		for _, c := range e.Children {
			encodeExpr(w, c)
		}
	}
}

func decodeExpr(r *wireReader) (*query.Expr, error) {
	kind, err := r.byte()
	if err != nil {
		return nil, err
	}
	if kind == 0xff {
		return nil, nil
	}
	switch query.Kind(kind) {
	case query.KindTerm:
		field, err := r.str()
		if err != nil {
			return nil, err
		}
		value, err := r.str()
		if err != nil {
			return nil, err
		}
		mod, err := r.byte()
		if err != nil {
			return nil, err
		}
		maxEditDist, err := r.u32()
		if err != nil {
			return nil, err
		}
		return &query.Expr{Kind: query.KindTerm, Field: query.Field(field), Value: value, Mod: query.Modifier(mod), MaxEditDist: int(maxEditDist)}, nil
	case query.KindRange:
		field, err := r.str()
		if err != nil {
			return nil, err
		}
		op, err := r.byte()
		if err != nil {
			return nil, err
		}
		low, err := r.i64()
		if err != nil {
			return nil, err
		}
		high, err := r.i64()
		if err != nil {
			return nil, err
		}
		return &query.Expr{Kind: query.KindRange, RangeField: query.Field(field), RangeOp: query.RangeOp(op), Low: low, High: high}, nil
	case query.KindNot:
		child, err := decodeExpr(r)
		if err != nil {
			return nil, err
		}
		return &query.Expr{Kind: query.KindNot, Child: child}, nil
	case query.KindAnd, query.KindOr:
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		children := make([]*query.Expr, n)
		for i := range children {
			children[i], err = decodeExpr(r)
			if err != nil {
				return nil, err
			}
		}
		return &query.Expr{Kind: query.Kind(kind), Children: children}, nil
	default:
		return nil, fmt.Errorf("ipc: unknown query expr kind %d", kind)
	}
}

// --- message codecs ---

// EncodeSearchRequest renders r as a versioned, type-tagged payload.
func EncodeSearchRequest(r SearchRequest) []byte {
	w := &wireWriter{}
	w.byte(msgSearchRequest)
	w.byte(wireVersion)
	w.uuidBytes(r.ID)
	encodeExpr(w, r.Query)
	w.u32(r.Limit)
	w.u32(r.Offset)
	w.byte(byte(r.Mode))
	w.u64(r.TimeoutMs)
	return w.buf
}

func decodeSearchRequest(r *wireReader) (SearchRequest, error) {
	var req SearchRequest
	var err error
	if req.ID, err = r.uuidBytes(); err != nil {
		return req, err
	}
	if req.Query, err = decodeExpr(r); err != nil {
		return req, err
	}
	if req.Limit, err = r.u32(); err != nil {
		return req, err
	}
	if req.Offset, err = r.u32(); err != nil {
		return req, err
	}
	mode, err := r.byte()
	if err != nil {
		return req, err
	}
	req.Mode = search.Mode(mode)
	if req.TimeoutMs, err = r.u64(); err != nil {
		return req, err
	}
	return req, nil
}

// EncodeStatusRequest, EncodeReloadConfigRequest, EncodeRescanRequest all
// carry only an ID, sharing one encoder.
func EncodeStatusRequest(r StatusRequest) []byte {
	return encodeIDOnly(msgStatusRequest, r.ID)
}
func EncodeReloadConfigRequest(r ReloadConfigRequest) []byte {
	return encodeIDOnly(msgReloadConfigRequest, r.ID)
}
func EncodeRescanRequest(r RescanRequest) []byte {
	return encodeIDOnly(msgRescanRequest, r.ID)
}

func encodeIDOnly(msgType byte, id uuid.UUID) []byte {
	w := &wireWriter{}
	w.byte(msgType)
	w.byte(wireVersion)
	w.uuidBytes(id)
	return w.buf
}

func decodeIDOnly(r *wireReader) (uuid.UUID, error) {
	return r.uuidBytes()
}

// DecodeRequest dispatches on payload's leading type tag and returns the
// concrete request. A malformed or truncated payload is a deserialization
// failure: the caller must close the connection
// without responding.
func DecodeRequest(payload []byte) (Request, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("ipc: payload too short to carry a message header")
	}
	msgType := payload[0]
	// payload[1] is the version byte; only version 1 exists so far and is
	// not separately validated beyond being present.
	r := &wireReader{buf: payload, pos: 2}

	switch msgType {
	case msgSearchRequest:
		return decodeSearchRequest(r)
	case msgStatusRequest:
		id, err := decodeIDOnly(r)
		return StatusRequest{ID: id}, err
	case msgReloadConfigRequest:
		id, err := decodeIDOnly(r)
		return ReloadConfigRequest{ID: id}, err
	case msgRescanRequest:
		id, err := decodeIDOnly(r)
		return RescanRequest{ID: id}, err
	default:
		return nil, fmt.Errorf("ipc: unknown request message type %d", msgType)
	}
}

// EncodeSearchResponse renders resp as a versioned, type-tagged payload.
func EncodeSearchResponse(resp SearchResponse) []byte {
	w := &wireWriter{}
	w.byte(msgSearchResponse)
	w.byte(wireVersion)
	w.uuidBytes(resp.ID)
	w.u32(uint32(len(resp.Hits)))
	for _, h := range resp.Hits {
		w.u64(uint64(h.DocKey))
		w.f32(h.Score)
		w.str(h.Name)
		w.str(h.Path)
		w.str(h.Ext)
		w.u64(h.Size)
		w.i64(h.Modified)
	}
	w.u64(resp.Total)
	w.bool(resp.Truncated)
	w.u32(resp.TookMs)
	w.str(resp.ServedBy)
	return w.buf
}

// DecodeSearchResponse parses a payload produced by EncodeSearchResponse.
func DecodeSearchResponse(payload []byte) (SearchResponse, error) {
	var resp SearchResponse
	if len(payload) < 2 || payload[0] != msgSearchResponse {
		return resp, fmt.Errorf("ipc: not a SearchResponse payload")
	}
	r := &wireReader{buf: payload, pos: 2}
	var err error
	if resp.ID, err = r.uuidBytes(); err != nil {
		return resp, err
	}
	n, err := r.u32()
	if err != nil {
		return resp, err
	}
	resp.Hits = make([]SearchHit, n)
	for i := range resp.Hits {
		dk, err := r.u64()
		if err != nil {
			return resp, err
		}
		resp.Hits[i].DocKey = docid.DocKey(dk)
		if resp.Hits[i].Score, err = r.f32(); err != nil {
			return resp, err
		}
		if resp.Hits[i].Name, err = r.str(); err != nil {
			return resp, err
		}
		if resp.Hits[i].Path, err = r.str(); err != nil {
			return resp, err
		}
		if resp.Hits[i].Ext, err = r.str(); err != nil {
			return resp, err
		}
		if resp.Hits[i].Size, err = r.u64(); err != nil {
			return resp, err
		}
		if resp.Hits[i].Modified, err = r.i64(); err != nil {
			return resp, err
		}
	}
	if resp.Total, err = r.u64(); err != nil {
		return resp, err
	}
	if resp.Truncated, err = r.boolean(); err != nil {
		return resp, err
	}
	if resp.TookMs, err = r.u32(); err != nil {
		return resp, err
	}
	if resp.ServedBy, err = r.str(); err != nil {
		return resp, err
	}
	return resp, nil
}

// EncodeStatusResponse renders resp as a versioned, type-tagged payload.
func EncodeStatusResponse(resp StatusResponse) []byte {
	w := &wireWriter{}
	w.byte(msgStatusResponse)
	w.byte(wireVersion)
	w.uuidBytes(resp.ID)
	w.u32(uint32(len(resp.Volumes)))
	for _, v := range resp.Volumes {
		w.u32(uint32(v.Volume))
		w.u64(v.IndexedFiles)
		w.u64(v.PendingFiles)
		w.u64(v.LastUSN)
		w.u64(v.JournalID)
	}
	w.i64(resp.LastCommitTS)
	w.str(resp.SchedulerState)
	w.u64(resp.Metrics.WorkerFailuresTotal)
	w.u64(resp.Metrics.JobsDroppedTotal)
	w.u64(resp.Metrics.GapDetectedTotal)
	w.u64(resp.Metrics.CompactionsTotal)
	w.strMap(resp.Metrics.QueueDropped)
	w.strMap(resp.Metrics.QueueDepth)
	w.str(resp.ServedBy)
	return w.buf
}

// DecodeStatusResponse parses a payload produced by EncodeStatusResponse.
func DecodeStatusResponse(payload []byte) (StatusResponse, error) {
	var resp StatusResponse
	if len(payload) < 2 || payload[0] != msgStatusResponse {
		return resp, fmt.Errorf("ipc: not a StatusResponse payload")
	}
	r := &wireReader{buf: payload, pos: 2}
	var err error
	if resp.ID, err = r.uuidBytes(); err != nil {
		return resp, err
	}
	n, err := r.u32()
	if err != nil {
		return resp, err
	}
	resp.Volumes = make([]VolumeStatus, n)
	for i := range resp.Volumes {
		vol, err := r.u32()
		if err != nil {
			return resp, err
		}
		resp.Volumes[i].Volume = uint16(vol)
		if resp.Volumes[i].IndexedFiles, err = r.u64(); err != nil {
			return resp, err
		}
		if resp.Volumes[i].PendingFiles, err = r.u64(); err != nil {
			return resp, err
		}
		if resp.Volumes[i].LastUSN, err = r.u64(); err != nil {
			return resp, err
		}
		if resp.Volumes[i].JournalID, err = r.u64(); err != nil {
			return resp, err
		}
	}
	if resp.LastCommitTS, err = r.i64(); err != nil {
		return resp, err
	}
	if resp.SchedulerState, err = r.str(); err != nil {
		return resp, err
	}
	if resp.Metrics.WorkerFailuresTotal, err = r.u64(); err != nil {
		return resp, err
	}
	if resp.Metrics.JobsDroppedTotal, err = r.u64(); err != nil {
		return resp, err
	}
	if resp.Metrics.GapDetectedTotal, err = r.u64(); err != nil {
		return resp, err
	}
	if resp.Metrics.CompactionsTotal, err = r.u64(); err != nil {
		return resp, err
	}
	if resp.Metrics.QueueDropped, err = r.strMap(); err != nil {
		return resp, err
	}
	if resp.Metrics.QueueDepth, err = r.strMap(); err != nil {
		return resp, err
	}
	if resp.ServedBy, err = r.str(); err != nil {
		return resp, err
	}
	return resp, nil
}
