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

// Package ipc implements the local control-plane transport:
// a length-prefixed (u32 LE length | payload) framing over a per-OS duplex
// endpoint (a named pipe on Windows via github.com/Microsoft/go-winio, a
// Unix domain socket elsewhere), a stable binary request/response encoding,
// and the PING fast path.
package ipc

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxFrameBytes is the hard ceiling on one frame's payload length: a
// length of 0 or anything above it terminates the connection.
const MaxFrameBytes = 256 * 1024

var (
	// ErrEmptyFrame is returned for a frame whose declared length is zero.
	ErrEmptyFrame = errors.New("ipc: zero-length frame")
	// ErrFrameTooLarge is returned for a frame whose declared length
	// exceeds MaxFrameBytes.
	ErrFrameTooLarge = errors.New("ipc: frame exceeds maximum size")
	// ErrIncompleteFrame is returned by DecodeFrame when buf does not yet
	// contain the full payload its length prefix promises.
	ErrIncompleteFrame = errors.New("ipc: buffer shorter than declared frame length")
)

// EncodeFrame prepends payload with its u32 little-endian length.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(payload) > MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	return out, nil
}

// DecodeFrame splits buf into the first frame's payload and whatever bytes
// follow it.
func DecodeFrame(buf []byte) (payload, remainder []byte, err error) {
	if len(buf) < 4 {
		return nil, buf, ErrIncompleteFrame
	}
	n := binary.LittleEndian.Uint32(buf)
	if n == 0 {
		return nil, nil, ErrEmptyFrame
	}
	if n > MaxFrameBytes {
		return nil, nil, ErrFrameTooLarge
	}
	if uint32(len(buf)-4) < n {
		return nil, buf, ErrIncompleteFrame
	}
	return buf[4 : 4+n], buf[4+n:], nil
}

// ReadFrame reads exactly one length-prefixed frame from r, validating the
// length prefix before allocating a buffer for it.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if n > MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload to w as one length-prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}
