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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameMatchesPinnedExample(t *testing.T) {
	// encode([0x01, 0x02, 0x03]) produces
	// [03 00 00 00 01 02 03].
	got, err := EncodeFrame([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03}, got)
}

func TestDecodeFrameMatchesPinnedExample(t *testing.T) {
	buf := []byte{0x03, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0xFF}
	payload, remainder, err := DecodeFrame(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, payload)
	assert.Equal(t, []byte{0xFF}, remainder)
}

func TestDecodeFrameRoundTripsWithEmptyRemainder(t *testing.T) {
	// decode(encode(payload)) == (payload, empty_remainder).
	payload := []byte("round trip me")
	encoded, err := EncodeFrame(payload)
	require.NoError(t, err)

	got, remainder, err := DecodeFrame(encoded)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Empty(t, remainder)
}

func TestEncodeFrameRejectsEmptyPayload(t *testing.T) {
	_, err := EncodeFrame(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestEncodeFrameRejectsOversizePayload(t *testing.T) {
	_, err := EncodeFrame(make([]byte, MaxFrameBytes+1))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeFrameRejectsZeroLength(t *testing.T) {
	_, _, err := DecodeFrame([]byte{0x00, 0x00, 0x00, 0x00})
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestDecodeFrameRejectsOversizeLengthPrefix(t *testing.T) {
	buf := make([]byte, 4)
	buf[0], buf[1], buf[2], buf[3] = 0x00, 0x00, 0x10, 0x00 // 0x00100000 > 256 KiB
	_, _, err := DecodeFrame(buf)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecodeFrameRejectsInsufficientBuffer(t *testing.T) {
	buf := []byte{0x10, 0x00, 0x00, 0x00, 0x01, 0x02} // declares 16 bytes, has 2
	_, _, err := DecodeFrame(buf)
	assert.ErrorIs(t, err, ErrIncompleteFrame)
}

func TestWriteFrameThenReadFrameRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello over the wire")
	require.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameRejectsOversizeLengthPrefix(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x10, 0x00})
	_, err := ReadFrame(&buf)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
