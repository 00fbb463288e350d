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

//go:build windows

package ipc

import (
	"net"

	"github.com/Microsoft/go-winio"
)

// Listen opens the named-pipe endpoint (the "per-OS natural
// primitive") at endpoint, e.g. `\\.\pipe\ultrasearch`.
func Listen(endpoint string) (net.Listener, error) {
	return winio.ListenPipe(endpoint, &winio.PipeConfig{
		MessageMode:      false,
		InputBufferSize:  64 * 1024,
		OutputBufferSize: 64 * 1024,
	})
}

// Dial connects to a server listening on endpoint.
func Dial(endpoint string) (net.Conn, error) {
	return winio.DialPipe(endpoint, nil)
}
