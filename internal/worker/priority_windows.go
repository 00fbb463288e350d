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

package worker

import (
	"os/exec"

	"golang.org/x/sys/windows"
)

func init() {
	applyResourceLimits = applyResourceLimitsWindows
}

// applyResourceLimitsWindows starts the child at BELOW_NORMAL_PRIORITY_CLASS
// in a new process group. No job object or CPU-rate cap is assigned to it.
func applyResourceLimitsWindows(cmd *exec.Cmd) {
	cmd.SysProcAttr = &windows.SysProcAttr{
		CreationFlags: windows.BELOW_NORMAL_PRIORITY_CLASS | windows.CREATE_NEW_PROCESS_GROUP,
	}
}
