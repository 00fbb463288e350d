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

package scheduler

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32   = windows.NewLazySystemDLL("user32.dll")
	modKernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procGetLastInputInfo     = modUser32.NewProc("GetLastInputInfo")
	procGetTickCount         = modKernel32.NewProc("GetTickCount")
	procGetSystemTimes       = modKernel32.NewProc("GetSystemTimes")
	procGlobalMemoryStatusEx = modKernel32.NewProc("GlobalMemoryStatusEx")
	procGetSystemPowerStatus = modKernel32.NewProc("GetSystemPowerStatus")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

type memoryStatusEx struct {
	length               uint32
	memoryLoad           uint32
	totalPhys            uint64
	availPhys            uint64
	totalPageFile        uint64
	availPageFile        uint64
	totalVirtual         uint64
	availVirtual         uint64
	availExtendedVirtual uint64
}

type systemPowerStatus struct {
	acLineStatus        byte
	batteryFlag         byte
	batteryLifePercent  byte
	reserved1           byte
	batteryLifeTime     uint32
	batteryFullLifeTime uint32
}

// osSampler drives GetLastInputInfo for idle duration and a
// GetSystemTimes-derived rate-of-change for CPU percent, the real Windows
// Sampler the admission gates consult. Disk bytes/sec and full-screen/game-mode
// detection are left at their zero value: PDH disk counters and the
// exclusive-fullscreen surface are owned by the GUI/tray collaborator per
// the GUI surface, not the indexing core.
type osSampler struct {
	prevIdle, prevKernel, prevUser uint64
	haveSample                     bool
}

// NewOSSampler builds the real Windows Sampler.
func NewOSSampler() Sampler {
	return &osSampler{}
}

func (s *osSampler) Sample() (LoadSample, time.Duration) {
	idle := lastInputIdleDuration()
	return LoadSample{
		CPUPercent:      s.cpuPercent(),
		MemPercent:      memPercent(),
		DiskBytesPerSec: 0,
		OnBattery:       onBattery(),
		GameMode:        false,
	}, idle
}

func lastInputIdleDuration() time.Duration {
	var info lastInputInfo
	info.cbSize = uint32(unsafe.Sizeof(info))
	ret, _, _ := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0
	}
	now, _, _ := procGetTickCount.Call()
	elapsedMs := uint32(now) - info.dwTime
	return time.Duration(elapsedMs) * time.Millisecond
}

// winFiletime mirrors the Win32 FILETIME layout (two little-endian
// DWORDs) so GetSystemTimes can write directly into it.
type winFiletime struct {
	low, high uint32
}

func (f winFiletime) uint64() uint64 { return uint64(f.high)<<32 | uint64(f.low) }

func (s *osSampler) cpuPercent() float64 {
	var idleFT, kernelFT, userFT winFiletime
	ret, _, _ := procGetSystemTimes.Call(
		uintptr(unsafe.Pointer(&idleFT)),
		uintptr(unsafe.Pointer(&kernelFT)),
		uintptr(unsafe.Pointer(&userFT)),
	)
	if ret == 0 {
		return 0
	}

	idle := idleFT.uint64()
	kernel := kernelFT.uint64()
	user := userFT.uint64()

	defer func() { s.prevIdle, s.prevKernel, s.prevUser = idle, kernel, user }()

	if !s.haveSample {
		s.haveSample = true
		return 0
	}

	totalDelta := (kernel - s.prevKernel) + (user - s.prevUser)
	idleDelta := idle - s.prevIdle
	if totalDelta == 0 {
		return 0
	}
	busy := float64(totalDelta-idleDelta) / float64(totalDelta)
	switch {
	case busy < 0:
		return 0
	case busy > 1:
		return 1
	default:
		return busy
	}
}

func memPercent() float64 {
	var status memoryStatusEx
	status.length = uint32(unsafe.Sizeof(status))
	ret, _, _ := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&status)))
	if ret == 0 || status.totalPhys == 0 {
		return 0
	}
	used := status.totalPhys - status.availPhys
	return float64(used) / float64(status.totalPhys)
}

func onBattery() bool {
	var status systemPowerStatus
	ret, _, _ := procGetSystemPowerStatus.Call(uintptr(unsafe.Pointer(&status)))
	if ret == 0 {
		return false
	}
	return status.acLineStatus == 0
}
