// Package system sizes work to the host it runs on.
package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host is a snapshot of the resources relevant to rendering.
type Host struct {
	LogicalCPUs    int
	AvailableBytes uint64
}

// Probe reads the host's CPU count and available memory. Values that cannot
// be read are left zero, except the CPU count which falls back to the Go
// runtime's view.
func Probe() Host {
	var h Host
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		h.LogicalCPUs = n
	} else {
		h.LogicalCPUs = runtime.NumCPU()
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		h.AvailableBytes = vm.Available
	}
	return h
}

// Workers returns how many frames of frameBytes each may be rendered at
// once: one per logical CPU, capped so frames in flight take at most a
// quarter of available memory. It is never below 1.
func (h Host) Workers(frameBytes uint64) int {
	n := h.LogicalCPUs
	if n < 1 {
		n = 1
	}
	if frameBytes == 0 || h.AvailableBytes == 0 {
		return n
	}
	if limit := h.AvailableBytes / 4 / frameBytes; limit < uint64(n) {
		n = int(limit)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// RenderWorkers is Probe().Workers(frameBytes).
func RenderWorkers(frameBytes uint64) int {
	return Probe().Workers(frameBytes)
}
