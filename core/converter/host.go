package converter

import (
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSnapshot is the machine state logged at batch start.
type HostSnapshot struct {
	LogicalCPUs     int
	PhysicalCPUs    int
	TotalMemory     uint64
	AvailableMemory uint64
}

// SnapshotHost reads CPU counts and memory from the OS.
func SnapshotHost() (HostSnapshot, error) {
	var snap HostSnapshot

	logical, err := cpu.Counts(true)
	if err != nil {
		return snap, err
	}
	snap.LogicalCPUs = logical

	// physical count is informational; some platforms cannot report it
	if physical, err := cpu.Counts(false); err == nil {
		snap.PhysicalCPUs = physical
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return snap, err
	}
	snap.TotalMemory = vm.Total
	snap.AvailableMemory = vm.Available
	return snap, nil
}
