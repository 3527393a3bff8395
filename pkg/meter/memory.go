package meter

import (
	"context"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryPercentageMeter reports used physical memory in percent.
type MemoryPercentageMeter struct {
	keyed
}

func NewMemoryPercentage() *MemoryPercentageMeter {
	return &MemoryPercentageMeter{keyed: newKeyed(MemoryPercentage)}
}

func (m *MemoryPercentageMeter) Measure(ctx context.Context) (float32, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return float32(vm.UsedPercent), nil
}

// SwapPercentageMeter reports used swap in percent; 0 without swap.
type SwapPercentageMeter struct {
	keyed
}

func NewSwapPercentage() *SwapPercentageMeter {
	return &SwapPercentageMeter{keyed: newKeyed(MemorySwap)}
}

func (m *SwapPercentageMeter) Measure(ctx context.Context) (float32, error) {
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if sw.Total == 0 {
		return 0, nil
	}
	return float32(sw.UsedPercent), nil
}

// DiskPercentageMeter reports the used space of one mount point in percent.
type DiskPercentageMeter struct {
	keyed
	path string
}

func NewDiskPercentage(path string) *DiskPercentageMeter {
	return &DiskPercentageMeter{keyed: newKeyed(DiskPercentage), path: path}
}

func (m *DiskPercentageMeter) Measure(ctx context.Context) (float32, error) {
	usage, err := disk.UsageWithContext(ctx, m.path)
	if err != nil {
		return 0, err
	}
	return float32(usage.UsedPercent), nil
}
