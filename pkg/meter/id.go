package meter

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// Supported meter keys, "DEVICE:METER".
const (
	CPUPercentage    = "CPU:PERCENTAGE"
	CPUFrequency     = "CPU:FREQUENCY"
	CPUTemperature   = "CPU:TEMPERATURE"
	CPULoad          = "CPU:LOAD"
	GPUPercentage    = "GPU:PERCENTAGE"
	GPUTemperature   = "GPU:TEMPERATURE"
	GPUMemory        = "GPU:MEMORY"
	MemoryPercentage = "MEMORY:PERCENTAGE"
	MemorySwap       = "MEMORY:SWAP"
	DiskPercentage   = "DISK:PERCENTAGE"
)

// SourceID hashes a namespaced key with XXH3-64. Distinct keys may collide;
// nothing detects it, and two colliding meters would share one snapshot
// slot. Changing the hash would change every published id.
func SourceID(key string) uint64 {
	return xxh3.HashString(key)
}

var names = func() map[uint64]string {
	m := make(map[uint64]string, len(builders))
	for key := range builders {
		m[SourceID(key)] = key
	}
	return m
}()

// Name returns the key of a known source id, or the id in hex.
func Name(id uint64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "0x" + strconv.FormatUint(id, 16)
}
