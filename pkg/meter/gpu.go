package meter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GPUField selects the value a GPU meter reports.
type GPUField int

const (
	GPUUtilization GPUField = iota // percent
	GPUTemp                        // degrees Celsius
	GPUMemoryUsed                  // percent of VRAM in use
)

// gpuQuery is passed to nvidia-smi; the columns are parsed by parseGPUStats.
var gpuQuery = []string{
	"--query-gpu=utilization.gpu,temperature.gpu,memory.used,memory.total",
	"--format=csv,noheader,nounits",
}

// gpuStats holds one nvidia-smi row.
type gpuStats struct {
	Utilization float64
	Temperature float64
	MemUsedMiB  float64
	MemTotalMiB float64
}

// GPUMeter reads the first NVIDIA GPU through nvidia-smi. Machines without
// the tool report an error on every measurement, which the scheduler logs
// and otherwise ignores.
type GPUMeter struct {
	keyed
	field GPUField
	run   func(ctx context.Context) ([]byte, error)
}

func NewGPU(key string, field GPUField) *GPUMeter {
	return &GPUMeter{keyed: newKeyed(key), field: field, run: runNvidiaSMI}
}

func runNvidiaSMI(ctx context.Context) ([]byte, error) {
	return exec.CommandContext(ctx, "nvidia-smi", gpuQuery...).Output()
}

func (m *GPUMeter) Measure(ctx context.Context) (float32, error) {
	out, err := m.run(ctx)
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi: %w", err)
	}
	gpus := parseGPUStats(string(out))
	if len(gpus) == 0 {
		return 0, errors.New("nvidia-smi: no gpu reported")
	}
	g := gpus[0]

	switch m.field {
	case GPUUtilization:
		return float32(g.Utilization), nil
	case GPUTemp:
		return float32(g.Temperature), nil
	case GPUMemoryUsed:
		if g.MemTotalMiB <= 0 {
			return 0, errors.New("nvidia-smi: unknown memory size")
		}
		return float32(100 * g.MemUsedMiB / g.MemTotalMiB), nil
	}
	return 0, fmt.Errorf("unknown gpu field %d", m.field)
}

// parseGPUStats parses nvidia-smi CSV output, one GPU per line:
//
//	utilization, temperature, memory.used, memory.total
//
// Lines with fewer than four columns are skipped; unparsable numbers
// ("[N/A]") read as zero.
func parseGPUStats(output string) []gpuStats {
	var gpus []gpuStats
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		gpus = append(gpus, gpuStats{
			Utilization: parseFloat(parts[0]),
			Temperature: parseFloat(parts[1]),
			MemUsedMiB:  parseFloat(parts[2]),
			MemTotalMiB: parseFloat(parts[3]),
		})
	}
	return gpus
}

// parseFloat parses a trimmed string as float64, returning 0 on error.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
