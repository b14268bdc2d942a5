package facts

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Gather reads host facts from the running system.
func Gather(ctx context.Context) (Facts, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Facts{}, errors.WrapIf(err, "reading host info")
	}
	f := Facts{
		Hostname:      info.Hostname,
		KernelRelease: kernelRelease(info.KernelVersion),
		Uptime:        time.Duration(info.Uptime) * time.Second,
		Processes:     info.Procs,
	}

	if f.LogicalCPUs, err = cpu.CountsWithContext(ctx, true); err != nil {
		return Facts{}, errors.WrapIf(err, "counting logical cpus")
	}
	// Physical core counts are not exposed everywhere.
	if f.PhysicalCPUs, err = cpu.CountsWithContext(ctx, false); err != nil || f.PhysicalCPUs == 0 {
		f.PhysicalCPUs = f.LogicalCPUs
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		f.CPUModel = cpus[0].ModelName
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Facts{}, errors.WrapIf(err, "reading memory")
	}
	f.MemAvailable, f.MemTotal = vm.Available, vm.Total
	return f, nil
}
