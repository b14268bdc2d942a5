package collector

import (
	"emperror.dev/errors"

	"github.com/srodi/procscore/pkg/collector/cpu"
	"github.com/srodi/procscore/pkg/collector/memory"
	"github.com/srodi/procscore/pkg/types"
)

// monotonicNow allows tests to control the sample clock.
var monotonicNow = cpu.Monotonic

// Collector turns raw per-process counters into report samples, using the delta cache to
// derive CPU utilization between scans.
type Collector struct {
	src   Source
	cache *cpu.DeltaCache
}

// New returns a collector reading from src and keeping CPU baselines in cache.
func New(src Source, cache *cpu.DeltaCache) *Collector {
	return &Collector{src: src, cache: cache}
}

// Scan carries state that is only valid for a single pass over the process table.
type Scan struct {
	tables map[uint64]ProtocolTable
}

// NewScan starts a fresh pass. Protocol tables are memoized per network namespace.
func NewScan() *Scan {
	return &Scan{tables: make(map[uint64]ProtocolTable)}
}

// Collect gathers one sample for pid. The returned error wraps ErrProcessGone when the
// process exited mid-read, or cpu.ErrCacheFull when no baseline could be stored for it.
// Score and Tier are left for the caller.
func (c *Collector) Collect(scan *Scan, pid int) (types.ProcessSample, error) {
	counters, err := c.src.Counters(pid)
	if err != nil {
		return types.ProcessSample{}, errors.WithDetails(err, "pid", pid)
	}
	now := monotonicNow()

	sockets, err := c.sockets(scan, pid)
	if err != nil {
		return types.ProcessSample{}, errors.WithDetails(err, "pid", pid)
	}

	// The baseline is only touched once the process has been fully read, so a process that
	// vanished above never gets a cache entry.
	cpuPercent, err := c.cache.Observe(pid, counters.RuntimeNs, now)
	if err != nil {
		return types.ProcessSample{}, err
	}

	return types.ProcessSample{
		PID:           pid,
		Comm:          counters.Comm,
		CPUPercent:    cpuPercent,
		MemRSSMB:      memory.RSSMegabytes(counters.RSSPages),
		SyscallsProxy: counters.VoluntaryCtxSwitches + counters.NonvoluntaryCtxSwitches,
		InputMB:       memory.Megabytes(counters.ReadBytes),
		OutputMB:      memory.Megabytes(counters.WriteBytes),
		SocketTotal:   sockets.Total,
		SocketTCP:     sockets.TCP,
		SocketUDP:     sockets.UDP,
		Priority:      counters.Priority,
	}, nil
}

func (c *Collector) sockets(scan *Scan, pid int) (SocketCounts, error) {
	targets, err := c.src.FDTargets(pid)
	if err != nil {
		if errors.Is(err, ErrProcessGone) {
			return SocketCounts{}, err
		}
		// Descriptor table not readable (permissions): report no sockets.
		return SocketCounts{}, nil
	}
	if len(targets) == 0 {
		return SocketCounts{}, nil
	}
	own, err := c.src.SocketProtocols(pid)
	if err != nil {
		if errors.Is(err, ErrProcessGone) {
			return SocketCounts{}, err
		}
		own = nil
	}
	var table ProtocolTable
	if unresolved(targets, own) {
		table = c.protocolTable(scan, pid)
	}
	return classifySockets(targets, own, table), nil
}

func (c *Collector) protocolTable(scan *Scan, pid int) ProtocolTable {
	ns, err := c.src.NetNamespace(pid)
	if err == nil && scan != nil {
		if table, ok := scan.tables[ns]; ok {
			return table
		}
	}
	table, terr := c.src.ProtocolTable(pid)
	if terr != nil {
		table = ProtocolTable{}
	}
	if err == nil && scan != nil {
		scan.tables[ns] = table
	}
	return table
}

// Now reads the clock samples are stamped with.
func (c *Collector) Now() int64 {
	return monotonicNow()
}

// PIDs lists the processes currently alive according to the source.
func (c *Collector) PIDs() ([]int, error) {
	return c.src.PIDs()
}
