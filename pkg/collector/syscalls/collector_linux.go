//go:build linux
// +build linux

package syscalls

import (
	"emperror.dev/errors"
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/link"
	"golang.org/x/sys/unix"
)

// Collector owns the eBPF program and map that count syscalls per thread group.
type Collector struct {
	counts *ebpf.Map
	prog   *ebpf.Program
	tp     link.Link
}

const (
	maxTrackedPIDs    = 1 << 15
	pruneSweepRetries = 3
)

// NewCollector builds the counting program, loads it and attaches it to raw_syscalls/sys_enter.
func NewCollector() (*Collector, error) {
	// Raise rlimit for locked memory to allow eBPF maps and programs to load.
	if err := unix.Setrlimit(unix.RLIMIT_MEMLOCK, &unix.Rlimit{
		Cur: unix.RLIM_INFINITY,
		Max: unix.RLIM_INFINITY,
	}); err != nil {
		return nil, errors.WrapIf(err, "raising rlimit memlock")
	}

	counts, err := ebpf.NewMap(&ebpf.MapSpec{
		Name:       "sys_counts",
		Type:       ebpf.Hash,
		KeySize:    4,
		ValueSize:  8,
		MaxEntries: maxTrackedPIDs,
	})
	if err != nil {
		return nil, errors.WrapIf(err, "creating syscall count map")
	}

	prog, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         "count_sys_enter",
		Type:         ebpf.TracePoint,
		License:      "GPL",
		Instructions: countInstructions(counts.FD()),
	})
	if err != nil {
		counts.Close()
		return nil, errors.WrapIf(err, "loading syscall counter")
	}

	tp, err := link.Tracepoint("raw_syscalls", "sys_enter", prog, nil)
	if err != nil {
		prog.Close()
		counts.Close()
		return nil, errors.WrapIf(err, "attaching tracepoint")
	}

	return &Collector{counts: counts, prog: prog, tp: tp}, nil
}

// countInstructions increments counts[tgid] on every syscall entry.
func countInstructions(mapFD int) asm.Instructions {
	return asm.Instructions{
		// key = bpf_get_current_pid_tgid() >> 32
		asm.FnGetCurrentPidTgid.Call(),
		asm.RSh.Imm(asm.R0, 32),
		asm.StoreMem(asm.RFP, -4, asm.R0, asm.Word),

		asm.LoadMapPtr(asm.R1, mapFD),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.FnMapLookupElem.Call(),
		asm.JEq.Imm(asm.R0, 0, "insert"),
		asm.Mov.Imm(asm.R1, 1),
		asm.StoreXAdd(asm.R0, asm.R1, asm.DWord),
		asm.Ja.Label("exit"),

		// first syscall seen for this tgid
		asm.StoreImm(asm.RFP, -16, 1, asm.DWord).WithSymbol("insert"),
		asm.LoadMapPtr(asm.R1, mapFD),
		asm.Mov.Reg(asm.R2, asm.RFP),
		asm.Add.Imm(asm.R2, -4),
		asm.Mov.Reg(asm.R3, asm.RFP),
		asm.Add.Imm(asm.R3, -16),
		asm.Mov.Imm(asm.R4, int32(ebpf.UpdateNoExist)),
		asm.FnMapUpdateElem.Call(),

		asm.Mov.Imm(asm.R0, 0).WithSymbol("exit"),
		asm.Return(),
	}
}

// Close detaches the tracepoint and releases the BPF resources.
func (c *Collector) Close() error {
	var err error
	if c.tp != nil {
		err = errors.Combine(err, c.tp.Close())
	}
	if c.prog != nil {
		err = errors.Combine(err, c.prog.Close())
	}
	return errors.Combine(err, c.counts.Close())
}

// Snapshot returns the syscall count of every thread group seen since the tracer started.
func (c *Collector) Snapshot() (map[uint32]uint64, error) {
	counts := make(map[uint32]uint64)

	iter := c.counts.Iterate()
	var tgid uint32
	var count uint64
	for iter.Next(&tgid, &count) {
		counts[tgid] = count
	}
	if err := iter.Err(); err != nil {
		return nil, errors.WrapIf(err, "iterating syscall counts")
	}
	return counts, nil
}

// Prune deletes counters of thread groups that are no longer alive.
func (c *Collector) Prune(live map[int]struct{}) error {
	for attempt := 1; attempt <= pruneSweepRetries; attempt++ {
		iter := c.counts.Iterate()
		var tgid uint32
		var count uint64
		for iter.Next(&tgid, &count) {
			if _, ok := live[int(tgid)]; ok {
				continue
			}
			if err := c.counts.Delete(&tgid); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
				return errors.WrapIfWithDetails(err, "clearing tgid", "tgid", tgid)
			}
		}
		if err := iter.Err(); err != nil {
			if errors.Is(err, ebpf.ErrIterationAborted) && attempt < pruneSweepRetries {
				continue
			}
			return err
		}
		break
	}
	return nil
}
