// Package collectortest provides an in-memory process table for tests.
package collectortest

import (
	"sort"
	"strconv"
	"sync"

	"github.com/srodi/procscore/pkg/collector"
)

// Process is one fake process. Sockets maps socket inodes to their protocol as listed in
// the namespace table. Unbound holds sockets only a per-descriptor lookup can classify.
// Extra descriptor targets such as files go in OtherFDs.
type Process struct {
	PID      int
	NetNS    uint64
	Counters collector.Counters
	Sockets  map[uint64]collector.Protocol
	Unbound  map[uint64]collector.Protocol
	OtherFDs []string
}

// Source is a mutable fake process table implementing collector.Source.
type Source struct {
	mu    sync.Mutex
	procs map[int]*Process

	// VanishOnCounters makes the listed pids disappear the moment their counters are read,
	// as if they exited between enumeration and collection.
	VanishOnCounters map[int]bool
	// TableReads counts ProtocolTable calls.
	TableReads int
}

// NewSource returns a fake table holding procs.
func NewSource(procs ...Process) *Source {
	s := &Source{procs: make(map[int]*Process), VanishOnCounters: make(map[int]bool)}
	for _, p := range procs {
		s.Put(p)
	}
	return s
}

// Put inserts or replaces a process.
func (s *Source) Put(p Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.procs[p.PID] = &cp
}

// Remove deletes a process, simulating its exit.
func (s *Source) Remove(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procs, pid)
}

// AddRuntime advances the cumulative CPU time of pid.
func (s *Source) AddRuntime(pid int, ns uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.procs[pid]; ok {
		p.Counters.RuntimeNs += ns
	}
}

func (s *Source) PIDs() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pids := make([]int, 0, len(s.procs))
	for pid := range s.procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids, nil
}

func (s *Source) Counters(pid int) (collector.Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return collector.Counters{}, collector.ErrProcessGone
	}
	if s.VanishOnCounters[pid] {
		delete(s.procs, pid)
		return collector.Counters{}, collector.ErrProcessGone
	}
	return p.Counters, nil
}

func (s *Source) FDTargets(pid int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return nil, collector.ErrProcessGone
	}
	targets := append([]string(nil), p.OtherFDs...)
	for inode := range p.Sockets {
		targets = append(targets, socketTarget(inode))
	}
	for inode := range p.Unbound {
		targets = append(targets, socketTarget(inode))
	}
	return targets, nil
}

// SocketProtocols resolves only the Unbound sockets, leaving the rest to ProtocolTable.
func (s *Source) SocketProtocols(pid int) (collector.ProtocolTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return nil, collector.ErrProcessGone
	}
	table := make(collector.ProtocolTable, len(p.Unbound))
	for inode, proto := range p.Unbound {
		table[inode] = proto
	}
	return table, nil
}

func (s *Source) NetNamespace(pid int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return 0, collector.ErrProcessGone
	}
	return p.NetNS, nil
}

// ProtocolTable merges the sockets of every process sharing pid's namespace.
func (s *Source) ProtocolTable(pid int) (collector.ProtocolTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TableReads++
	p, ok := s.procs[pid]
	if !ok {
		return nil, collector.ErrProcessGone
	}
	table := make(collector.ProtocolTable)
	for _, other := range s.procs {
		if other.NetNS != p.NetNS {
			continue
		}
		for inode, proto := range other.Sockets {
			if proto != collector.ProtoOther {
				table[inode] = proto
			}
		}
	}
	return table, nil
}

func socketTarget(inode uint64) string {
	return "socket:[" + strconv.FormatUint(inode, 10) + "]"
}
