package collector

import "emperror.dev/errors"

// ErrProcessGone marks a process that exited between enumeration and collection.
const ErrProcessGone = errors.Sentinel("process vanished during scan")

// Protocol is the transport behind a socket descriptor.
type Protocol uint8

const (
	ProtoOther Protocol = iota
	ProtoTCP
	ProtoUDP
)

// ProtocolTable maps socket inodes to their transport protocol within one network namespace.
type ProtocolTable map[uint64]Protocol

// Counters are the raw per-process readings a Source hands to the collector.
type Counters struct {
	Comm string
	// RuntimeNs is the cumulative CPU time the process has consumed since it started.
	RuntimeNs               uint64
	RSSPages                uint64
	VoluntaryCtxSwitches    uint64
	NonvoluntaryCtxSwitches uint64
	ReadBytes               uint64
	WriteBytes              uint64
	// Priority follows the kernel convention: 0..99 real-time, 100..139 normal, lower is
	// scheduled first.
	Priority int
}

// Source abstracts the live process table. Implementations must return ErrProcessGone
// (possibly wrapped) when a pid disappears while it is being read.
type Source interface {
	PIDs() ([]int, error)
	Counters(pid int) (Counters, error)
	// FDTargets lists the link targets of the open descriptors of pid, e.g. "socket:[1234]".
	FDTargets(pid int) ([]string, error)
	// SocketProtocols classifies the socket descriptors of pid one at a time, whatever
	// their state. Inodes it cannot resolve are left out of the result.
	SocketProtocols(pid int) (ProtocolTable, error)
	NetNamespace(pid int) (uint64, error)
	// ProtocolTable lists the bound or connected TCP and UDP sockets of pid's network
	// namespace. It backs SocketProtocols when the per-descriptor lookup is unavailable.
	ProtocolTable(pid int) (ProtocolTable, error)
}
