//go:build linux
// +build linux

package collector

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

const (
	// /proc/<pid>/stat reports prio - MAX_RT_PRIO; add it back to get the kernel prio.
	maxRTPrio = 100
	// USER_HZ, the unit of utime/stime in /proc/<pid>/stat.
	userHZ = 100
)

// sockProtoName reads the protocol name the kernel attaches to a socket descriptor, e.g.
// "TCPv6". Tests stub it when /proc is a fake tree.
var sockProtoName = func(path string) (string, error) {
	buf := make([]byte, 32)
	n, err := unix.Getxattr(path, "system.sockprotoname", buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

type procSource struct {
	fs    procfs.FS
	mount string
}

// NewProcSource reads processes from the procfs mounted at mount ("" means /proc).
func NewProcSource(mount string) (Source, error) {
	if mount == "" {
		mount = procfs.DefaultMountPoint
	}
	pfs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "opening procfs", "mount", mount)
	}
	return &procSource{fs: pfs, mount: mount}, nil
}

func (s *procSource) PIDs() ([]int, error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, errors.WrapIf(err, "listing processes")
	}
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	return pids, nil
}

func (s *procSource) Counters(pid int) (Counters, error) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		return Counters{}, goneOr(err, "opening process")
	}
	stat, err := proc.Stat()
	if err != nil {
		return Counters{}, goneOr(err, "reading stat")
	}

	c := Counters{
		Comm:     stat.Comm,
		Priority: stat.Priority + maxRTPrio,
	}
	if stat.RSS > 0 {
		c.RSSPages = uint64(stat.RSS)
	}

	sched, err := proc.Schedstat()
	switch {
	case err == nil:
		c.RuntimeNs = sched.RunningNanoseconds
	case s.vanished(pid, err):
		return Counters{}, ErrProcessGone
	default:
		// schedstat is missing on kernels built without CONFIG_SCHED_INFO.
		c.RuntimeNs = uint64(stat.UTime+stat.STime) * uint64(time.Second) / userHZ
	}

	status, err := proc.NewStatus()
	switch {
	case err == nil:
		c.VoluntaryCtxSwitches = status.VoluntaryCtxtSwitches
		c.NonvoluntaryCtxSwitches = status.NonVoluntaryCtxtSwitches
	case s.vanished(pid, err):
		return Counters{}, ErrProcessGone
	}

	// io needs ptrace access to the process; without it the counters stay zero.
	pio, err := proc.IO()
	switch {
	case err == nil:
		c.ReadBytes = pio.ReadBytes
		c.WriteBytes = pio.WriteBytes
	case s.vanished(pid, err):
		return Counters{}, ErrProcessGone
	}

	return c, nil
}

func (s *procSource) FDTargets(pid int) ([]string, error) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		return nil, goneOr(err, "opening process")
	}
	// Descriptors closed while the table is walked come back as empty targets.
	targets, err := proc.FileDescriptorTargets()
	if err != nil {
		return nil, goneOr(err, "reading descriptor table")
	}
	return targets, nil
}

// SocketProtocols asks the kernel for the protocol of every socket descriptor of pid. This
// also covers sockets that are not yet bound or connected, which the namespace tables omit.
func (s *procSource) SocketProtocols(pid int) (ProtocolTable, error) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		return nil, goneOr(err, "opening process")
	}
	fds, err := proc.FileDescriptors()
	if err != nil {
		return nil, goneOr(err, "reading descriptor table")
	}

	dir := filepath.Join(s.mount, strconv.Itoa(pid), "fd")
	table := make(ProtocolTable)
	for _, fd := range fds {
		path := filepath.Join(dir, strconv.FormatUint(uint64(fd), 10))
		target, err := os.Readlink(path)
		if err != nil {
			continue
		}
		inode, ok := socketInode(target)
		if !ok {
			continue
		}
		name, err := sockProtoName(path)
		if err != nil {
			// Left unresolved; the namespace table decides.
			continue
		}
		table[inode] = protoFromName(name)
	}
	return table, nil
}

func (s *procSource) NetNamespace(pid int) (uint64, error) {
	proc, err := s.fs.Proc(pid)
	if err != nil {
		return 0, goneOr(err, "opening process")
	}
	namespaces, err := proc.Namespaces()
	if err != nil {
		return 0, goneOr(err, "reading namespaces")
	}
	ns, ok := namespaces["net"]
	if !ok {
		return 0, errors.NewWithDetails("no network namespace", "pid", pid)
	}
	return uint64(ns.Inode), nil
}

// ProtocolTable reads the TCP and UDP socket tables of the network namespace pid lives in.
func (s *procSource) ProtocolTable(pid int) (ProtocolTable, error) {
	pfs, err := procfs.NewFS(filepath.Join(s.mount, strconv.Itoa(pid)))
	if err != nil {
		return nil, goneOr(err, "opening process net directory")
	}

	table := make(ProtocolTable)
	for _, read := range []func() (procfs.NetTCP, error){pfs.NetTCP, pfs.NetTCP6} {
		lines, err := read()
		if err != nil {
			// tcp6 is absent when IPv6 is disabled.
			continue
		}
		for _, line := range lines {
			table[line.Inode] = ProtoTCP
		}
	}
	for _, read := range []func() (procfs.NetUDP, error){pfs.NetUDP, pfs.NetUDP6} {
		lines, err := read()
		if err != nil {
			continue
		}
		for _, line := range lines {
			table[line.Inode] = ProtoUDP
		}
	}
	return table, nil
}

// vanished tells a missing optional file apart from a process that exited: the pid
// directory itself must be gone too.
func (s *procSource) vanished(pid int, err error) bool {
	if errors.Is(err, syscall.ESRCH) {
		return true
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false
	}
	_, statErr := os.Stat(filepath.Join(s.mount, strconv.Itoa(pid)))
	return errors.Is(statErr, fs.ErrNotExist)
}

func isGone(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ESRCH)
}

func goneOr(err error, msg string) error {
	if isGone(err) {
		return ErrProcessGone
	}
	return errors.WrapIf(err, msg)
}
