//go:build !linux
// +build !linux

package syscalls

import "emperror.dev/errors"

const errUnsupported = errors.Sentinel("syscall tracer requires linux")

// Collector is a placeholder on non-Linux platforms.
type Collector struct{}

// NewCollector returns an error because eBPF is only supported on Linux.
func NewCollector() (*Collector, error) {
	return nil, errUnsupported
}

// Snapshot always fails on unsupported platforms.
func (c *Collector) Snapshot() (map[uint32]uint64, error) {
	return nil, errUnsupported
}

// Prune does nothing on unsupported platforms.
func (c *Collector) Prune(live map[int]struct{}) error {
	return nil
}

// Close is a no-op stub.
func (c *Collector) Close() error {
	return nil
}
