//go:build !linux
// +build !linux

package collector

import "emperror.dev/errors"

// ErrUnsupported is returned on platforms without procfs.
const ErrUnsupported = errors.Sentinel("process source requires linux procfs")

// NewProcSource always fails on unsupported platforms.
func NewProcSource(mount string) (Source, error) {
	return nil, ErrUnsupported
}
