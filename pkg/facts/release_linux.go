//go:build linux

package facts

import "golang.org/x/sys/unix"

func kernelRelease(fallback string) string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fallback
	}
	return unix.ByteSliceToString(uts.Release[:])
}
