//go:build !linux

package facts

func kernelRelease(fallback string) string {
	return fallback
}
