package memory

import "os"

// bytesPerMB is 2^20; every MB figure in reports uses binary megabytes.
const bytesPerMB = 1 << 20

// pageSize allows tests to pin the page size.
var pageSize = os.Getpagesize

// RSSBytes converts a resident page count into bytes.
func RSSBytes(pages uint64) uint64 {
	return pages * uint64(pageSize())
}

// RSSMegabytes converts a resident page count into MB. Processes without a memory
// context (kernel threads) report zero pages and therefore zero MB.
func RSSMegabytes(pages uint64) float64 {
	return Megabytes(RSSBytes(pages))
}

// Megabytes converts a byte counter into MB.
func Megabytes(b uint64) float64 {
	return float64(b) / bytesPerMB
}
