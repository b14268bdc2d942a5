package collector

// SetClock pins the sample clock and returns a func restoring the real one.
func SetClock(now func() int64) func() {
	prev := monotonicNow
	monotonicNow = now
	return func() { monotonicNow = prev }
}
