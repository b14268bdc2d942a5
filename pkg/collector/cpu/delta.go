package cpu

import (
	"sync"
	"time"

	"emperror.dev/errors"
)

// ErrCacheFull is returned when inserting a new pid would exceed the cache capacity.
const ErrCacheFull = errors.Sentinel("delta cache is full")

var monoEpoch = time.Now()

// Monotonic returns nanoseconds on the monotonic clock since package init.
func Monotonic() int64 {
	return int64(time.Since(monoEpoch))
}

// Entry is the CPU baseline kept for one pid between scans.
type Entry struct {
	PID         int
	LastRuntime uint64 // cumulative CPU time in ns at the last reading
	LastSample  int64  // monotonic ns of the last reading
}

// DeltaCache owns per-pid CPU baselines. Every access goes through a single mutex so that
// lookup-or-insert, the stale read and the overwrite happen as one unit.
type DeltaCache struct {
	mu         sync.Mutex
	entries    map[int]*Entry
	maxEntries int
}

// NewDeltaCache returns an empty cache. maxEntries <= 0 means unbounded.
func NewDeltaCache(maxEntries int) *DeltaCache {
	return &DeltaCache{
		entries:    make(map[int]*Entry),
		maxEntries: maxEntries,
	}
}

// GetOrCreate returns a copy of the entry for pid, inserting a zero baseline stamped with now
// when the pid has never been seen.
func (c *DeltaCache) GetOrCreate(pid int, now int64) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.getOrCreateLocked(pid, now)
	if err != nil {
		return Entry{}, err
	}
	return *e, nil
}

// Observe records a fresh (runtime, now) reading for pid and returns the CPU utilization
// since the previous reading. The first reading of a pid always yields 0.
func (c *DeltaCache) Observe(pid int, runtime uint64, now int64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.getOrCreateLocked(pid, now)
	if err != nil {
		return 0, err
	}
	percent := Percent(e.LastRuntime, e.LastSample, runtime, now)
	e.LastRuntime = runtime
	e.LastSample = now
	return percent, nil
}

func (c *DeltaCache) getOrCreateLocked(pid int, now int64) (*Entry, error) {
	if e, ok := c.entries[pid]; ok {
		return e, nil
	}
	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		return nil, errors.WithDetails(ErrCacheFull, "pid", pid, "capacity", c.maxEntries)
	}
	e := &Entry{PID: pid, LastSample: now}
	c.entries[pid] = e
	return e, nil
}

// Reap drops every entry whose pid is not in live and returns how many were removed.
// live is the pid list taken at listedAt; entries sampled after that instant were written
// by a newer scan and are kept.
func (c *DeltaCache) Reap(live map[int]struct{}, listedAt int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for pid, e := range c.entries {
		if e.LastSample > listedAt {
			continue
		}
		if _, ok := live[pid]; !ok {
			delete(c.entries, pid)
			removed++
		}
	}
	return removed
}

// Len reports how many pids currently hold a baseline.
func (c *DeltaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Percent computes clamp(100*Δruntime/Δtime, 0, 100). A zero previous runtime means no
// baseline yet, and a non-positive Δtime yields 0 instead of dividing.
func Percent(lastRuntime uint64, lastSample int64, runtime uint64, now int64) float64 {
	if lastRuntime == 0 {
		return 0
	}
	deltaTime := now - lastSample
	if deltaTime <= 0 {
		return 0
	}
	if runtime <= lastRuntime {
		return 0
	}
	pct := float64(runtime-lastRuntime) * 100 / float64(deltaTime)
	if pct > 100 {
		return 100
	}
	return pct
}
