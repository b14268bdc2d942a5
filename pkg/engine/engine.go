// Package engine enumerates the process table and turns it into scored report snapshots.
package engine

import (
	"sort"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/srodi/procscore/pkg/collector"
	"github.com/srodi/procscore/pkg/collector/cpu"
	"github.com/srodi/procscore/pkg/score"
	"github.com/srodi/procscore/pkg/types"
)

// ErrResourceExhausted aborts a scan that could not record CPU baselines for every process.
const ErrResourceExhausted = errors.Sentinel("resource exhausted")

// SyscallCounter supplies exact per-process syscall counts keyed by tgid.
type SyscallCounter interface {
	Snapshot() (map[uint32]uint64, error)
	Prune(live map[int]struct{}) error
}

// Engine drives scans. It is safe for concurrent use; scans share the delta cache.
type Engine struct {
	collector  *collector.Collector
	cache      *cpu.DeltaCache
	reap       bool
	syscalls   SyscallCounter
	thresholds atomic.Pointer[score.Thresholds]
	metrics    *Metrics
	logger     zerolog.Logger
	clock      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache shares an existing delta cache.
func WithCache(cache *cpu.DeltaCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithMaxEntries bounds the delta cache. 0 means unlimited.
func WithMaxEntries(n int) Option {
	return func(e *Engine) { e.cache = cpu.NewDeltaCache(n) }
}

// WithReap toggles removal of cache entries for exited processes.
func WithReap(enabled bool) Option {
	return func(e *Engine) { e.reap = enabled }
}

// WithSyscallCounter attaches exact syscall counts to samples.
func WithSyscallCounter(c SyscallCounter) Option {
	return func(e *Engine) { e.syscalls = c }
}

// WithThresholds sets the initial tier cutoffs.
func WithThresholds(t score.Thresholds) Option {
	return func(e *Engine) { e.thresholds.Store(&t) }
}

// WithMetrics records scan statistics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an engine reading processes from src. Reaping is on by default.
func New(src collector.Source, opts ...Option) *Engine {
	e := &Engine{
		reap:   true,
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
	defaults := score.DefaultThresholds()
	e.thresholds.Store(&defaults)
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cpu.NewDeltaCache(0)
	}
	e.collector = collector.New(src, e.cache)
	return e
}

// Thresholds returns the tier cutoffs in effect.
func (e *Engine) Thresholds() score.Thresholds {
	return *e.thresholds.Load()
}

// SetThresholds swaps the tier cutoffs used by subsequent scans.
func (e *Engine) SetThresholds(t score.Thresholds) {
	e.thresholds.Store(&t)
	e.logger.Info().Int("high", t.High).Int("medium", t.Medium).Msg("tier thresholds updated")
}

// CacheLen reports how many processes currently have a CPU baseline.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// Scan takes one snapshot of the process table. Processes that exit while being read are
// left out. The scan is aborted with ErrResourceExhausted when the delta cache is full.
func (e *Engine) Scan() (*types.Snapshot, error) {
	start := time.Now()
	snap, err := e.scan()
	e.metrics.observeScan(snap, err, time.Since(start), e.cache.Len())
	return snap, err
}

func (e *Engine) scan() (*types.Snapshot, error) {
	listedAt := e.collector.Now()
	pids, err := e.collector.PIDs()
	if err != nil {
		return nil, errors.WrapIf(err, "listing processes")
	}
	sort.Ints(pids)

	live := make(map[int]struct{}, len(pids))
	for _, pid := range pids {
		live[pid] = struct{}{}
	}
	if e.reap {
		if n := e.cache.Reap(live, listedAt); n > 0 {
			e.logger.Debug().Int("reaped", n).Msg("dropped baselines of exited processes")
		}
	}

	exact := e.syscallCounts(live)
	thresholds := e.Thresholds()
	pass := collector.NewScan()

	snap := &types.Snapshot{
		ID:      uuid.NewString(),
		TakenAt: e.clock(),
		Samples: make([]types.ProcessSample, 0, len(pids)),
	}
	for _, pid := range pids {
		sample, err := e.collector.Collect(pass, pid)
		switch {
		case err == nil:
		case errors.Is(err, cpu.ErrCacheFull):
			return nil, errors.Combine(ErrResourceExhausted, err)
		case errors.Is(err, collector.ErrProcessGone):
			e.logger.Debug().Int("pid", pid).Msg("process exited during scan")
			snap.Skipped++
			continue
		default:
			e.logger.Warn().Err(err).Int("pid", pid).Msg("skipping unreadable process")
			snap.Skipped++
			continue
		}

		sample.Score, sample.Tier = thresholds.Evaluate(score.FromSample(sample))
		if count, ok := exact[uint32(pid)]; ok {
			sample.Syscalls = &count
		}
		snap.Samples = append(snap.Samples, sample)
	}
	return snap, nil
}

func (e *Engine) syscallCounts(live map[int]struct{}) map[uint32]uint64 {
	if e.syscalls == nil {
		return nil
	}
	if err := e.syscalls.Prune(live); err != nil {
		e.logger.Warn().Err(err).Msg("pruning syscall counters")
	}
	counts, err := e.syscalls.Snapshot()
	if err != nil {
		e.logger.Warn().Err(err).Msg("reading syscall counters")
		return nil
	}
	return counts
}
