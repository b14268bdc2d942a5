package engine

import (
	"sync"
	"testing"

	"emperror.dev/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/procscore/pkg/collector"
	"github.com/srodi/procscore/pkg/collector/collectortest"
	"github.com/srodi/procscore/pkg/collector/cpu"
	"github.com/srodi/procscore/pkg/score"
	"github.com/srodi/procscore/pkg/types"
)

func proc(pid int, comm string, prio int, rssPages uint64) collectortest.Process {
	return collectortest.Process{
		PID:   pid,
		NetNS: 1,
		Counters: collector.Counters{
			Comm:      comm,
			RuntimeNs: 1_000_000,
			RSSPages:  rssPages,
			Priority:  prio,
		},
	}
}

func busyDatabase() collectortest.Process {
	p := proc(812, "postgres", 20, 40000)
	p.Counters.VoluntaryCtxSwitches = 1400
	p.Counters.NonvoluntaryCtxSwitches = 100
	p.Counters.ReadBytes = 12 << 20
	p.Sockets = map[uint64]collector.Protocol{}
	for inode := uint64(1); inode <= 12; inode++ {
		p.Sockets[inode] = collector.ProtoTCP
	}
	return p
}

func TestScanScoresAndSortsByPID(t *testing.T) {
	src := collectortest.NewSource(busyDatabase(), proc(1, "init", 120, 100), proc(40, "sshd", 120, 3000))
	e := New(src)

	snap, err := e.Scan()
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	require.Len(t, snap.Samples, 3)
	assert.Equal(t, []int{1, 40, 812}, pids(snap))

	db := snap.Samples[2]
	// cpu 0, syscalls +2, input +2, sockets +2, prio +3, mem +2
	assert.Equal(t, 11, db.Score)
	assert.Equal(t, types.TierHigh, db.Tier)
	assert.Equal(t, types.TierLow, snap.Samples[0].Tier)
	assert.Nil(t, db.Syscalls)
}

func TestScanOmitsProcessThatExitsMidScan(t *testing.T) {
	src := collectortest.NewSource(proc(1, "init", 120, 10), proc(2, "short", 120, 10), proc(3, "cron", 120, 10))
	src.VanishOnCounters[2] = true
	e := New(src)

	snap, err := e.Scan()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, pids(snap))
	assert.Equal(t, 1, snap.Skipped)
	assert.Equal(t, 2, e.CacheLen(), "a vanished process must not get a baseline")
}

func TestScanReapsExitedProcesses(t *testing.T) {
	src := collectortest.NewSource(proc(1, "init", 120, 10), proc(2, "worker", 120, 10))
	e := New(src)

	_, err := e.Scan()
	require.NoError(t, err)
	require.Equal(t, 2, e.CacheLen())

	src.Remove(2)
	_, err = e.Scan()
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheLen())
}

func TestScanWithoutReapKeepsStaleEntries(t *testing.T) {
	src := collectortest.NewSource(proc(1, "init", 120, 10), proc(2, "worker", 120, 10))
	e := New(src, WithReap(false))

	_, err := e.Scan()
	require.NoError(t, err)
	src.Remove(2)
	_, err = e.Scan()
	require.NoError(t, err)
	assert.Equal(t, 2, e.CacheLen())
}

func TestScanAbortsWhenCacheIsFull(t *testing.T) {
	src := collectortest.NewSource(proc(1, "init", 120, 10), proc(2, "worker", 120, 10))
	e := New(src, WithMaxEntries(1))

	snap, err := e.Scan()
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, ErrResourceExhausted))
	assert.True(t, errors.Is(err, cpu.ErrCacheFull))
	assert.Equal(t, 1, e.CacheLen(), "the rejected pid must not be inserted")
}

func TestConcurrentScansShareOneBaselinePerPID(t *testing.T) {
	src := collectortest.NewSource(proc(1, "init", 120, 10), proc(2, "worker", 120, 10), busyDatabase())
	e := New(src)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := e.Scan()
			if err == nil && len(snap.Samples) != 3 {
				err = errors.New("incomplete snapshot")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 3, e.CacheLen())
}

func TestSetThresholdsAppliesToNextScan(t *testing.T) {
	src := collectortest.NewSource(busyDatabase())
	e := New(src)

	snap, err := e.Scan()
	require.NoError(t, err)
	require.Equal(t, types.TierHigh, snap.Samples[0].Tier)

	e.SetThresholds(score.Thresholds{High: 12, Medium: 6})
	assert.Equal(t, 12, e.Thresholds().High)
	snap, err = e.Scan()
	require.NoError(t, err)
	assert.Equal(t, types.TierMedium, snap.Samples[0].Tier)
}

type fakeSyscalls struct {
	counts map[uint32]uint64
	pruned map[int]struct{}
}

func (f *fakeSyscalls) Snapshot() (map[uint32]uint64, error) { return f.counts, nil }

func (f *fakeSyscalls) Prune(live map[int]struct{}) error {
	f.pruned = live
	return nil
}

func TestScanAttachesExactSyscallCounts(t *testing.T) {
	src := collectortest.NewSource(proc(1, "init", 120, 10), proc(2, "worker", 120, 10))
	counter := &fakeSyscalls{counts: map[uint32]uint64{2: 4242}}
	e := New(src, WithSyscallCounter(counter))

	snap, err := e.Scan()
	require.NoError(t, err)
	assert.Nil(t, snap.Samples[0].Syscalls)
	require.NotNil(t, snap.Samples[1].Syscalls)
	assert.Equal(t, uint64(4242), *snap.Samples[1].Syscalls)
	assert.Len(t, counter.pruned, 2)
	// Exact counts are informational and never feed the score.
	assert.Equal(t, snap.Samples[0].Score, snap.Samples[1].Score)
}

func TestScanRecordsMetrics(t *testing.T) {
	src := collectortest.NewSource(busyDatabase(), proc(1, "init", 120, 10), proc(2, "gone", 120, 10))
	src.VanishOnCounters[2] = true
	reg := prometheus.NewRegistry()
	e := New(src, WithMetrics(NewMetrics(reg)))

	_, err := e.Scan()
	require.NoError(t, err)

	m := e.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rows.WithLabelValues("High")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rows.WithLabelValues("Low")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rows.WithLabelValues("Medium")))
}

func pids(snap *types.Snapshot) []int {
	out := make([]int, 0, len(snap.Samples))
	for _, s := range snap.Samples {
		out = append(out, s.PID)
	}
	return out
}
