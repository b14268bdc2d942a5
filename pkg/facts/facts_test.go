package facts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFacts(context.Context) (Facts, error) {
	return Facts{
		Hostname:      "builder",
		KernelRelease: "6.8.0-41-generic",
		CPUModel:      "AMD EPYC 7B13",
		LogicalCPUs:   8,
		PhysicalCPUs:  4,
		MemAvailable:  6 << 30,
		MemTotal:      16 << 30,
		Uptime:        95 * time.Minute,
		Processes:     312,
	}, nil
}

func TestRenderAllFields(t *testing.T) {
	f, _ := fixedFacts(context.Background())
	out := Render(f, 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	require.Len(t, lines, 8)
	assert.Equal(t, "builder", lines[0])
	assert.Equal(t, "-------", lines[1])
	assert.Contains(t, out, "Kernel:  6.8.0-41-generic")
	assert.Contains(t, out, "CPU:     AMD EPYC 7B13")
	assert.Contains(t, out, "CPUs:    8 / 4")
	assert.Contains(t, out, "Procs:   312")
	assert.Contains(t, out, "Uptime:  95 mins")
	assert.Contains(t, out, "GB")
}

func TestRenderHonorsMask(t *testing.T) {
	f, _ := fixedFacts(context.Background())
	out := Render(f, FieldRelease|FieldUptime)

	assert.Contains(t, out, "Kernel:")
	assert.Contains(t, out, "Uptime:")
	assert.NotContains(t, out, "CPU")
	assert.NotContains(t, out, "Mem:")
	assert.NotContains(t, out, "Procs:")
	assert.True(t, strings.HasPrefix(out, "builder\n-------\n"))
}

func TestWriteRejectsOutOfRangeMask(t *testing.T) {
	p, err := NewProvider(fixedFacts, FieldProcs)
	require.NoError(t, err)

	for _, mask := range []int{-1, AllFields + 1, 1 << 10} {
		err := p.Write(mask)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMask))
		assert.Equal(t, FieldProcs, p.Mask(), "rejected mask %d must not replace the current one", mask)
	}

	require.NoError(t, p.Write(AllFields))
	assert.Equal(t, AllFields, p.Mask())
	require.NoError(t, p.Write(0))
	assert.Equal(t, 0, p.Mask())
}

func TestNewProviderRejectsInvalidMask(t *testing.T) {
	_, err := NewProvider(fixedFacts, 64)
	assert.True(t, errors.Is(err, ErrInvalidMask))
}

func TestOpenIsExclusive(t *testing.T) {
	p, err := NewProvider(fixedFacts, 0)
	require.NoError(t, err)

	require.NoError(t, p.Open())
	assert.ErrorIs(t, p.Open(), ErrBusy)
	p.Release()
	require.NoError(t, p.Open())
	p.Release()
}

func TestOpenConcurrentOnlyOneWins(t *testing.T) {
	p, err := NewProvider(fixedFacts, 0)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Open() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestReadUsesCurrentMask(t *testing.T) {
	p, err := NewProvider(fixedFacts, FieldProcs)
	require.NoError(t, err)

	out, err := p.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "builder\n-------\nProcs:   312\n", out)
}

func TestReadWrapsGatherErrors(t *testing.T) {
	boom := errors.New("no host")
	p, err := NewProvider(func(context.Context) (Facts, error) { return Facts{}, boom }, 0)
	require.NoError(t, err)

	_, err = p.Read(context.Background())
	assert.ErrorIs(t, err, boom)
}
