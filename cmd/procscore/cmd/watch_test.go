package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srodi/procscore/pkg/collector"
	"github.com/srodi/procscore/pkg/collector/collectortest"
	"github.com/srodi/procscore/pkg/engine"
	"github.com/srodi/procscore/pkg/logger"
	"github.com/srodi/procscore/pkg/types"
)

func TestSnapshotAndPrintLogsRiskyRows(t *testing.T) {
	src := collectortest.NewSource(
		collectortest.Process{PID: 1, Counters: collector.Counters{Comm: "init", Priority: 120}},
		collectortest.Process{PID: 7, Counters: collector.Counters{
			Comm:                 "miner",
			Priority:             0,
			VoluntaryCtxSwitches: 5000,
			ReadBytes:            64 << 20,
			WriteBytes:           64 << 20,
		}},
	)
	path := filepath.Join(t.TempDir(), "risk.log")
	risk, err := logger.NewRiskLog(path, 1, 1)
	require.NoError(t, err)

	wc := watchConfig{interval: time.Second, minTier: types.TierHigh, top: 10}
	require.NoError(t, snapshotAndPrint(engine.New(src), risk, wc))
	require.NoError(t, risk.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"pid":7`)
	assert.Contains(t, lines[0], `"tier":"High"`)
}

func TestTierNames(t *testing.T) {
	assert.Equal(t, []string{"low", "medium", "high"}, tierNames())
}
