package report

import (
	"sort"
	"strings"

	"github.com/srodi/procscore/pkg/types"
)

// FilterConfig controls which processes appear in terminal tables.
type FilterConfig struct {
	HideKernel bool
	MinTier    types.Tier
}

// FilterSamples keeps the rows passing cfg, preserving order.
func FilterSamples(rows []types.ProcessSample, cfg FilterConfig) []types.ProcessSample {
	filtered := make([]types.ProcessSample, 0, len(rows))
	for _, row := range rows {
		if row.Tier < cfg.MinTier {
			continue
		}
		if cfg.HideKernel && isKernelThread(row) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// SortByScore orders rows by descending score, then ascending pid.
func SortByScore(rows []types.ProcessSample) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score == rows[j].Score {
			return rows[i].PID < rows[j].PID
		}
		return rows[i].Score > rows[j].Score
	})
}

// Window returns rows[offset:offset+limit], clamped. limit <= 0 means no limit.
func Window(rows []types.ProcessSample, offset, limit int) []types.ProcessSample {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}

func isKernelThread(row types.ProcessSample) bool {
	if row.PID == 0 || row.PID == 2 {
		return true
	}
	name := strings.ToLower(row.Comm)
	switch {
	case strings.HasPrefix(name, "kworker"), strings.HasPrefix(name, "ksoftirqd"), strings.HasPrefix(name, "kthreadd"),
		strings.HasPrefix(name, "migration"), strings.HasPrefix(name, "watchdog"), strings.HasPrefix(name, "rcu"),
		strings.HasPrefix(name, "irq/"):
		return true
	}
	return false
}
