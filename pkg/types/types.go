package types

import (
	"strings"
	"time"
)

// Tier is the risk classification derived from a process score.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "High"
	case TierMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// MarshalText lets tiers appear by name in JSON and YAML.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTier accepts the tier names case-insensitively.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TierHigh, true
	case "medium":
		return TierMedium, true
	case "low", "":
		return TierLow, true
	}
	return TierLow, false
}

// ProcessSample is one scored row of a report. It only lives as long as the report it belongs to.
type ProcessSample struct {
	PID        int     `json:"pid"`
	Comm       string  `json:"comm"`
	CPUPercent float64 `json:"cpu_percent"`
	MemRSSMB   float64 `json:"mem_rss_mb"`
	// SyscallsProxy is voluntary + involuntary context switches. It approximates syscall
	// activity and is not a syscall count.
	SyscallsProxy uint64  `json:"syscalls_proxy"`
	InputMB       float64 `json:"input_mb"`
	OutputMB      float64 `json:"output_mb"`
	SocketTotal   uint64  `json:"socket_total"`
	SocketTCP     uint64  `json:"socket_tcp"`
	SocketUDP     uint64  `json:"socket_udp"`
	Priority      int     `json:"priority"`
	Score         int     `json:"score"`
	Tier          Tier    `json:"tier"`
	// Syscalls is the exact number of syscalls entered since tracing started. Only set when
	// the eBPF tracer is running.
	Syscalls *uint64 `json:"syscalls,omitempty"`
}

// Snapshot is the result of one full scan of the process table.
type Snapshot struct {
	ID      string          `json:"id"`
	TakenAt time.Time       `json:"taken_at"`
	Samples []ProcessSample `json:"samples"`
	Skipped int             `json:"skipped"`
}
