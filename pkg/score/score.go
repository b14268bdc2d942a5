// Package score folds the raw metrics of one process into a risk score and tier.
package score

import "github.com/srodi/procscore/pkg/types"

// MaxScore is the highest score the band table can produce.
const MaxScore = 2 + 2 + 2 + 2 + 2 + 3 + 2

// Thresholds are the tier cutoffs. Older revisions of the scoring table used High=10; the
// canonical table uses 9.
type Thresholds struct {
	High   int `json:"high" yaml:"high" toml:"high" validate:"gtfield=Medium,lte=15"`
	Medium int `json:"medium" yaml:"medium" toml:"medium" validate:"gt=0"`
}

// DefaultThresholds returns the canonical 9/6 cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 9, Medium: 6}
}

// Metrics are the seven inputs of the score.
type Metrics struct {
	CPUPercent    float64
	SyscallsProxy uint64
	InputMB       float64
	OutputMB      float64
	Sockets       uint64
	Priority      int
	MemRSSMB      float64
}

// FromSample extracts the scoring inputs of a collected sample.
func FromSample(s types.ProcessSample) Metrics {
	return Metrics{
		CPUPercent:    s.CPUPercent,
		SyscallsProxy: s.SyscallsProxy,
		InputMB:       s.InputMB,
		OutputMB:      s.OutputMB,
		Sockets:       s.SocketTotal,
		Priority:      s.Priority,
		MemRSSMB:      s.MemRSSMB,
	}
}

// Score adds up the independent band contributions of every metric.
func Score(m Metrics) int {
	score := 0

	switch {
	case m.CPUPercent >= 80:
		score += 2
	case m.CPUPercent > 30:
		score++
	}

	switch {
	case m.SyscallsProxy > 1000:
		score += 2
	case m.SyscallsProxy > 100:
		score++
	}

	score += ioPoints(m.InputMB)
	score += ioPoints(m.OutputMB)

	switch {
	case m.Sockets > 10:
		score += 2
	case m.Sockets >= 4:
		score++
	}

	// Lower prio values are scheduled first and weigh more.
	switch {
	case m.Priority >= 0 && m.Priority < 42:
		score += 3
	case m.Priority >= 42 && m.Priority < 62:
		score += 2
	case m.Priority >= 62 && m.Priority < 139:
		score++
	}

	switch {
	case m.MemRSSMB >= 100:
		score += 2
	case m.MemRSSMB >= 10:
		score++
	}

	return score
}

func ioPoints(mb float64) int {
	switch {
	case mb >= 10:
		return 2
	case mb >= 1:
		return 1
	}
	return 0
}

// Classify maps a score onto a tier.
func (t Thresholds) Classify(score int) types.Tier {
	switch {
	case score >= t.High:
		return types.TierHigh
	case score >= t.Medium:
		return types.TierMedium
	default:
		return types.TierLow
	}
}

// Evaluate scores m and classifies the result.
func (t Thresholds) Evaluate(m Metrics) (int, types.Tier) {
	s := Score(m)
	return s, t.Classify(s)
}
