package cmd

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srodi/procscore/pkg/collector"
	"github.com/srodi/procscore/pkg/collector/syscalls"
	"github.com/srodi/procscore/pkg/engine"
)

// newEngine wires the process source, the optional syscall tracer and metrics from cfg.
// The returned cleanup releases the tracer.
func newEngine(reg prometheus.Registerer) (*engine.Engine, func(), error) {
	src, err := collector.NewProcSource(cfg.Scan.ProcMount)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithReap(cfg.Scan.Reap),
		engine.WithMaxEntries(cfg.Scan.MaxEntries),
		engine.WithThresholds(cfg.Score),
		engine.WithLogger(log.With().Str("component", "engine").Logger()),
	}
	if reg != nil {
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(reg)))
	}

	cleanup := func() {}
	if cfg.Scan.TraceSyscalls {
		tracer, err := syscalls.NewCollector()
		if err != nil {
			log.Warn().Err(err).Msg("exact syscall counts unavailable")
		} else {
			opts = append(opts, engine.WithSyscallCounter(tracer))
			cleanup = func() {
				if err := tracer.Close(); err != nil {
					log.Warn().Err(err).Msg("closing syscall tracer")
				}
			}
		}
	}
	return engine.New(src, opts...), cleanup, nil
}
