package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srodi/procscore/pkg/engine"
	"github.com/srodi/procscore/pkg/logger"
	"github.com/srodi/procscore/pkg/report"
	"github.com/srodi/procscore/pkg/types"
	"github.com/srodi/procscore/pkg/ui"
)

type watchConfig struct {
	interval   time.Duration
	minTier    types.Tier
	top        int
	hideKernel bool
	color      bool
}

func newWatchCmd() *cobra.Command {
	var (
		interval   time.Duration
		minTier    string
		riskLog    string
		top        int
		hideKernel bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the report periodically and log risky processes",
		Long: `Rescan every interval and redraw the highest scoring processes. Rows at or
above --min-tier are appended to the risk log when one is configured.

Example:
  procscore watch --interval 3s --min-tier medium --risk-log /var/log/procscore/risk.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = cfg.Watch.Interval
			}
			if !cmd.Flags().Changed("risk-log") {
				riskLog = cfg.Watch.RiskLog
			}
			tier := cfg.MinTier()
			if cmd.Flags().Changed("min-tier") {
				var ok bool
				if tier, ok = types.ParseTier(minTier); !ok {
					return errors.NewWithDetails("unknown tier", "tier", minTier)
				}
			}
			wc := watchConfig{
				interval:   interval,
				minTier:    tier,
				top:        max(top, 1),
				hideKernel: hideKernel,
				color:      term.IsTerminal(int(os.Stdout.Fd())),
			}
			if wc.interval <= 0 {
				wc.interval = cfg.Watch.Interval
			}

			var risk *logger.RiskLog
			if riskLog != "" {
				var err error
				if risk, err = logger.NewRiskLog(riskLog, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups); err != nil {
					return err
				}
				defer risk.Close()
			}

			e, cleanup, err := newEngine(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Seed CPU baselines so the first redraw already has utilization.
			if _, err := e.Scan(); err != nil {
				return err
			}

			cleanupTerminal := enableSingleView()
			defer cleanupTerminal()

			ticker := time.NewTicker(wc.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := snapshotAndPrint(e, risk, wc); err != nil {
						log.Error().Err(err).Msg("snapshot failed")
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "sampling interval (e.g. 3s, 1m)")
	cmd.Flags().StringVar(&minTier, "min-tier", "high", "highlight and log rows at or above this tier")
	cmd.Flags().StringVar(&riskLog, "risk-log", "", "append risky rows to this file")
	cmd.Flags().IntVar(&top, "top", 25, "number of processes to display")
	cmd.Flags().BoolVar(&hideKernel, "hide-kernel", true, "hide kernel threads such as kworker, ksoftirqd, etc")
	return cmd
}

func snapshotAndPrint(e *engine.Engine, risk *logger.RiskLog, wc watchConfig) error {
	snap, err := e.Scan()
	if err != nil {
		return err
	}

	rows := report.FilterSamples(snap.Samples, report.FilterConfig{HideKernel: wc.hideKernel})
	report.SortByScore(rows)

	risky := report.FilterSamples(rows, report.FilterConfig{MinTier: wc.minTier})
	if risk != nil {
		for _, row := range risky {
			risk.Record(row)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(ui.Banner())
	fmt.Fprintf(&buf, "procscore (press Ctrl+C to exit)\n")
	fmt.Fprintf(&buf, "Updated: %s | Interval: %v | Processes: %d | Skipped: %d\n\n",
		snap.TakenAt.Format(time.RFC3339), wc.interval, len(snap.Samples), snap.Skipped)

	if len(risky) > 0 {
		msg := fmt.Sprintf("[!] %d process(es) at or above %s", len(risky), wc.minTier)
		if wc.color {
			msg = ui.Alert(msg)
		}
		fmt.Fprintf(&buf, "%s\n\n", msg)
	}

	fmt.Fprintf(&buf, "[Top %d by score]\n", wc.top)
	if err := report.WriteTable(&buf, report.Window(rows, 0, wc.top), report.TableOptions{Color: wc.color}); err != nil {
		return err
	}
	buf.WriteString("\n" + report.Footnote)

	if wc.color {
		fmt.Print(ui.ClearScreen)
	}
	fmt.Print(buf.String())
	return nil
}

func enableSingleView() func() {
	stdoutFD := int(os.Stdout.Fd())
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdoutFD) {
		return func() {}
	}

	fmt.Print("\033[?1049h") // switch to alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	var restore []func()
	if term.IsTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err != nil {
			log.Warn().Err(err).Msg("unable to suppress stdin echo")
		} else if undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Print("\033[?25h")   // show cursor
		fmt.Print("\033[?1049l") // restore main buffer
	}
}
