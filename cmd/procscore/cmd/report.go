package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/srodi/procscore/pkg/report"
	"github.com/srodi/procscore/pkg/types"
)

func newReportCmd() *cobra.Command {
	var (
		asJSON     bool
		warmup     time.Duration
		limit      int
		minTier    string
		hideKernel bool
		noColor    bool
		noHeader   bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print one scored report",
		Long: `Scan the process table twice, warmup apart, so CPU utilization has a
baseline, then print one row per process.

Example:
  procscore report --warmup 2s
  procscore report --json --min-tier medium`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, ok := types.ParseTier(minTier)
			if !ok {
				return errors.NewWithDetails("unknown tier", "tier", minTier)
			}
			if !cmd.Flags().Changed("warmup") {
				warmup = cfg.Scan.Warmup
			}

			e, cleanup, err := newEngine(nil)
			if err != nil {
				return err
			}
			defer cleanup()

			if warmup > 0 {
				if _, err := e.Scan(); err != nil {
					return err
				}
				time.Sleep(warmup)
			}
			snap, err := e.Scan()
			if err != nil {
				return err
			}

			rows := report.FilterSamples(snap.Samples, report.FilterConfig{HideKernel: hideKernel, MinTier: tier})
			total := len(rows)
			rows = report.Window(rows, 0, limit)

			if asJSON {
				return report.WriteJSON(os.Stdout, report.Page{
					SnapshotID: snap.ID,
					TakenAt:    snap.TakenAt.UTC().Format(time.RFC3339Nano),
					Total:      total,
					Skipped:    snap.Skipped,
					Samples:    rows,
				})
			}
			color := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
			if err := report.WriteTable(os.Stdout, rows, report.TableOptions{Color: color, NoHeader: noHeader}); err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, "\n"+report.Footnote)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON records instead of a table")
	cmd.Flags().DurationVar(&warmup, "warmup", time.Second, "delay between the baseline scan and the reported scan (0 disables)")
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many rows (0 means all)")
	cmd.Flags().StringVar(&minTier, "min-tier", "low", "only print rows at or above this tier: "+strings.Join(tierNames(), ", "))
	cmd.Flags().BoolVar(&hideKernel, "hide-kernel", false, "hide kernel threads such as kworker, ksoftirqd, etc")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable tier colors")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the column header, e.g. when piping to sort or awk")
	return cmd
}

func tierNames() []string {
	return []string{
		strings.ToLower(types.TierLow.String()),
		strings.ToLower(types.TierMedium.String()),
		strings.ToLower(types.TierHigh.String()),
	}
}
