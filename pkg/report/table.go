package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"emperror.dev/errors"
	"github.com/goccy/go-json"

	"github.com/srodi/procscore/pkg/types"
	"github.com/srodi/procscore/pkg/ui"
)

// Columns is the fixed column layout of the process table.
var Columns = []string{
	"PID", "CPU%", "MEM(MB)", "SYSCALLS*", "INPUT(MB)", "OUTPUT(MB)",
	"SOCKETS", "TCP", "UDP", "PRIO", "TIER", "SCORE",
}

// TableOptions controls terminal-only decorations.
type TableOptions struct {
	Color    bool
	NoHeader bool
}

// WriteTable renders one row per sample.
func WriteTable(w io.Writer, samples []types.ProcessSample, opts TableOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		for i, col := range Columns {
			if opts.Color && col == "TIER" {
				col = ui.Plain(col)
			}
			sep := "\t"
			if i == len(Columns)-1 {
				sep = "\n"
			}
			fmt.Fprint(tw, col, sep)
		}
	}
	// Values are truncated, not rounded, matching the score bands.
	for _, s := range samples {
		tier := s.Tier.String()
		if opts.Color {
			tier = ui.Tier(s.Tier)
		}
		fmt.Fprintf(tw, "%d\t%.0f\t%.0f\t%d\t%.0f\t%.0f\t%d\t%d\t%d\t%d\t%s\t%d\n",
			s.PID, math.Floor(s.CPUPercent), math.Floor(s.MemRSSMB), s.SyscallsProxy,
			math.Floor(s.InputMB), math.Floor(s.OutputMB),
			s.SocketTotal, s.SocketTCP, s.SocketUDP, s.Priority, tier, s.Score)
	}
	if err := tw.Flush(); err != nil {
		return errors.WrapIf(err, "flushing table")
	}
	return nil
}

// Footnote explains the SYSCALLS* column.
const Footnote = "* SYSCALLS counts voluntary + involuntary context switches, a proxy for syscall activity.\n"

// Page is a window of rows from a single snapshot.
type Page struct {
	SnapshotID string                `json:"snapshot_id"`
	TakenAt    string                `json:"taken_at"`
	Offset     int                   `json:"offset"`
	Total      int                   `json:"total"`
	Skipped    int                   `json:"skipped"`
	Samples    []types.ProcessSample `json:"samples"`
}

// WriteJSON renders rows as structured records.
func WriteJSON(w io.Writer, page Page) error {
	if page.Samples == nil {
		page.Samples = []types.ProcessSample{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(page); err != nil {
		return errors.WrapIf(err, "encoding report")
	}
	return nil
}
