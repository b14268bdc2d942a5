package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srodi/procscore/pkg/facts"
)

func newFactsCmd() *cobra.Command {
	var mask int
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Print a short host summary",
		Long: `Print the hostname followed by the fields selected by the mask:
  1 kernel release, 2 cpu counts, 4 cpu model, 8 memory, 16 uptime, 32 process count.
0 selects every field.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("mask") {
				mask = cfg.Facts.Mask
			}
			provider, err := facts.NewProvider(nil, mask)
			if err != nil {
				return err
			}
			if err := provider.Open(); err != nil {
				return err
			}
			defer provider.Release()

			banner, err := provider.Read(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, banner)
			return nil
		},
	}
	cmd.Flags().IntVar(&mask, "mask", facts.AllFields, "field mask in [0, 63]")
	return cmd
}
