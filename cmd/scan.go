package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/folder"
)

// NewScanCmd lists a folder the way a collection tab shows it.
func NewScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <dir>",
		Short: "List the images a folder would contribute as a collection",
		Long: `Lists the image files of a folder in display order with their sizes and
preview dimensions, followed by per-format statistics.

Examples:
  framefill scan ~/Pictures/shoot
  framefill scan ./photos --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			local, err := folder.Open(args[0], cfg.Collections.Exclude)
			if err != nil {
				return err
			}

			reg := collection.NewRegistry(collection.OptionsFromConfig(cfg.Collections), nil, nil)
			c, err := reg.Open(cmd.Context(), local)
			if err != nil {
				return err
			}
			stats, err := reg.Stats(c.ID)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd, map[string]interface{}{"collection": c, "stats": stats})
			}
			cli.PrintCollection(cli.Pretty(cmd), c, stats)
			return nil
		},
	}
}
