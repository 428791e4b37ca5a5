package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/pkg/geometry"
)

// NewFitCmd computes a transform or a fit box from flags.
func NewFitCmd() *cobra.Command {
	var src, dst, policy string
	var photoW, photoH float64

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Compute the transform that fits an element into a frame",
		Long: `Computes the scale and translation placement would apply. With --photo-width
and --photo-height it instead prints the largest aspect-preserving box inside
the frame.

Examples:
  framefill fit --src 0,0,400,300 --dst 100,100,200,200
  framefill fit --src 0,0,400,300 --dst 100,100,200,200 --policy fit
  framefill fit --dst 0,0,200,200 --photo-width 4000 --photo-height 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseRect(dst)
			if err != nil {
				return err
			}
			jsonOut := cli.GetOptions(cmd).JSONOutput
			p := cli.Pretty(cmd)

			if photoW > 0 || photoH > 0 {
				box, err := geometry.FitBox(target, photoW, photoH)
				if err != nil {
					return err
				}
				if jsonOut {
					return cli.PrintJSON(cmd, box)
				}
				p.Field("box", box)
				return nil
			}

			source, err := parseRect(src)
			if err != nil {
				return err
			}
			pol, err := geometry.ParsePolicy(policy)
			if err != nil {
				return err
			}
			t, err := geometry.ComputeFit(source, target, pol)
			if err != nil {
				return err
			}
			if jsonOut {
				return cli.PrintJSON(cmd, map[string]interface{}{"transform": t, "result": geometry.Apply(source, t)})
			}
			px, py := t.Percent()
			p.Field("scale", fmt.Sprintf("%.2f%% x %.2f%%", px, py))
			p.Field("translate", fmt.Sprintf("%.2f, %.2f", t.TranslateX, t.TranslateY))
			p.Field("result", geometry.Apply(source, t))
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "Element bounds as x,y,w,h")
	cmd.Flags().StringVar(&dst, "dst", "", "Frame bounds as x,y,w,h")
	cmd.Flags().StringVar(&policy, "policy", "fill", "Scaling policy: fill, fit, stretchWidth")
	cmd.Flags().Float64Var(&photoW, "photo-width", 0, "Photo width for a fit box")
	cmd.Flags().Float64Var(&photoH, "photo-height", 0, "Photo height for a fit box")
	_ = cmd.MarkFlagRequired("dst")

	return cmd
}
