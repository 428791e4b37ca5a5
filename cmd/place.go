package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/internal/session"
	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/document/memdoc"
)

// NewPlaceCmd runs the placement pipeline against an in-memory document.
func NewPlaceCmd() *cobra.Command {
	var (
		simulate bool
		frames   []string
		names    []string
		policy   string
		truncate bool
	)

	cmd := &cobra.Command{
		Use:   "place <dir>...",
		Short: "Dry-run placing folder images into frames",
		Long: `Opens each folder as a collection, selects its images (or the ones named with
--select) and places them into the given frames in order, using an in-memory
document. Prints what each image would be scaled and moved by.

Placement into a live document is driven by the host plugin through the
daemon; this command only simulates it.

Examples:
  framefill place --simulate ./shoot --frame 0,0,400,300 --frame 500,0,400,300
  framefill place --simulate ./a ./b --frame 0,0,200,200 --select b.png --policy fit`,
		Args: cobra.RangeArgs(1, config.DefaultMaxOpen),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !simulate {
				return errors.New(errors.ErrCodeInvalidInput, "live placement runs through the host plugin; pass --simulate for a dry run")
			}
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if policy != "" {
				cfg.Placement.FitPolicy = policy
			}
			if truncate {
				cfg.Placement.Mismatch = config.MismatchTruncate
			}

			rects, err := parseRects(frames)
			if err != nil {
				return err
			}
			targets := make([]document.Target, len(rects))
			for i, r := range rects {
				targets[i] = document.Target{ID: fmt.Sprintf("frame-%d", i+1), Bounds: r}
			}

			doc := memdoc.New(targets...)
			sess, err := session.New(cfg, session.Deps{Document: doc, Tokens: doc, Notifier: alert.NewLogNotifier()})
			if err != nil {
				return err
			}
			doc.SetSizer(previewSizer(sess))

			ctx := cmd.Context()
			wanted := make(map[string]bool, len(names))
			for _, n := range names {
				wanted[n] = true
			}
			for _, dir := range args {
				c, err := sess.OpenFolder(ctx, dir)
				if err != nil {
					return err
				}
				for _, r := range c.Resources {
					if len(wanted) > 0 && !wanted[r.Name] {
						continue
					}
					if err := sess.Click(c.ID, r.Key, session.Modifiers{Toggle: true}); err != nil {
						return err
					}
				}
			}

			report, err := sess.PlaceSelected(ctx)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				if err := cli.PrintJSON(cmd, map[string]interface{}{"report": report, "elements": doc.Elements()}); err != nil {
					return err
				}
				return report.Err()
			}
			cli.PrintReport(cli.Pretty(cmd), report)
			return report.Err()
		},
	}

	cmd.Flags().BoolVar(&simulate, "simulate", false, "Place into an in-memory document")
	cmd.Flags().StringArrayVar(&frames, "frame", nil, "Frame bounds as x,y,w,h, in selection order (repeatable)")
	cmd.Flags().StringArrayVar(&names, "select", nil, "Select only these file names (repeatable)")
	cmd.Flags().StringVar(&policy, "policy", "", "Override placement.fit_policy: fill, fit, stretchWidth")
	cmd.Flags().BoolVar(&truncate, "truncate", false, "Place min(images, frames) pairs on a count mismatch")

	return cmd
}

// previewSizer sizes imported elements from the decoded previews so the
// simulated document matches the real image dimensions.
func previewSizer(sess *session.Session) memdoc.Sizer {
	return func(path string) (float64, float64, bool) {
		for _, c := range sess.Registry().List() {
			if r, ok := c.Find(path); ok && r.Preview != nil {
				return float64(r.Preview.Width), float64(r.Preview.Height), true
			}
		}
		return 0, 0, false
	}
}
