package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/daemon"
	"github.com/grovetools/framefill/pkg/detect"
	"github.com/grovetools/framefill/pkg/geometry"
)

// NewDetectCmd finds rectangular frames in a layout image. find runs local
// detection; without it only --remote works.
func NewDetectCmd(find detect.Func) *cobra.Command {
	var (
		opts   = detect.DefaultOptions()
		photos []string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect rectangular frames in a layout image",
		Long: `Runs edge detection on an image and prints the bounding boxes of the frames
found in it, top to bottom. With --photo, pairs the frames with photos in
order and prints the box each photo would fill.

Examples:
  framefill detect layout.png
  framefill detect layout.png --photo a.jpg --photo b.jpg
  framefill detect layout.png --remote`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				frames []geometry.Rect
				err    error
			)
			if remote {
				frames, err = detectRemote(cmd, args[0])
			} else {
				frames, err = detectLocal(find, args[0], opts)
			}
			if err != nil {
				return err
			}

			jsonOut := cli.GetOptions(cmd).JSONOutput
			if len(photos) == 0 {
				if jsonOut {
					return cli.PrintJSON(cmd, frames)
				}
				p := cli.Pretty(cmd)
				for _, f := range frames {
					p.Item(f.String(), false)
				}
				p.Field("frames", len(frames))
				return nil
			}

			sizes := make([]detect.Size, len(photos))
			for i, path := range photos {
				if sizes[i], err = imageSize(path); err != nil {
					return err
				}
			}
			slots, err := detect.Plan(frames, sizes)
			if err != nil {
				return err
			}
			if jsonOut {
				return cli.PrintJSON(cmd, slots)
			}
			p := cli.Pretty(cmd)
			for i, s := range slots {
				p.Field(photos[i], s.Box)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.MinWidth, "min-width", opts.MinWidth, "Smallest frame width in pixels")
	cmd.Flags().IntVar(&opts.MinHeight, "min-height", opts.MinHeight, "Smallest frame height in pixels")
	cmd.Flags().IntVar(&opts.BlurKernel, "blur", opts.BlurKernel, "Gaussian blur kernel size before edge detection (0 disables)")
	cmd.Flags().Float32Var(&opts.LowThreshold, "low", opts.LowThreshold, "Lower Canny threshold")
	cmd.Flags().Float32Var(&opts.HighThreshold, "high", opts.HighThreshold, "Upper Canny threshold")
	cmd.Flags().StringArrayVar(&photos, "photo", nil, "Photo to plan into the frames, in order (repeatable)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Run detection in the running daemon")

	return cmd
}

func detectRemote(cmd *cobra.Command, path string) ([]geometry.Rect, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(path, err)
	}
	client := daemon.NewClient(listenAddr(cfg))
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return client.Detect(ctx, data)
}

func detectLocal(find detect.Func, path string, opts detect.Options) ([]geometry.Rect, error) {
	if find == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "this build has no local detector; use --remote")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(path, err)
	}
	return find(data, opts)
}
