// Package cmd holds the framefill command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/pkg/detect"
	"github.com/grovetools/framefill/version"
)

// NewRootCmd assembles the framefill CLI. find is the local frame detector;
// pass nil in builds without OpenCV.
func NewRootCmd(find detect.Func) *cobra.Command {
	root := cli.NewStandardCommand("framefill", "Place folders of images into layout frames")
	root.Long = `framefill opens image folders as collections, tracks which images are
selected and used, and places them into the frames of a layout document.
The daemon serves the host plugin; the other commands work offline.`
	cli.SetVersionTemplate(root, version.GetInfo())

	root.AddCommand(
		NewServeCmd(find),
		NewScanCmd(),
		NewFitCmd(),
		NewDetectCmd(find),
		NewPlaceCmd(),
		NewSchemaCmd(),
		NewConfigCmd(),
		NewLogsCmd(),
		cli.NewVersionCommand("framefill"),
	)
	return root
}
