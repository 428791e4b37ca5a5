package main

import (
	"os"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/cmd"
	"github.com/grovetools/framefill/pkg/detect/cv"
)

func main() {
	if err := cli.Execute(cmd.NewRootCmd(cv.Detect)); err != nil {
		os.Exit(1)
	}
}
