package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/collection"
	"github.com/grovetools/framefill/pkg/placement"
)

// Pretty returns a PrettyLogger writing to the command's stdout, sized to
// the terminal.
func Pretty(cmd *cobra.Command) *logging.PrettyLogger {
	return logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).WithWidth(getTerminalWidth())
}

// PrintJSON writes v as indented JSON to the command's stdout.
func PrintJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// PrintCollection lists the resources of c in display order. Used
// resources are dimmed.
func PrintCollection(p *logging.PrettyLogger, c collection.Collection, stats collection.Stats) {
	p.Path(c.Label, c.Path)
	p.Field("images", stats.Total)
	p.Field("bytes", stats.Bytes)
	for ext, n := range stats.Formats {
		p.Field("  "+ext, n)
	}
	p.Divider()
	for _, r := range c.Resources {
		line := r.Name
		if r.Preview != nil {
			line = fmt.Sprintf("%-32s %5dx%-5d %8d B", r.Name, r.Preview.Width, r.Preview.Height, r.Size)
		} else {
			line = fmt.Sprintf("%-32s %11s %8d B", r.Name, "no preview", r.Size)
		}
		p.Item(line, r.Used)
	}
}

// PrintReport summarizes a placement batch.
func PrintReport(p *logging.PrettyLogger, r placement.Report) {
	if r.Mismatch != nil {
		msg := fmt.Sprintf("%d images selected but %d frames selected", r.Mismatch.SelectedCount, r.Mismatch.TargetCount)
		if r.Truncated {
			msg += " (truncated)"
		}
		p.WarnPretty(msg)
	}
	for _, pl := range r.Placed {
		p.Success(fmt.Sprintf("%s → %s", filepath.Base(pl.Key), pl.TargetID))
		px, py := pl.Transform.Percent()
		p.Item(fmt.Sprintf("scale %.1f%% x %.1f%%, move %.1f, %.1f", px, py, pl.Transform.TranslateX, pl.Transform.TranslateY), true)
	}
	for _, f := range r.Failed {
		p.ErrorPretty(fmt.Sprintf("%s → %s failed at %s", filepath.Base(f.Key), f.TargetID, f.Stage), fmt.Errorf("%s", f.Message))
	}
	p.Divider()
	p.Field("placed", fmt.Sprintf("%d of %d", len(r.Placed), r.Attempted()))
}
