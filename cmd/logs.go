package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/daemon"
	"github.com/grovetools/framefill/pkg/paths"
)

// logLine is one line read from a component's log file.
type logLine struct {
	Component string
	Line      string
}

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	var (
		follow    bool
		tailLines int
		component string
		remote    bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show framefill log output",
		Long: `Prints the most recent lines of each component's log file for the latest
day, or the daemon's in-memory log ring with --remote.

Examples:
  framefill logs -f
  framefill logs --component session --tail 200
  framefill logs --remote --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return printRemoteLogs(cmd, tailLines)
			}

			files, err := latestLogFiles(paths.LogDir(), component)
			if err != nil {
				return err
			}
			jsonOut := cli.GetOptions(cmd).JSONOutput
			out := cmd.OutOrStdout()

			for _, f := range files {
				lines, err := lastLines(f.path, tailLines)
				if err != nil {
					return err
				}
				for _, l := range lines {
					printLogLine(out, logLine{Component: f.component, Line: l}, jsonOut)
				}
			}
			if !follow {
				return nil
			}

			lineCh := make(chan logLine, 64)
			var wg sync.WaitGroup
			for _, f := range files {
				t, err := tail.TailFile(f.path, tail.Config{
					Follow:   true,
					ReOpen:   true,
					Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
					Logger:   tail.DiscardingLogger,
				})
				if err != nil {
					return errors.IO(f.path, err)
				}
				wg.Add(1)
				go func(component string, t *tail.Tail) {
					defer wg.Done()
					for l := range t.Lines {
						if l.Err != nil {
							continue
						}
						lineCh <- logLine{Component: component, Line: l.Text}
					}
				}(f.component, t)
				defer t.Stop()
			}

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case l := <-lineCh:
					printLogLine(out, l, jsonOut)
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVar(&tailLines, "tail", 50, "Number of lines to show per component (0 shows everything)")
	cmd.Flags().StringVar(&component, "component", "", "Only show this component (server, session, engine, ...)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Read the running daemon's log ring instead of files")

	return cmd
}

type logFile struct {
	component string
	day       string
	path      string
}

// latestLogFiles returns the newest day's <component>-<day>.log files in dir,
// sorted by component.
func latestLogFiles(dir, component string) ([]logFile, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeNotFound, "no log directory available")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IO(dir, err)
	}

	var all []logFile
	latest := ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".log" {
			continue
		}
		stem := strings.TrimSuffix(name, ".log")
		// Dates are YYYY-MM-DD, so the component is everything before the last 11 bytes.
		if len(stem) < 12 || stem[len(stem)-11] != '-' {
			continue
		}
		day := stem[len(stem)-10:]
		if _, err := time.Parse("2006-01-02", day); err != nil {
			continue
		}
		f := logFile{component: stem[:len(stem)-11], day: day, path: filepath.Join(dir, name)}
		if component != "" && f.component != component {
			continue
		}
		all = append(all, f)
		if day > latest {
			latest = day
		}
	}

	var out []logFile
	for _, f := range all {
		if f.day == latest {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("no log files found in %s", dir)).
			WithDetail("component", component)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].component < out[j].component })
	return out, nil
}

// lastLines reads path to the end and keeps the final n lines; n <= 0 keeps all.
func lastLines(path string, n int) ([]string, error) {
	t, err := tail.TailFile(path, tail.Config{Follow: false, MustExist: true, Logger: tail.DiscardingLogger})
	if err != nil {
		return nil, errors.IO(path, err)
	}
	defer t.Cleanup()

	var lines []string
	for l := range t.Lines {
		if l.Err != nil {
			return nil, errors.IO(path, l.Err)
		}
		if l.Text == "" {
			continue
		}
		lines = append(lines, l.Text)
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, nil
}

func printRemoteLogs(cmd *cobra.Command, n int) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if n <= 0 {
		n = 1000
	}
	client := daemon.NewClient(listenAddr(cfg))
	defer client.Close()

	lines, err := client.Logs(cmd.Context(), n)
	if err != nil {
		return err
	}
	if cli.GetOptions(cmd).JSONOutput {
		return cli.PrintJSON(cmd, lines)
	}
	for _, l := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(l, "\n"))
	}
	return nil
}

// printLogLine renders JSON-formatted lines field by field and prints text
// lines behind a component tag.
func printLogLine(out io.Writer, l logLine, jsonOut bool) {
	var fields map[string]interface{}
	parsed := json.Unmarshal([]byte(l.Line), &fields) == nil

	if jsonOut {
		if !parsed {
			fields = map[string]interface{}{"raw_line": l.Line}
		}
		fields["component"] = l.Component
		data, _ := json.Marshal(fields)
		fmt.Fprintln(out, string(data))
		return
	}

	t := cli.DefaultTheme
	tag := lipgloss.NewStyle().Foreground(t.Colors.Cyan).Render(l.Component)
	if !parsed {
		fmt.Fprintf(out, "[%s] %s\n", tag, l.Line)
		return
	}

	ts, _ := fields["time"].(string)
	level, _ := fields["level"].(string)
	msg, _ := fields["msg"].(string)
	if parsedTime, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = parsedTime.Format("15:04:05")
	}

	levelStyle := t.Muted
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = lipgloss.NewStyle().Foreground(t.Colors.Red)
	case "warning":
		levelStyle = lipgloss.NewStyle().Foreground(t.Colors.Yellow)
	case "info":
		levelStyle = lipgloss.NewStyle().Foreground(t.Colors.Blue)
	}

	var keys []string
	for k := range fields {
		switch k {
		case "time", "level", "msg", "component":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	extra := make([]string, 0, len(keys))
	for _, k := range keys {
		extra = append(extra, fmt.Sprintf("%s=%v", t.Muted.Render(k), fields[k]))
	}

	fmt.Fprintf(out, "%s [%s] %s %s %s\n", ts, tag, levelStyle.Render(strings.ToUpper(level)), msg, strings.Join(extra, " "))
}
