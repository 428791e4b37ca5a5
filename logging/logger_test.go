package logging

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLoggers() {
	loggersMu.Lock()
	loggers = make(map[string]*logrus.Entry)
	loggersMu.Unlock()
}

func TestNewLogger(t *testing.T) {
	t.Setenv("FRAMEFILL_HOME", t.TempDir())
	defer resetLoggers()

	logger := NewLogger("test-component")
	require.NotNil(t, logger)
	assert.Equal(t, "test-component", logger.Data["component"])

	// Singleton per component.
	assert.Same(t, logger, NewLogger("test-component"))
}

func TestNewLoggerWritesToRing(t *testing.T) {
	t.Setenv("FRAMEFILL_HOME", t.TempDir())
	defer resetLoggers()

	logger := NewLogger("ring-test")
	logger.Info("placed into frame")

	found := false
	for _, line := range Ring().Lines() {
		if strings.Contains(line, "placed into frame") {
			found = true
		}
	}
	assert.True(t, found, "ring should hold the logged line")
}

func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("FRAMEFILL_HOME", t.TempDir())
	t.Setenv("FRAMEFILL_LOG_LEVEL", "debug")
	t.Setenv("FRAMEFILL_LOG_CALLER", "true")
	defer resetLoggers()

	logger := NewLogger("env-test")
	assert.Equal(t, logrus.DebugLevel, logger.Logger.GetLevel())
	assert.True(t, logger.Logger.ReportCaller)
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "test message",
				Data: logrus.Fields{
					"component": "placement",
					"target":    "frame-1",
				},
			},
			want: []string{"[INFO]", "placement", "test message", "target=frame-1"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "warning message",
				Data:    logrus.Fields{"component": "placement"},
			},
			want:    []string{"[WARN]", "warning message"},
			notWant: []string{"placement"},
		},
		{
			name:   "caller information with function name",
			config: FormatConfig{},
			entry: func() *logrus.Entry {
				logger := logrus.New()
				logger.SetReportCaller(true)
				return &logrus.Entry{
					Logger:  logger,
					Level:   logrus.InfoLevel,
					Message: "with caller",
					Data:    logrus.Fields{"component": "collector"},
					Caller: &runtime.Frame{
						File:     "/path/to/drift.go",
						Line:     42,
						Function: "github.com/example/collector.scan",
					},
				}
			}(),
			want: []string{"[INFO]", "with caller", "[drift.go:42 collector.scan]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{Config: tt.config}
			output, err := formatter.Format(tt.entry)
			require.NoError(t, err)

			for _, want := range tt.want {
				assert.Contains(t, string(output), want)
			}
			for _, notWant := range tt.notWant {
				assert.NotContains(t, string(output), notWant)
			}
		})
	}
}

func TestTextFormatterSortsFields(t *testing.T) {
	formatter := &TextFormatter{Config: FormatConfig{DisableTimestamp: true, DisableComponent: true}}
	out, err := formatter.Format(&logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "m",
		Data:    logrus.Fields{"zeta": 1, "alpha": 2, "mid": 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "[INFO] m alpha=2 mid=3 zeta=1\n", string(out))
}

func TestTextFormatterQuotesValues(t *testing.T) {
	formatter := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	out, err := formatter.Format(&logrus.Entry{
		Level:   logrus.ErrorLevel,
		Message: "import failed",
		Data: logrus.Fields{
			"component": "placement",
			"error":     fmt.Errorf("file not found"),
			"path":      "/tmp/a b.jpg",
			"empty":     "",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `[ERROR] [placement] import failed empty="" error="file not found" path="/tmp/a b.jpg"`+"\n", string(out))
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.WarnLevel)

	entry := logger.WithField("component", "test")
	entry.Debug("debug message")
	entry.Info("info message")
	entry.Warn("warn message")
	entry.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestShouldLogToStderr(t *testing.T) {
	assert.True(t, shouldLogToStderr("always", logrus.InfoLevel))
	assert.False(t, shouldLogToStderr("never", logrus.DebugLevel))
	assert.True(t, shouldLogToStderr("auto", logrus.DebugLevel))
}

func TestRingWriter(t *testing.T) {
	r := NewRingWriter(3)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(r, "line %d\n", i)
	}
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, r.Lines())
	assert.Equal(t, []string{"line 5"}, r.Tail(1))

	// Partial writes are joined.
	r.Reset()
	_, _ = r.Write([]byte("par"))
	assert.Empty(t, r.Lines())
	_, _ = r.Write([]byte("tial\nnext\n"))
	assert.Equal(t, []string{"partial", "next"}, r.Lines())
	assert.Equal(t, "partial\nnext", r.String())
}

func TestGlobalOutput(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	defer SetGlobalOutput(os.Stderr)

	_, err := GetGlobalOutput().Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", buf.String())
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf).WithWidth(10)

	p.Success("placed 2")
	p.ErrorPretty("failed", errors.New("clip step"))
	p.Field("policy", "fill")
	p.Item("a.jpg", true)
	p.Divider()

	out := buf.String()
	assert.Contains(t, out, "placed 2")
	assert.Contains(t, out, "clip step")
	assert.Contains(t, out, "policy")
	assert.Contains(t, out, "a.jpg")
	assert.Contains(t, out, strings.Repeat("─", 10))
}
