package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/framefill/errors"
)

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrapText("short", 20))
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	assert.Equal(t, []string{"a", "", "b"}, wrapText("a\n\nb", 8))
}

func TestSplitExamples(t *testing.T) {
	desc, ex := splitExamples("Does things.\n\nExamples:\n  framefill scan .")
	assert.Equal(t, "Does things.", desc)
	assert.Equal(t, "framefill scan .", ex)

	desc, ex = splitExamples("Only text.")
	assert.Equal(t, "Only text.", desc)
	assert.Empty(t, ex)
}

func TestStyledHelp(t *testing.T) {
	root := NewStandardCommand("framefill", "Place images")
	sub := &cobra.Command{
		Use:   "scan <dir>",
		Short: "List a folder",
		Long:  "Lists a folder.\n\nExamples:\n  framefill scan ./photos --json",
		RunE:  func(*cobra.Command, []string) error { return nil },
	}
	sub.Flags().Int("tail", 50, "Lines to show")
	root.AddCommand(sub)
	ApplyStyledHelpRecursive(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"scan", "--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "FRAMEFILL SCAN")
	assert.Contains(t, help, "USAGE")
	assert.Contains(t, help, "--tail")
	assert.Contains(t, help, "default: 50")
	assert.Contains(t, help, "EXAMPLES")
	assert.Contains(t, help, "./photos")
}

func TestErrorHandlerHints(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.Mismatch(2, 3), "placement.mismatch: truncate"},
		{errors.LimitExceeded(5), "Close a collection"},
		{errors.ExternalAPI("import", fmt.Errorf("boom")), "stage 'import'"},
		{errors.IO("/tmp/x", fmt.Errorf("denied")), "Cannot access /tmp/x"},
		{errors.New(errors.ErrCodeConfigValidation, "bad"), "framefill schema"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		err := NewErrorHandler(&out, false).Handle(tt.err)
		assert.Equal(t, tt.err, err)
		assert.Contains(t, out.String(), tt.want)
	}

	var out bytes.Buffer
	NewErrorHandler(&out, true).Handle(errors.Mismatch(1, 2))
	assert.Contains(t, out.String(), "Error details:")
	assert.Nil(t, NewErrorHandler(&out, false).Handle(nil))
}
