package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/framefill/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to out
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints a hint for err based on its code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	fe, _ := err.(*errors.FrameError)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found. Run 'framefill config' to see where framefill looks for it.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(h.Out, "Run 'framefill schema' to print the accepted format.\n")

	case errors.ErrCodeMismatch:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Select as many images as frames, or set placement.mismatch: truncate.\n")

	case errors.ErrCodeLimitExceeded:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Close a collection before opening another one.\n")

	case errors.ErrCodeExternalAPI:
		if fe != nil && fe.Details["stage"] != nil {
			fmt.Fprintf(h.Out, "❌ Host call failed at stage '%v': %v\n", fe.Details["stage"], err)
		} else {
			fmt.Fprintf(h.Out, "❌ Host call failed: %v\n", err)
		}

	case errors.ErrCodeIO:
		if fe != nil && fe.Details["path"] != nil {
			fmt.Fprintf(h.Out, "❌ Cannot access %v\n", fe.Details["path"])
		} else {
			fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
		}

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && fe != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", fe.ToJSON())
	}
	return err
}
