package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/geometry"
)

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if _, err := geometry.ParsePolicy(c.Placement.FitPolicy); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid placement.fit_policy").
			WithDetail("fit_policy", c.Placement.FitPolicy)
	}

	switch c.Placement.Mismatch {
	case MismatchStrict, MismatchTruncate:
	default:
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("placement.mismatch must be %q or %q", MismatchStrict, MismatchTruncate)).
			WithDetail("mismatch", c.Placement.Mismatch)
	}

	if c.Collections.MaxOpen < 1 || c.Collections.MaxOpen > DefaultMaxOpen {
		return errors.New(errors.ErrCodeConfigValidation,
			fmt.Sprintf("collections.max_open must be between 1 and %d", DefaultMaxOpen)).
			WithDetail("max_open", c.Collections.MaxOpen)
	}

	for _, ext := range c.Collections.Extensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			return errors.New(errors.ErrCodeConfigValidation, "collections.extensions contains an empty entry")
		}
	}

	if c.Collections.ThumbnailSize < 16 {
		return errors.New(errors.ErrCodeConfigValidation, "collections.thumbnail_size must be at least 16").
			WithDetail("thumbnail_size", c.Collections.ThumbnailSize)
	}

	durations := map[string]string{
		"reconcile.document_interval": c.Reconcile.DocumentInterval,
		"reconcile.folder_interval":   c.Reconcile.FolderInterval,
		"reconcile.debounce":          c.Reconcile.Debounce,
	}
	for field, value := range durations {
		if err := validateDuration(field, value); err != nil {
			return err
		}
	}

	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid server.listen address").
			WithDetail("listen", c.Server.Listen)
	}

	return nil
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid duration for %s", field)).
			WithDetail("value", value)
	}
	if d <= 0 {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s must be positive", field)).
			WithDetail("value", value)
	}
	return nil
}

// NormalizedExtensions returns the configured extensions lower-cased and
// without a leading dot.
func (c *CollectionsConfig) NormalizedExtensions() []string {
	out := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		out = append(out, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	return out
}
