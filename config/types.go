package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Default values applied by SetDefaults.
const (
	DefaultVersion          = "1.0"
	DefaultFitPolicy        = "fill"
	DefaultMismatchMode     = MismatchStrict
	DefaultBatchLabel       = "Place & Clip inside Frame"
	DefaultMaxOpen          = 5
	DefaultThumbnailSize    = 256
	DefaultDocumentInterval = "2s"
	DefaultFolderInterval   = "4s"
	DefaultDebounce         = "500ms"
	DefaultListen           = "127.0.0.1:7821"
)

// Mismatch modes for placement.mismatch.
const (
	MismatchStrict   = "strict"
	MismatchTruncate = "truncate"
)

// DefaultExtensions is the image extension set a collection lists.
var DefaultExtensions = []string{"png", "jpg", "jpeg", "gif", "webp", "tif", "tiff"}

// PlacementConfig controls the placement orchestrator.
type PlacementConfig struct {
	FitPolicy string `yaml:"fit_policy,omitempty" toml:"fit_policy,omitempty" json:"fit_policy,omitempty" jsonschema:"description=Scaling policy: fill (cover) or fit (contain) or stretchWidth"`
	Mismatch  string `yaml:"mismatch,omitempty" toml:"mismatch,omitempty" json:"mismatch,omitempty" jsonschema:"description=What to do when selection and target counts differ: strict or truncate"`
	Label     string `yaml:"label,omitempty" toml:"label,omitempty" json:"label,omitempty" jsonschema:"description=Label of the exclusive document scope a batch runs in"`
}

// CollectionsConfig controls how folders are listed into collections.
type CollectionsConfig struct {
	MaxOpen       int      `yaml:"max_open,omitempty" toml:"max_open,omitempty" json:"max_open,omitempty" jsonschema:"description=Maximum number of open collections (1-5)"`
	Extensions    []string `yaml:"extensions,omitempty" toml:"extensions,omitempty" json:"extensions,omitempty" jsonschema:"description=File extensions listed as resources"`
	Exclude       []string `yaml:"exclude,omitempty" toml:"exclude,omitempty" json:"exclude,omitempty" jsonschema:"description=Dockerignore-style patterns of files to skip"`
	ThumbnailSize int      `yaml:"thumbnail_size,omitempty" toml:"thumbnail_size,omitempty" json:"thumbnail_size,omitempty" jsonschema:"description=Longest edge of generated previews in pixels"`
}

// ReconcileConfig controls the drift collectors.
type ReconcileConfig struct {
	DocumentInterval string `yaml:"document_interval,omitempty" toml:"document_interval,omitempty" json:"document_interval,omitempty" jsonschema:"description=Poll interval for document drift (Go duration)"`
	FolderInterval   string `yaml:"folder_interval,omitempty" toml:"folder_interval,omitempty" json:"folder_interval,omitempty" jsonschema:"description=Poll interval for folder drift (Go duration)"`
	Watch            bool   `yaml:"watch,omitempty" toml:"watch,omitempty" json:"watch,omitempty" jsonschema:"description=Also refresh the active collection on filesystem events"`
	Debounce         string `yaml:"debounce,omitempty" toml:"debounce,omitempty" json:"debounce,omitempty" jsonschema:"description=Debounce window for filesystem events (Go duration)"`
}

// DocumentEvery returns the parsed document poll interval.
func (r ReconcileConfig) DocumentEvery() time.Duration {
	return parseDurationOr(r.DocumentInterval, DefaultDocumentInterval)
}

// FolderEvery returns the parsed folder poll interval.
func (r ReconcileConfig) FolderEvery() time.Duration {
	return parseDurationOr(r.FolderInterval, DefaultFolderInterval)
}

// DebounceWindow returns the parsed filesystem debounce window.
func (r ReconcileConfig) DebounceWindow() time.Duration {
	return parseDurationOr(r.Debounce, DefaultDebounce)
}

// ServerConfig controls the daemon's HTTP and websocket listener.
type ServerConfig struct {
	Listen  string `yaml:"listen,omitempty" toml:"listen,omitempty" json:"listen,omitempty" jsonschema:"description=Address the daemon listens on"`
	PidFile string `yaml:"pid_file,omitempty" toml:"pid_file,omitempty" json:"pid_file,omitempty" jsonschema:"description=Override for the daemon PID file path"`
}

// Config represents framefill.yml.
type Config struct {
	Version     string            `yaml:"version" toml:"version" json:"version" jsonschema:"description=Configuration version (e.g. 1.0)"`
	Placement   PlacementConfig   `yaml:"placement,omitempty" toml:"placement,omitempty" json:"placement" jsonschema:"description=Placement settings"`
	Collections CollectionsConfig `yaml:"collections,omitempty" toml:"collections,omitempty" json:"collections" jsonschema:"description=Collection (tab) settings"`
	Reconcile   ReconcileConfig   `yaml:"reconcile,omitempty" toml:"reconcile,omitempty" json:"reconcile" jsonschema:"description=Drift reconciliation settings"`
	Server      ServerConfig      `yaml:"server,omitempty" toml:"server,omitempty" json:"server" jsonschema:"description=Daemon listener settings"`

	// Extensions captures all other top-level keys, such as logging.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-" jsonschema:"-"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for configuration
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Placement.FitPolicy == "" {
		c.Placement.FitPolicy = DefaultFitPolicy
	}
	if c.Placement.Mismatch == "" {
		c.Placement.Mismatch = DefaultMismatchMode
	}
	if c.Placement.Label == "" {
		c.Placement.Label = DefaultBatchLabel
	}
	if c.Collections.MaxOpen == 0 {
		c.Collections.MaxOpen = DefaultMaxOpen
	}
	if len(c.Collections.Extensions) == 0 {
		c.Collections.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if c.Collections.ThumbnailSize == 0 {
		c.Collections.ThumbnailSize = DefaultThumbnailSize
	}
	if c.Reconcile.DocumentInterval == "" {
		c.Reconcile.DocumentInterval = DefaultDocumentInterval
	}
	if c.Reconcile.FolderInterval == "" {
		c.Reconcile.FolderInterval = DefaultFolderInterval
	}
	if c.Reconcile.Debounce == "" {
		c.Reconcile.Debounce = DefaultDebounce
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
}

// UnmarshalExtension decodes a specific extension's configuration from the
// loaded framefill.yml into the provided target struct. The target must be a
// pointer. A missing key leaves target zero-valued.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// ConfigSource identifies the origin of a configuration layer.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceGlobal   ConfigSource = "global"
	SourceProject  ConfigSource = "project"
	SourceOverride ConfigSource = "override"
)

// OverrideSource holds a raw configuration from an override file and its path.
type OverrideSource struct {
	Path   string  `json:"path"`
	Config *Config `json:"config"`
}

// LayeredConfig holds the raw configuration from each source file,
// plus the merged result, for `framefill config`.
type LayeredConfig struct {
	Default   *Config                 `json:"default"`
	Global    *Config                 `json:"global,omitempty"`
	Project   *Config                 `json:"project,omitempty"`
	Overrides []OverrideSource        `json:"overrides,omitempty"`
	Final     *Config                 `json:"final"`
	FilePaths map[ConfigSource]string `json:"file_paths"`
}

func parseDurationOr(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
