package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/paths"
	"github.com/grovetools/framefill/schema"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// configNames are searched in order in every directory.
var configNames = []string{
	"framefill.yml",
	"framefill.yaml",
	".framefill.yml",
	".framefill.yaml",
	"framefill.toml",
}

// overrideNames are merged over the project file when present next to it.
var overrideNames = []string{
	"framefill.override.yml",
	"framefill.override.yaml",
	".framefill.override.yml",
	".framefill.override.yaml",
}

// topLevelKeys are the keys owned by Config; everything else is an extension.
var topLevelKeys = map[string]bool{
	"version":     true,
	"placement":   true,
	"collections": true,
	"reconcile":   true,
	"server":      true,
}

// Load reads, validates and applies defaults to a single configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := decode(data, path)
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadDefault loads the configuration for the current directory with
// hierarchical merging:
// 1. Global config (~/.config/framefill/framefill.yml) - base layer
// 2. Project config (framefill.yml) - overrides global
// 3. Local override (framefill.override.yml) - overrides all
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the given directory
func LoadFrom(startDir string) (*Config, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return LoadFromWithLogger(startDir, logger)
}

// LoadFromWithLogger loads configuration with hierarchical merging and logging.
// Either a global or a project file must exist.
func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	layers, err := loadLayers(startDir, logger)
	if err != nil {
		return nil, err
	}
	if layers.Global == nil && layers.Project == nil {
		return nil, errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
	}

	final, err := finalize(layers.merged())
	if err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded and validated successfully")
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if configData, err := yaml.Marshal(final); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(configData))
		}
	}
	return final, nil
}

// LoadOrDefault behaves like LoadFrom but falls back to Default when no
// configuration file exists.
func LoadOrDefault(startDir string) (*Config, error) {
	cfg, err := LoadFrom(startDir)
	if errors.Is(err, errors.ErrCodeConfigNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFromBytes parses YAML configuration from a byte array.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg, err := decode(data, "framefill.yml")
	if err != nil {
		return nil, err
	}
	return finalize(cfg)
}

// LoadLayered finds and loads all configuration layers without merging
// them, for analysis purposes. It also computes the final merged config.
func LoadLayered(startDir string) (*LayeredConfig, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	layers, err := loadLayers(startDir, logger)
	if err != nil {
		return nil, err
	}
	final, err := finalize(layers.merged())
	if err != nil {
		return nil, err
	}
	layers.Default = Default()
	layers.Final = final
	return layers, nil
}

// FindConfigFile searches from startDir up to the filesystem root for a
// project configuration file.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// GlobalConfigPath returns the path of the global configuration file.
func GlobalConfigPath() string {
	dir := paths.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "framefill.yml")
}

func loadLayers(startDir string, logger *logrus.Logger) (*LayeredConfig, error) {
	layers := &LayeredConfig{FilePaths: make(map[ConfigSource]string)}

	if globalPath := GlobalConfigPath(); globalPath != "" {
		if data, err := os.ReadFile(globalPath); err == nil {
			logger.WithField("path", globalPath).Debug("Loading global configuration")
			if cfg, err := decode(data, globalPath); err == nil {
				layers.Global = cfg
				layers.FilePaths[SourceGlobal] = globalPath
			} else {
				logger.WithError(err).Warn("Failed to parse global configuration, continuing without it")
			}
		}
	}

	projectPath, err := FindConfigFile(startDir)
	if err != nil {
		return layers, nil
	}
	// The global file may also be the nearest file found by the upward search.
	if projectPath == layers.FilePaths[SourceGlobal] {
		return layers, nil
	}

	logger.WithField("path", projectPath).Debug("Loading project configuration")
	data, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read project config").
			WithDetail("path", projectPath)
	}
	project, err := decode(data, projectPath)
	if err != nil {
		return nil, err
	}
	layers.Project = project
	layers.FilePaths[SourceProject] = projectPath

	projectDir := filepath.Dir(projectPath)
	for _, name := range overrideNames {
		overridePath := filepath.Join(projectDir, name)
		data, err := os.ReadFile(overridePath)
		if err != nil {
			continue
		}
		logger.WithField("path", overridePath).Debug("Loading local override configuration")
		override, err := decode(data, overridePath)
		if err != nil {
			logger.WithError(err).Warn("Failed to parse override file, skipping")
			continue
		}
		layers.Overrides = append(layers.Overrides, OverrideSource{Path: overridePath, Config: override})
		if _, seen := layers.FilePaths[SourceOverride]; !seen {
			layers.FilePaths[SourceOverride] = overridePath
		}
	}
	return layers, nil
}

// merged folds the layers global → project → overrides.
func (l *LayeredConfig) merged() *Config {
	result := &Config{}
	if l.Global != nil {
		result = mergeConfigs(result, l.Global)
	}
	if l.Project != nil {
		result = mergeConfigs(result, l.Project)
	}
	for _, o := range l.Overrides {
		result = mergeConfigs(result, o.Config)
	}
	return result
}

// decode parses raw file content. TOML is chosen by the .toml extension;
// everything else is YAML. ${VAR} references are expanded first.
func decode(data []byte, path string) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration").
				WithDetail("path", path)
		}
		var raw map[string]interface{}
		if err := toml.Unmarshal(expanded, &raw); err == nil {
			for key, value := range raw {
				if topLevelKeys[key] {
					continue
				}
				if cfg.Extensions == nil {
					cfg.Extensions = make(map[string]interface{})
				}
				cfg.Extensions[key] = value
			}
		}
		return &cfg, nil
	}

	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration").
			WithDetail("path", path)
	}
	return &cfg, nil
}

// finalize validates against the schema, applies defaults and runs
// semantic validation.
func finalize(cfg *Config) (*Config, error) {
	if err := schema.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
// ${VAR:-default} supplies a fallback for unset variables.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
