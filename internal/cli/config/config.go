package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/format"
	"github.com/odatakit/odatakit/internal/metadata"
)

// FileNames are the config file names searched for, in order
var FileNames = []string{"odatakit.yaml", "odatakit.yml"}

// EnvPrefix prefixes environment overrides, e.g. ODATAKIT_LOG_LEVEL
const EnvPrefix = "ODATAKIT"

// Config represents the odatakit configuration
type Config struct {
	Metadata   MetadataConfig   `mapstructure:"metadata" yaml:"metadata" json:"metadata"`
	Workspace  WorkspaceConfig  `mapstructure:"workspace" yaml:"workspace" json:"workspace"`
	Diagnostic DiagnosticConfig `mapstructure:"diagnostic" yaml:"diagnostic" json:"diagnostic"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
	Format     format.Config    `mapstructure:"format" yaml:"format" json:"format"`

	// File is the config file that was read, empty when running on defaults
	File string `mapstructure:"-" yaml:"-" json:"-"`
}

// MetadataConfig maps service roots to local metadata documents
type MetadataConfig struct {
	Map   []metadata.MapEntry `mapstructure:"map" yaml:"map" json:"map"`
	Watch bool                `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// WorkspaceConfig lists the folders relative metadata paths resolve against
type WorkspaceConfig struct {
	Roots []string `mapstructure:"roots" yaml:"roots" json:"roots"`
}

// DiagnosticConfig toggles syntax diagnostics in the language server
type DiagnosticConfig struct {
	Enable bool `mapstructure:"enable" yaml:"enable" json:"enable"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Load reads the configuration. An empty path searches the current directory
// and its parents for odatakit.yaml; no file at all yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("metadata.watch", false)
	v.SetDefault("workspace.roots", []string{})
	v.SetDefault("diagnostic.enable", true)
	v.SetDefault("log.level", "info")
	defaults := format.DefaultConfig()
	v.SetDefault("format.indent_size", defaults.IndentSize)
	v.SetDefault("format.wrap_width", defaults.WrapWidth)

	if path == "" {
		found, err := FindConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}
	v.SetConfigType("yaml")

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.NewIOError(path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var pathErr *os.PathError
			if stderrors.As(err, &pathErr) {
				return nil, errors.NewIOError(path, err)
			}
			return nil, errors.NewConfigError(errors.ErrInvalidConfig,
				fmt.Sprintf("failed to read config file: %v", err)).WithPath(path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError(errors.ErrInvalidConfig,
			fmt.Sprintf("failed to unmarshal config: %v", err)).WithPath(path)
	}
	cfg.File = path

	if err := validateConfig(&cfg); err != nil {
		if path != "" {
			return nil, err.WithPath(path)
		}
		return nil, err
	}

	return &cfg, nil
}

// FindConfigFile looks for a config file in the current directory and its
// parents. It returns "" when there is none.
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// WorkspaceRoots returns the configured roots, or the directory of the config
// file when none are configured
func (c *Config) WorkspaceRoots() []string {
	if len(c.Workspace.Roots) > 0 {
		return append([]string(nil), c.Workspace.Roots...)
	}
	if c.File != "" {
		return []string{filepath.Dir(c.File)}
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) *errors.Error {
	for i, entry := range cfg.Metadata.Map {
		if strings.TrimSpace(entry.URL) == "" {
			return errors.NewConfigError(errors.ErrInvalidMapEntry,
				fmt.Sprintf("metadata.map[%d]: url is required", i))
		}
		if strings.TrimSpace(entry.Path) == "" {
			return errors.NewConfigError(errors.ErrInvalidMapEntry,
				fmt.Sprintf("metadata.map[%d]: path is required for %s", i, entry.URL))
		}
	}

	level := strings.ToLower(cfg.Log.Level)
	valid := false
	for _, l := range logLevels {
		if level == l {
			valid = true
			break
		}
	}
	if !valid {
		return errors.NewConfigError(errors.ErrInvalidConfig,
			fmt.Sprintf("log.level must be one of %s, got: %s", strings.Join(logLevels, ", "), cfg.Log.Level))
	}
	cfg.Log.Level = level

	if cfg.Format.IndentSize < 0 || cfg.Format.WrapWidth < 0 {
		return errors.NewConfigError(errors.ErrInvalidConfig, "format.indent_size and format.wrap_width must not be negative")
	}

	return nil
}
