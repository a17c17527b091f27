// Package commands implements the odatakit command line.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/odatakit/odatakit/internal/cli/config"
	"github.com/odatakit/odatakit/internal/errors"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// Options holds the global flags shared by every command
type Options struct {
	ConfigFile string
	Verbose    bool
	NoColor    bool
	Format     string
}

// JSON reports whether machine-readable output was requested
func (o *Options) JSON() bool {
	return o.Format == formatJSON
}

// LoadConfig reads the configuration named by --config, or searches for one
func (o *Options) LoadConfig() (*config.Config, error) {
	return config.Load(o.ConfigFile)
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "odatakit",
		Short: "OData query document tooling",
		Long: color.CyanString(`odatakit - OData query document tooling

odatakit parses multi-line OData query documents and resolves their
service roots to local EDMX metadata files.

Features:
  • Syntax checking with line and column diagnostics
  • Entity set and property listings from metadata documents
  • Definition lookup in metadata files
  • A language server for editor integration`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.NoColor {
				color.NoColor = true
			}
			switch opts.Format {
			case formatTable, formatJSON:
				return nil
			default:
				return fmt.Errorf("unsupported format: %s (supported: json, table)", opts.Format)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "Config file (default: odatakit.yaml in the current directory or a parent)")
	flags.BoolVar(&opts.Verbose, "verbose", false, "Enable debug logging")
	flags.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	flags.StringVar(&opts.Format, "format", formatTable, "Output format: json or table")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewParseCommand(opts))
	rootCmd.AddCommand(NewCombineCommand(opts))
	rootCmd.AddCommand(NewFormatCommand(opts))
	rootCmd.AddCommand(NewCheckCommand(opts))
	rootCmd.AddCommand(NewEntitySetsCommand(opts))
	rootCmd.AddCommand(NewPropertiesCommand(opts))
	rootCmd.AddCommand(NewLocateCommand(opts))
	rootCmd.AddCommand(NewConfigCommand(opts))
	rootCmd.AddCommand(NewLSPCommand(opts))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the odatakit version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			w := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(w, "odatakit version: ")
			valueColor.Fprintln(w, Version)

			titleColor.Fprint(w, "Git commit: ")
			valueColor.Fprintln(w, GitCommit)

			titleColor.Fprint(w, "Build date: ")
			valueColor.Fprintln(w, BuildDate)

			titleColor.Fprint(w, "Go version: ")
			valueColor.Fprintln(w, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger builds the logger for a command. Logs always go to stderr so
// they never mix with command output or the language server protocol.
func newLogger(opts *Options, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// readSource reads a query document; failures are errors.KindIO
func readSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(path, err)
	}
	return string(data), nil
}
