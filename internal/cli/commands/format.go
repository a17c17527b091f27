package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/format"
)

// QueryFileExt is the extension of query documents found by directory walks
const QueryFileExt = ".odata"

// NewFormatCommand creates the format command
func NewFormatCommand(opts *Options) *cobra.Command {
	var write, check bool

	cmd := &cobra.Command{
		Use:   "format [files...]",
		Short: "Format query documents",
		Long: `Format OData query documents: the service root on the first line and
one query option per line. Indentation and wrapping come from the format
section of odatakit.yaml.

By default, shows a diff preview of what would change without modifying files.
Use --write to apply formatting changes, or --check to verify formatting.

Examples:
  odatakit format                    # Show diff for all .odata files
  odatakit format --write            # Format and save all files
  odatakit format --check            # Exit with error if not formatted
  odatakit format orders.odata       # Format a specific file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}

			files, err := findQueryFiles(args)
			if err != nil {
				return fmt.Errorf("failed to find files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no %s files found", QueryFileExt)
			}

			return runFormat(cmd, &cfg.Format, files, write, check)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write formatted output to files")
	cmd.Flags().BoolVarP(&check, "check", "c", false, "Check if files are formatted (exit 1 if not)")

	return cmd
}

func runFormat(cmd *cobra.Command, cfg *format.Config, files []string, write, check bool) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	titleColor := color.New(color.FgCyan, color.Bold)
	successColor := color.New(color.FgGreen)
	errorColor := color.New(color.FgRed, color.Bold)

	hasChanges := false
	errorCount := 0

	for _, file := range files {
		original, err := os.ReadFile(file)
		if err != nil {
			errorColor.Fprintf(errOut, "Error reading %s: %v\n", file, err)
			errorCount++
			continue
		}

		formatted, err := format.New(cfg).Format(string(original))
		if err != nil {
			if e, ok := errors.As(err); ok {
				fmt.Fprintln(errOut, e.WithPath(file).FormatForTerminal(string(original)))
			} else {
				errorColor.Fprintf(errOut, "Error formatting %s: %v\n", file, err)
			}
			errorCount++
			continue
		}

		diff := format.Diff(string(original), formatted)
		if !diff.Changed {
			if !check {
				successColor.Fprintf(out, "✓ %s (no changes)\n", file)
			}
			continue
		}

		hasChanges = true

		switch {
		case check:
			errorColor.Fprintf(errOut, "✗ %s needs formatting\n", file)
		case write:
			if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
				errorColor.Fprintf(errOut, "Error writing %s: %v\n", file, err)
				errorCount++
				continue
			}
			successColor.Fprintf(out, "✓ %s formatted\n", file)
		default:
			titleColor.Fprintf(out, "\n=== %s ===\n", file)
			fmt.Fprintln(out, diff.String())
			fmt.Fprintf(out, "\n%s\n", diff.Stats())
		}
	}

	if !write && !check && hasChanges {
		fmt.Fprintln(out)
		titleColor.Fprintln(out, "Run 'odatakit format --write' to apply changes")
	}

	if check && hasChanges {
		return fmt.Errorf("files need formatting")
	}
	if errorCount > 0 {
		return fmt.Errorf("%d files had errors", errorCount)
	}
	return nil
}

// findQueryFiles expands the arguments into query documents. Directories are
// walked for .odata files, skipping hidden directories; other arguments are
// glob patterns. No arguments means the current directory.
func findQueryFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}

	var files []string
	for _, pattern := range patterns {
		info, err := os.Stat(pattern)
		if err == nil && info.IsDir() {
			err := filepath.WalkDir(pattern, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() && path != pattern && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				if !d.IsDir() && strings.HasSuffix(path, QueryFileExt) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			// let the read report a missing file
			matches = []string{pattern}
		}
		files = append(files, matches...)
	}

	// Remove duplicates
	seen := make(map[string]bool)
	unique := []string{}
	for _, file := range files {
		if !seen[file] {
			seen[file] = true
			unique = append(unique, file)
		}
	}
	return unique, nil
}
