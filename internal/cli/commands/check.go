package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odatakit/odatakit/internal/cli/ui"
	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/metadata"
	"github.com/odatakit/odatakit/internal/query/parser"
)

// NewCheckCommand creates the check command
func NewCheckCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Check query documents against their metadata",
		Long: `Parse each query document and resolve its service root through the
metadata map of odatakit.yaml. Syntax errors and unreadable metadata fail
the check; unmapped service roots and unknown entity sets are warnings.

Examples:
  odatakit check queries/*.odata
  odatakit check orders.odata --config ./odatakit.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				if !opts.JSON() {
					fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), opts.NoColor))
				}
				return err
			}

			logger, err := newLogger(opts, cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			svc := metadata.NewService(&metadata.Config{
				Map:            cfg.Metadata.Map,
				WorkspaceRoots: cfg.WorkspaceRoots,
				Logger:         logger,
			})

			results := make([]*checkResult, 0, len(args))
			failed := 0
			for _, file := range args {
				result := checkFile(svc, file)
				if !result.OK {
					failed++
				}
				results = append(results, result)
			}

			if opts.JSON() {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else {
				for _, result := range results {
					renderCheckResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result, opts.NoColor)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
			}
			return nil
		},
	}
}

// checkResult is the outcome of checking one query document
type checkResult struct {
	File        string          `json:"file"`
	OK          bool            `json:"ok"`
	ServiceRoot string          `json:"service_root,omitempty"`
	Metadata    string          `json:"metadata,omitempty"`
	EntitySet   string          `json:"entity_set,omitempty"`
	Errors      []*errors.Error `json:"errors,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Notes       []string        `json:"notes,omitempty"`

	source string
}

func checkFile(svc *metadata.Service, file string) *checkResult {
	result := &checkResult{File: file}

	source, err := readSource(file)
	if err != nil {
		e, _ := errors.As(err)
		result.Errors = append(result.Errors, e)
		return result
	}
	result.source = source

	tree, errs := parser.New(source).Parse()
	for _, e := range errs {
		result.Errors = append(result.Errors, e.WithPath(file))
	}
	if len(errs) > 0 {
		return result
	}

	root := tree.Root.ServiceRoot
	result.ServiceRoot = root

	mapEntry, ok := svc.GetMapEntry(root)
	if !ok {
		result.OK = true
		result.Notes = append(result.Notes, fmt.Sprintf("no metadata mapped for %s", root))
		return result
	}

	entry, err := svc.Entry(root)
	if err != nil {
		if e, ok := errors.As(err); ok {
			result.Errors = append(result.Errors, e)
		} else {
			result.Errors = append(result.Errors, errors.NewIOError(svc.ResolvePath(mapEntry), err))
		}
		return result
	}
	result.OK = true
	result.Metadata = entry.Path

	name := resourceSegment(root, mapEntry.URL)
	if name == "" {
		return result
	}
	if len(entry.Metadata.EntitySetsNamed(name)) == 0 {
		msg := fmt.Sprintf("unknown entity set '%s'", name)
		if similar := ui.FindSimilar(name, entry.Metadata.EntitySetNames()); len(similar) > 0 {
			msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(similar, ", "))
		}
		result.Warnings = append(result.Warnings, msg)
		return result
	}
	result.EntitySet = name
	return result
}

// resourceSegment returns the first path segment after the mapped URL with
// any key predicate removed. Segments such as $metadata yield "".
func resourceSegment(serviceRoot, mapURL string) string {
	if len(serviceRoot) < len(mapURL) {
		return ""
	}
	rest := strings.Trim(serviceRoot[len(mapURL):], "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '('); i >= 0 {
		rest = rest[:i]
	}
	if strings.HasPrefix(rest, "$") {
		return ""
	}
	return rest
}

func renderCheckResult(out, errOut io.Writer, result *checkResult, noColor bool) {
	for _, e := range result.Errors {
		// only syntax errors point into the query document
		source := ""
		if errors.IsSyntax(e) {
			source = result.source
		}
		fmt.Fprintln(errOut, e.FormatForTerminal(source))
	}
	for _, w := range result.Warnings {
		fmt.Fprint(errOut, ui.Warning(result.File+": "+w, noColor))
	}
	for _, n := range result.Notes {
		ui.WriteError(errOut, ui.ErrorOptions{
			Level:        ui.ErrorLevelInfo,
			Problem:      result.File + ": " + n,
			HelpCommands: []string{"Map it under metadata.map in odatakit.yaml", "View config: odatakit config"},
			NoColor:      noColor,
		})
	}
	if !result.OK {
		return
	}

	detail := "no metadata"
	switch {
	case result.EntitySet != "":
		detail = result.EntitySet + " in " + result.Metadata
	case result.Metadata != "":
		detail = result.Metadata
	}
	ui.WriteSuccess(out, fmt.Sprintf("%s (%s)", result.File, detail), noColor)
}
