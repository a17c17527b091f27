package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odatakit/odatakit/internal/cli/ui"
	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/query/ast"
	"github.com/odatakit/odatakit/internal/query/parser"
)

// NewParseCommand creates the parse command
func NewParseCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a query document and show its options",
		Long: `Parse a multi-line OData query document and print the service root
and every query option it contains.

Examples:
  odatakit parse orders.odata
  odatakit parse orders.odata --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := parseQueryFile(cmd, opts, args[0])
			if err != nil {
				return err
			}
			if opts.JSON() {
				return writeJSON(cmd.OutOrStdout(), newQuerySummary(args[0], tree))
			}
			renderTree(cmd.OutOrStdout(), args[0], tree, opts.NoColor)
			return nil
		},
	}
}

// NewCombineCommand creates the combine command
func NewCombineCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "combine <file>",
		Short: "Print a query document as a single-line URL",
		Long: `Join a multi-line query document into one request URL. Comment
lines are dropped and wrapped option values are joined with a space.

Examples:
  odatakit combine orders.odata`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := parseQueryFile(cmd, opts, args[0])
			if err != nil {
				return err
			}
			if opts.JSON() {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"query": tree.Combined()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree.Combined())
			return nil
		},
	}
}

// queryOption is the JSON form of a query option
type queryOption struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	System bool   `json:"system"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// querySummary is the JSON form of a parsed query document
type querySummary struct {
	File        string        `json:"file"`
	ServiceRoot string        `json:"service_root"`
	HasQuery    bool          `json:"has_query"`
	Options     []queryOption `json:"options"`
	Comments    []string      `json:"comments"`
}

func newQuerySummary(file string, tree *ast.SyntaxTree) querySummary {
	summary := querySummary{
		File:        file,
		ServiceRoot: tree.Root.ServiceRoot,
		HasQuery:    tree.Root.HasQuery,
		Options:     make([]queryOption, 0, len(tree.Root.Options)),
		Comments:    make([]string, 0, len(tree.Root.Comments)),
	}
	for _, opt := range tree.Root.Options {
		summary.Options = append(summary.Options, queryOption{
			Name:   opt.Name,
			Value:  opt.Value,
			System: opt.System,
			Line:   opt.Loc.Start.Line,
			Column: opt.Loc.Start.Column,
		})
	}
	for _, c := range tree.Root.Comments {
		summary.Comments = append(summary.Comments, c.Text)
	}
	return summary
}

func renderTree(w io.Writer, file string, tree *ast.SyntaxTree, noColor bool) {
	ui.Header(w, file, noColor)

	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Service root", tree.Root.ServiceRoot)
	kv.AddRow("Options", strconv.Itoa(len(tree.Root.Options)))
	kv.AddRow("Comments", strconv.Itoa(len(tree.Root.Comments)))
	kv.Render()

	if len(tree.Root.Options) == 0 {
		return
	}

	fmt.Fprintln(w)
	table := ui.NewTable(w, []string{"LINE", "KIND", "NAME", "VALUE"}, noColor)
	for _, opt := range tree.Root.Options {
		kind := "custom"
		if opt.System {
			kind = "system"
		}
		table.AddRow(strconv.Itoa(opt.Loc.Start.Line), kind, opt.Name, opt.Value)
	}
	table.Render()
}

// parseQueryFile reads and parses a query document. Syntax errors are
// reported on the command's error stream and summarized in the returned error.
func parseQueryFile(cmd *cobra.Command, opts *Options, path string) (*ast.SyntaxTree, error) {
	source, err := readSource(path)
	if err != nil {
		return nil, err
	}

	tree, errs := parser.New(source).Parse()
	if len(errs) == 0 {
		return tree, nil
	}

	reportSyntaxErrors(cmd.ErrOrStderr(), opts, path, source, errs)
	return nil, fmt.Errorf("%s: %d syntax error(s)", path, len(errs))
}

func reportSyntaxErrors(w io.Writer, opts *Options, path, source string, errs []*errors.Error) {
	located := make([]*errors.Error, 0, len(errs))
	for _, e := range errs {
		located = append(located, e.WithPath(path))
	}

	if opts.JSON() {
		_ = writeJSON(w, map[string]interface{}{"file": path, "errors": located})
		return
	}
	for _, e := range located {
		fmt.Fprintln(w, e.FormatForTerminal(source))
	}
}
