package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odatakit/odatakit/internal/cli/ui"
	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/errors"
	"github.com/odatakit/odatakit/internal/metadata"
)

// NewEntitySetsCommand creates the entitysets command
func NewEntitySetsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "entitysets <metadata.xml>",
		Short: "List the entity sets of a metadata document",
		Long: `List every entity set declared by the entity containers of a
metadata document, with the entity type each one exposes.

Examples:
  odatakit entitysets metadata/northwind.xml
  odatakit entitysets metadata/northwind.xml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := loadMetadataFile(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return runEntitySets(cmd.OutOrStdout(), opts, entry.Metadata)
		},
	}
}

// entitySetInfo is the JSON form of an entity set
type entitySetInfo struct {
	Name       string `json:"name"`
	EntityType string `json:"entity_type"`
}

func runEntitySets(w io.Writer, opts *Options, md *edm.Metadata) error {
	sets := md.EntityContainerItems()

	if opts.JSON() {
		out := make([]entitySetInfo, 0, len(sets))
		for _, set := range sets {
			out = append(out, entitySetInfo{Name: set.Name, EntityType: set.EntityType})
		}
		return writeJSON(w, out)
	}

	if len(sets) == 0 {
		fmt.Fprintln(w, ui.Warning("No entity sets found.", opts.NoColor))
		return nil
	}

	table := ui.NewTable(w, []string{"ENTITY SET", "ENTITY TYPE"}, opts.NoColor)
	for _, set := range sets {
		table.AddRow(set.Name, set.EntityType)
	}
	table.Render()
	return nil
}

// NewPropertiesCommand creates the properties command
func NewPropertiesCommand(opts *Options) *cobra.Command {
	var entitySet, annotation string

	cmd := &cobra.Command{
		Use:   "properties <metadata.xml>",
		Short: "List the properties of a metadata document",
		Long: `List structural properties. With --entity-set only the properties of
that entity set's entity type are shown. With --annotation the properties
carrying that annotation term are listed by annotation value.

Examples:
  odatakit properties metadata/northwind.xml
  odatakit properties metadata/northwind.xml --entity-set Customers
  odatakit properties metadata/workitems.xml --annotation Ref.ReferenceName`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := loadMetadataFile(cmd, opts, args[0])
			if err != nil {
				return err
			}

			if annotation != "" {
				return renderAnnotatedProperties(cmd.OutOrStdout(), opts, entry.Metadata.PropertiesByAnnotation(annotation))
			}

			props := entry.Metadata.Properties()
			if entitySet != "" {
				set, err := findEntitySet(cmd, opts, args[0], entry.Metadata, entitySet)
				if err != nil {
					return err
				}
				props = entry.Metadata.PropertiesOf(set.EntityType)
				if len(props) == 0 {
					props = entry.Metadata.PropertiesOf(edm.BareTypeName(set.EntityType))
				}
			}
			return renderProperties(cmd.OutOrStdout(), opts, props)
		},
	}

	cmd.Flags().StringVar(&entitySet, "entity-set", "", "Only show properties of this entity set")
	cmd.Flags().StringVar(&annotation, "annotation", "", "List properties by the value of this annotation term")
	cmd.MarkFlagsMutuallyExclusive("entity-set", "annotation")
	return cmd
}

// propertyInfo is the JSON form of a property
type propertyInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable string `json:"nullable,omitempty"`
}

func renderProperties(w io.Writer, opts *Options, props []edm.Property) error {
	if opts.JSON() {
		out := make([]propertyInfo, 0, len(props))
		for _, p := range props {
			out = append(out, propertyInfo{Name: p.Name, Type: p.Type, Nullable: p.NullableText})
		}
		return writeJSON(w, out)
	}

	if len(props) == 0 {
		fmt.Fprintln(w, ui.Warning("No properties found.", opts.NoColor))
		return nil
	}

	table := ui.NewTable(w, []string{"PROPERTY", "TYPE", "NULLABLE"}, opts.NoColor)
	for _, p := range props {
		table.AddRow(p.Name, p.Type, p.NullableText)
	}
	table.Render()
	return nil
}

// annotatedProperty is the JSON form of a property found by annotation value
type annotatedProperty struct {
	Value string `json:"value"`
	propertyInfo
}

func renderAnnotatedProperties(w io.Writer, opts *Options, byValue map[string]edm.Property) error {
	values := make([]string, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	sort.Strings(values)

	if opts.JSON() {
		out := make([]annotatedProperty, 0, len(values))
		for _, v := range values {
			p := byValue[v]
			out = append(out, annotatedProperty{
				Value:        v,
				propertyInfo: propertyInfo{Name: p.Name, Type: p.Type, Nullable: p.NullableText},
			})
		}
		return writeJSON(w, out)
	}

	if len(values) == 0 {
		fmt.Fprintln(w, ui.Warning("No annotated properties found.", opts.NoColor))
		return nil
	}

	table := ui.NewTable(w, []string{"VALUE", "PROPERTY", "TYPE"}, opts.NoColor)
	for _, v := range values {
		p := byValue[v]
		table.AddRow(v, p.Name, p.Type)
	}
	table.Render()
	return nil
}

// NewLocateCommand creates the locate command
func NewLocateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <metadata.xml> <entity-set>",
		Short: "Show where an entity set and its entity type are declared",
		Long: `Print the file positions of an entity set declaration and of the
entity type it exposes. Table output is 1-based; JSON output is 0-based,
the way editors address positions.

Examples:
  odatakit locate metadata/northwind.xml Customers`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, name := args[0], args[1]
			entry, err := loadMetadataFile(cmd, opts, path)
			if err != nil {
				return err
			}
			set, err := findEntitySet(cmd, opts, path, entry.Metadata, name)
			if err != nil {
				return err
			}
			return renderLocations(cmd.OutOrStdout(), opts, path, locateSet(entry, set))
		},
	}
}

// declaration is one located element of a metadata file
type declaration struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func locateSet(entry *metadata.Entry, set edm.EntitySet) []declaration {
	var out []declaration
	for _, loc := range metadata.LocateEntitySet(entry.Lines, set.Name) {
		out = append(out, declaration{Kind: "EntitySet", Name: set.Name, File: entry.Path, Line: loc.Line, Column: loc.Column})
	}
	typeName := edm.BareTypeName(set.EntityType)
	for _, loc := range metadata.LocateEntityType(entry.Lines, typeName) {
		out = append(out, declaration{Kind: "EntityType", Name: typeName, File: entry.Path, Line: loc.Line, Column: loc.Column})
	}
	return out
}

func renderLocations(w io.Writer, opts *Options, path string, decls []declaration) error {
	if opts.JSON() {
		if decls == nil {
			decls = []declaration{}
		}
		return writeJSON(w, decls)
	}

	if len(decls) == 0 {
		fmt.Fprintln(w, ui.Warning("No declarations found in "+path+".", opts.NoColor))
		return nil
	}

	table := ui.NewTable(w, []string{"KIND", "NAME", "LOCATION"}, opts.NoColor)
	for _, d := range decls {
		table.AddRow(d.Kind, d.Name, d.File+":"+strconv.Itoa(d.Line+1)+":"+strconv.Itoa(d.Column+1))
	}
	table.Render()
	return nil
}

// loadMetadataFile reads and parses a metadata document without a cache.
// Failures are rendered on the command's error stream.
func loadMetadataFile(cmd *cobra.Command, opts *Options, path string) (*metadata.Entry, error) {
	entry, err := metadata.ReadEntry(metadata.OSFileSystem{}, path)
	if err == nil {
		return entry, nil
	}

	e, ok := errors.As(err)
	if !ok {
		return nil, err
	}
	w := cmd.ErrOrStderr()
	if opts.JSON() {
		_ = writeJSON(w, map[string]interface{}{"file": path, "errors": []*errors.Error{e}})
	} else {
		source := ""
		if errors.IsXMLParse(e) {
			source, _ = readSource(path)
		}
		fmt.Fprint(w, e.FormatForTerminal(source))
	}
	return nil, fmt.Errorf("failed to load metadata %s", path)
}

// findEntitySet returns the first entity set called name, or reports the
// closest names when there is none
func findEntitySet(cmd *cobra.Command, opts *Options, path string, md *edm.Metadata, name string) (edm.EntitySet, error) {
	sets := md.EntitySetsNamed(name)
	if len(sets) > 0 {
		return sets[0], nil
	}

	suggestions := ui.FindSimilar(name, md.EntitySetNames())
	fmt.Fprint(cmd.ErrOrStderr(), ui.EntitySetNotFoundError(name, path, suggestions, opts.NoColor))
	return edm.EntitySet{}, fmt.Errorf("entity set %q not found in %s", name, path)
}
