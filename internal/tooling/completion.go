package tooling

import (
	"strings"

	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/query/parser"
)

// canonicalFunctions are offered wherever an expression may appear
var canonicalFunctions = []string{
	"filter", "groupby", "aggregate",
	"contains", "startswith", "endswith", "length", "indexof", "substring",
	"tolower", "toupper", "trim", "concat",
	"year", "month", "day", "hour", "minute", "second", "date", "time", "now",
	"round", "floor", "ceiling",
	"cast", "isof", "any", "all",
	"datetimeoffset", "datetime",
}

// GetCompletions returns completion items for a position in a document
func (a *API) GetCompletions(uri string, pos Position) ([]CompletionItem, error) {
	doc, exists := a.GetDocument(uri)
	if !exists {
		return nil, documentNotFound(uri)
	}

	line, ok := doc.lineAt(pos.Line)
	if !ok {
		return []CompletionItem{}, nil
	}
	char := min(max(pos.Character, 0), len(line))

	switch {
	case matchesAt(line, char, systemOptionWord):
		return systemOptionCompletions(), nil
	case matchesAt(line, char, inlineCountValue):
		return enumCompletions("$inlinecount"), nil
	case matchesAt(line, char, formatValue):
		return enumCompletions("$format"), nil
	}

	items := []CompletionItem{}
	if !matchesAt(line, char, noMetadataValue) {
		items = append(items, a.metadataCompletions(doc, line, char)...)
	}
	if !matchesAt(line, char, selectValue) {
		items = append(items, functionCompletions()...)
	}
	return items, nil
}

func systemOptionCompletions() []CompletionItem {
	items := make([]CompletionItem, 0, len(parser.SystemOptions))
	for _, opt := range parser.SystemOptions {
		items = append(items, CompletionItem{
			Label:         opt.Name,
			Kind:          CompletionKindKeyword,
			Documentation: opt.Documentation,
			InsertText:    strings.TrimPrefix(opt.Name, "$"),
		})
	}
	return items
}

func enumCompletions(option string) []CompletionItem {
	opt, ok := parser.LookupSystemOption(option)
	if !ok {
		return []CompletionItem{}
	}
	items := make([]CompletionItem, 0, len(opt.Values))
	for _, v := range opt.Values {
		items = append(items, CompletionItem{
			Label:  v,
			Kind:   CompletionKindEnumMember,
			Detail: opt.Name,
		})
	}
	return items
}

func functionCompletions() []CompletionItem {
	items := make([]CompletionItem, 0, len(canonicalFunctions))
	for _, fn := range canonicalFunctions {
		items = append(items, CompletionItem{Label: fn, Kind: CompletionKindFunction})
	}
	return items
}

// metadataCompletions offers entity sets after a slash, and otherwise the
// properties of every entity set mentioned in the document
func (a *API) metadataCompletions(doc *Document, line string, char int) []CompletionItem {
	entry, ok := a.entry(doc)
	if !ok {
		return nil
	}
	md := entry.Metadata

	var items []CompletionItem
	if matchesAt(line, char, entitySetWord) {
		for _, name := range md.EntitySetNames() {
			items = append(items, CompletionItem{Label: name, Kind: CompletionKindClass, Detail: "EntitySet"})
		}
		return items
	}

	seen := make(map[string]bool)
	for _, typeName := range mentionedEntityTypes(md, doc.Content) {
		for _, prop := range md.PropertiesOf(typeName) {
			if seen[prop.Name] {
				continue
			}
			seen[prop.Name] = true
			items = append(items, CompletionItem{
				Label:  prop.Name,
				Kind:   CompletionKindProperty,
				Detail: prop.Type,
			})
		}
	}
	return items
}

// mentionedEntityTypes returns the bare entity type names of the entity sets
// whose name occurs anywhere in text
func mentionedEntityTypes(md *edm.Metadata, text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, set := range md.EntityContainerItems() {
		if !strings.Contains(text, set.Name) {
			continue
		}
		name := edm.BareTypeName(set.EntityType)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
