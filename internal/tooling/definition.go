package tooling

import (
	"path/filepath"
	"unicode/utf16"

	"go.lsp.dev/uri"

	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/metadata"
)

// GetDefinition returns where the word under the cursor is declared in the
// metadata file. A /Name naming an entity set resolves to every declaration
// of its entity type; a property of an entity set mentioned in the document
// resolves to the property element. The result is empty when nothing matches.
func (a *API) GetDefinition(docURI string, pos Position) ([]Location, error) {
	doc, exists := a.GetDocument(docURI)
	if !exists {
		return nil, documentNotFound(docURI)
	}

	line, ok := doc.lineAt(pos.Line)
	if !ok {
		return []Location{}, nil
	}
	char := min(max(pos.Character, 0), len(line))

	start, end, ok := wordRange(line, char, wordPattern)
	if !ok {
		return []Location{}, nil
	}
	word := line[start:end]

	entry, ok := a.entry(doc)
	if !ok {
		return []Location{}, nil
	}
	target := fileURI(entry.Path)

	if matchesAt(line, char, entitySetWord) {
		if locs := entityTypeLocations(entry, word, target); len(locs) > 0 {
			return locs, nil
		}
	}

	return propertyLocations(entry, doc.Content, word, target), nil
}

func entityTypeLocations(entry *metadata.Entry, setName, target string) []Location {
	locs := []Location{}
	for _, set := range entry.Metadata.EntitySetsNamed(setName) {
		typeName := edm.BareTypeName(set.EntityType)
		if qt, ok := entry.Metadata.EntityTypeOf(set); ok {
			typeName = qt.EntityType.Name
		}
		needle := len(`<EntityType Name="`) + len(typeName) + 1
		for _, l := range metadata.LocateEntityType(entry.Lines, typeName) {
			line := entry.Lines[l.Line]
			locs = append(locs, Location{
				URI: target,
				Range: Range{
					Start: Position{Line: l.Line, Character: utf16Column(line, l.Column)},
					End:   Position{Line: l.Line, Character: utf16Column(line, l.Column+needle)},
				},
			})
		}
	}
	return locs
}

func propertyLocations(entry *metadata.Entry, text, word, target string) []Location {
	locs := []Location{}
	md := entry.Metadata
	for _, typeName := range mentionedEntityTypes(md, text) {
		for _, qt := range md.EntityTypesNamed(typeName) {
			p, ok := entry.Index.Property(qt.QualifiedName(), word)
			if !ok {
				continue
			}
			var line string
			if p.Line-1 < len(entry.Lines) {
				line = entry.Lines[p.Line-1]
			}
			byteCol := p.Column - 1
			locs = append(locs, Location{
				URI: target,
				Range: Range{
					Start: Position{Line: p.Line - 1, Character: utf16Column(line, byteCol)},
					End:   Position{Line: p.Line - 1, Character: utf16Column(line, byteCol+len("<Property"))},
				},
			})
		}
	}
	return locs
}

// utf16Column converts a byte offset in line to the UTF-16 code unit offset
// LSP clients count in. Offsets past the end of line count the excess as
// single units.
func utf16Column(line string, byteCol int) int {
	if byteCol <= 0 {
		return 0
	}
	n := 0
	for i, r := range line {
		if i >= byteCol {
			return n
		}
		if utf16.RuneLen(r) == 2 {
			n += 2
		} else {
			n++
		}
	}
	return n + byteCol - len(line)
}

func fileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return string(uri.File(path))
}
