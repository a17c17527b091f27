package tooling

import (
	"fmt"
	"strings"

	"github.com/odatakit/odatakit/internal/edm"
)

// hoverPropertyLimit caps the properties listed for an entity set
const hoverPropertyLimit = 10

// GetHover describes the entity set or property under the cursor.
// Returns (nil, nil) if the word names neither.
func (a *API) GetHover(uri string, pos Position) (*Hover, error) {
	doc, exists := a.GetDocument(uri)
	if !exists {
		return nil, documentNotFound(uri)
	}

	line, ok := doc.lineAt(pos.Line)
	if !ok {
		return nil, nil //nolint:nilnil // nil hover is valid past the end of the document
	}
	char := min(max(pos.Character, 0), len(line))

	start, end, ok := wordRange(line, char, wordPattern)
	if !ok {
		return nil, nil //nolint:nilnil // nil hover is valid when no word at position
	}
	word := line[start:end]

	entry, ok := a.entry(doc)
	if !ok {
		return nil, nil //nolint:nilnil // no metadata for this document
	}
	md := entry.Metadata

	r := Range{
		Start: Position{Line: pos.Line, Character: start},
		End:   Position{Line: pos.Line, Character: end},
	}

	if sets := md.EntitySetsNamed(word); len(sets) > 0 {
		return &Hover{Contents: entitySetHover(md, sets[0]), Range: r}, nil
	}

	for _, typeName := range mentionedEntityTypes(md, doc.Content) {
		for _, prop := range md.PropertiesOf(typeName) {
			if prop.Name == word {
				return &Hover{Contents: propertyHover(typeName, prop), Range: r}, nil
			}
		}
	}

	return nil, nil //nolint:nilnil // nil hover is valid when the word is unknown
}

func entitySetHover(md *edm.Metadata, set edm.EntitySet) string {
	typeName := edm.BareTypeName(set.EntityType)
	namespace := edm.Namespace(set.EntityType)

	var props []string
	if qt, ok := md.EntityTypeOf(set); ok {
		typeName, namespace = qt.EntityType.Name, qt.Namespace
		for _, p := range qt.EntityType.Properties {
			if len(props) == hoverPropertyLimit {
				break
			}
			props = append(props, fmt.Sprintf("- %s: %s", p.Name, p.Type))
		}
	}

	var content strings.Builder
	fmt.Fprintf(&content, "**EntitySet**: %s\n\n", set.Name)
	fmt.Fprintf(&content, "- EntityType: %s\n", typeName)
	fmt.Fprintf(&content, "- Namespace: %s\n\n", namespace)
	content.WriteString("Properties:\n\n")
	content.WriteString(strings.Join(props, "\n"))
	content.WriteString("\n")
	return content.String()
}

func propertyHover(typeName string, prop edm.Property) string {
	var content strings.Builder
	fmt.Fprintf(&content, "**Property**: %s\n\n", prop.Name)
	fmt.Fprintf(&content, "- EntityType: %s\n", typeName)
	fmt.Fprintf(&content, "- Type: %s\n", prop.Type)
	if prop.NullableText != "" {
		fmt.Fprintf(&content, "- Nullable: %s\n", prop.NullableText)
	}
	return content.String()
}
