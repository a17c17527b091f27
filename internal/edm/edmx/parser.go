// Package edmx parses EDMX/CSDL metadata documents into the edm model.
package edmx

import (
	"encoding/xml"
	stderrors "errors"
	"strings"

	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/errors"
)

var errMultipleRoots = stderrors.New("document has more than one root element")

// Parse parses a metadata document. It fails with an error of kind
// errors.KindXMLParse when the XML is malformed or has no DataServices element.
func Parse(text string) (*edm.Metadata, error) {
	md, _, err := ParseWithIndex(text)
	return md, err
}

// ParseWithIndex parses a metadata document and also returns the source
// positions of its entity types, entity sets and properties.
func ParseWithIndex(text string) (*edm.Metadata, *Index, error) {
	root, err := decodeTree(strings.NewReader(text))
	if err != nil {
		line := 0
		var syntaxErr *xml.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			line = syntaxErr.Line
		}
		return nil, nil, errors.NewXMLParseError(errors.ErrMalformedXML, "malformed metadata XML", line, 0, err)
	}
	if root == nil {
		return nil, nil, errors.NewXMLParseError(errors.ErrMissingRoot, "metadata document has no root element", 0, 0, nil)
	}

	dataServices := root.Child("DataServices")
	if dataServices == nil {
		return nil, nil, errors.NewXMLParseError(errors.ErrMissingDataService,
			"metadata document has no DataServices element under <"+root.Name+">", root.Line, root.Column, nil)
	}

	idx := newIndex()
	md := &edm.Metadata{
		Version: scalar(root, "Version"),
		Schemas: collect(dataServices, "Schema", func(e *Element) edm.Schema {
			return parseSchema(e, idx)
		}),
	}
	return md, idx, nil
}

func parseSchema(e *Element, idx *Index) edm.Schema {
	ns := scalar(e, "Namespace")
	return edm.Schema{
		Namespace: ns,
		Alias:     scalar(e, "Alias"),
		EntityTypes: collect(e, "EntityType", func(c *Element) edm.EntityType {
			return parseEntityType(c, ns, idx)
		}),
		EntityContainers: collect(e, "EntityContainer", func(c *Element) edm.EntityContainer {
			return parseEntityContainer(c, idx)
		}),
	}
}

func parseEntityType(e *Element, ns string, idx *Index) edm.EntityType {
	t := edm.EntityType{
		Name:                 scalar(e, "Name"),
		NavigationProperties: collect(e, "NavigationProperty", parseNavigationProperty),
	}
	if key := e.Child("Key"); key != nil {
		t.Key = collect(key, "PropertyRef", func(c *Element) edm.PropertyRef {
			return edm.PropertyRef{Name: scalar(c, "Name")}
		})
	}

	qualified := qualify(ns, t.Name)
	idx.addEntityType(qualified, e)
	t.Properties = collect(e, "Property", func(c *Element) edm.Property {
		p := parseProperty(c)
		idx.addProperty(qualified, p.Name, c)
		return p
	})
	return t
}

func parseProperty(e *Element) edm.Property {
	p := edm.Property{
		Name:        scalar(e, "Name"),
		Type:        scalar(e, "Type"),
		Annotations: collect(e, "Annotation", parseAnnotation),
	}
	// presence of a non-empty value, not its boolean meaning
	if v, ok := readScalar(e, "Nullable"); ok && v != "" {
		nullable := true
		p.Nullable = &nullable
		p.NullableText = v
	}
	return p
}

func parseNavigationProperty(e *Element) edm.NavigationProperty {
	return edm.NavigationProperty{
		Name: scalar(e, "Name"),
		Type: scalar(e, "Type"),
		ReferentialConstraints: collect(e, "ReferentialConstraint", func(c *Element) edm.ReferentialConstraint {
			return edm.ReferentialConstraint{
				Property:           scalar(c, "Property"),
				ReferencedProperty: scalar(c, "ReferencedProperty"),
			}
		}),
	}
}

func parseEntityContainer(e *Element, idx *Index) edm.EntityContainer {
	c := edm.EntityContainer{Name: scalar(e, "Name")}
	c.EntitySets = collect(e, "EntitySet", func(s *Element) edm.EntitySet {
		set := parseEntitySet(s)
		idx.addEntitySet(c.Name, set.Name, s)
		return set
	})
	return c
}

func parseEntitySet(e *Element) edm.EntitySet {
	return edm.EntitySet{
		Name:       scalar(e, "Name"),
		EntityType: scalar(e, "EntityType"),
		NavigationPropertyBindings: collect(e, "NavigationPropertyBinding", func(c *Element) edm.NavigationPropertyBinding {
			return edm.NavigationPropertyBinding{
				Path:   scalar(c, "Path"),
				Target: scalar(c, "Target"),
			}
		}),
		Annotations: collect(e, "Annotation", parseAnnotation),
	}
}

func parseAnnotation(e *Element) edm.Annotation {
	return edm.Annotation{
		Term:  scalar(e, "Term"),
		Value: scalar(e, "String"),
	}
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}
