package edm

import (
	"reflect"
	"strings"
)

// BareTypeName returns the last dot-separated segment of a type reference.
// References without a dot are returned unchanged.
func BareTypeName(ref string) string {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Namespace returns the namespace part of a type reference, or "" for bare names
func Namespace(ref string) string {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		return ref[:i]
	}
	return ""
}

// EntityContainerItems flattens every entity set of every container of every
// schema. Duplicates, by deep equality, are dropped keeping the first one.
func (m *Metadata) EntityContainerItems() []EntitySet {
	if m == nil {
		return nil
	}
	var out []EntitySet
	for _, schema := range m.Schemas {
		for _, container := range schema.EntityContainers {
			for _, set := range container.EntitySets {
				out = appendUnique(out, set)
			}
		}
	}
	return out
}

// Properties flattens every property of every entity type of every schema.
// Duplicates, by deep equality, are dropped keeping the first one.
func (m *Metadata) Properties() []Property {
	if m == nil {
		return nil
	}
	var out []Property
	for _, schema := range m.Schemas {
		for _, entityType := range schema.EntityTypes {
			for _, prop := range entityType.Properties {
				out = appendUnique(out, prop)
			}
		}
	}
	return out
}

// EntitySetNames returns the distinct entity set names in document order
func (m *Metadata) EntitySetNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, set := range m.EntityContainerItems() {
		if !seen[set.Name] {
			seen[set.Name] = true
			names = append(names, set.Name)
		}
	}
	return names
}

// EntitySetsNamed returns the entity sets with the given name
func (m *Metadata) EntitySetsNamed(name string) []EntitySet {
	var out []EntitySet
	for _, set := range m.EntityContainerItems() {
		if set.Name == name {
			out = append(out, set)
		}
	}
	return out
}

// EntityTypesNamed returns the entity types whose name equals the bare name of ref
func (m *Metadata) EntityTypesNamed(ref string) []QualifiedEntityType {
	if m == nil {
		return nil
	}
	name := BareTypeName(ref)
	ns := Namespace(ref)

	var out []QualifiedEntityType
	for _, schema := range m.Schemas {
		if ns != "" && ns != schema.Namespace && ns != schema.Alias {
			continue
		}
		for _, entityType := range schema.EntityTypes {
			if entityType.Name == name {
				out = append(out, QualifiedEntityType{Namespace: schema.Namespace, EntityType: entityType})
			}
		}
	}
	return out
}

// EntityTypeOf resolves the entity type of an entity set
func (m *Metadata) EntityTypeOf(set EntitySet) (QualifiedEntityType, bool) {
	types := m.EntityTypesNamed(set.EntityType)
	if len(types) == 0 {
		// fall back to the bare name when the namespace is not declared here
		types = m.EntityTypesNamed(BareTypeName(set.EntityType))
	}
	if len(types) == 0 {
		return QualifiedEntityType{}, false
	}
	return types[0], true
}

// PropertiesOf returns the distinct properties of the entity types named by ref
func (m *Metadata) PropertiesOf(ref string) []Property {
	var out []Property
	for _, qt := range m.EntityTypesNamed(ref) {
		for _, prop := range qt.EntityType.Properties {
			out = appendUnique(out, prop)
		}
	}
	return out
}

// QualifiedEntityType is an entity type together with its schema namespace
type QualifiedEntityType struct {
	Namespace  string
	EntityType EntityType
}

// QualifiedName returns Namespace.Name
func (q QualifiedEntityType) QualifiedName() string {
	if q.Namespace == "" {
		return q.EntityType.Name
	}
	return q.Namespace + "." + q.EntityType.Name
}

func appendUnique[T any](items []T, item T) []T {
	for i := range items {
		if reflect.DeepEqual(items[i], item) {
			return items
		}
	}
	return append(items, item)
}

// PropertiesByAnnotation maps the value of every annotation with the given
// term to the property it annotates. The first property wins on conflicts.
func (m *Metadata) PropertiesByAnnotation(term string) map[string]Property {
	out := make(map[string]Property)
	for _, prop := range m.Properties() {
		for _, a := range prop.Annotations {
			if a.Term != term {
				continue
			}
			if _, ok := out[a.Value]; !ok {
				out[a.Value] = prop
			}
		}
	}
	return out
}
