// Package edm holds the in-memory Entity Data Model of an OData service.
//
// Optional collections are nil when the metadata document has no matching
// elements. The parser never produces an empty non-nil slice, so callers can
// tell "absent" apart from a filtered result they built themselves.
package edm

// Metadata is a parsed metadata document
type Metadata struct {
	Version string // Edmx Version attribute, if any
	Schemas []Schema
}

// Schema groups entity types and containers under a namespace
type Schema struct {
	Namespace        string
	Alias            string
	EntityTypes      []EntityType
	EntityContainers []EntityContainer
}

// HasEntityTypes reports whether the schema declares any entity types
func (s *Schema) HasEntityTypes() bool { return s.EntityTypes != nil }

// HasEntityContainers reports whether the schema declares any entity containers
func (s *Schema) HasEntityContainers() bool { return s.EntityContainers != nil }

// EntityType is a named structured type
type EntityType struct {
	Name                 string
	Key                  []PropertyRef
	Properties           []Property
	NavigationProperties []NavigationProperty
}

// HasProperties reports whether the entity type declares any properties
func (t *EntityType) HasProperties() bool { return t.Properties != nil }

// Property is a structural property of an entity type
type Property struct {
	Name         string
	Type         string
	Nullable     *bool  // nil when no Nullable value was given
	NullableText string // raw Nullable value, e.g. "false"
	Annotations  []Annotation
}

// PropertyRef names a key property
type PropertyRef struct {
	Name string
}

// NavigationProperty is a relationship from one entity type to another
type NavigationProperty struct {
	Name                   string
	Type                   string
	ReferentialConstraints []ReferentialConstraint
}

// ReferentialConstraint pairs a dependent property with the principal property it references
type ReferentialConstraint struct {
	Property           string
	ReferencedProperty string
}

// EntityContainer holds the entity sets exposed by a service
type EntityContainer struct {
	Name       string
	EntitySets []EntitySet
}

// HasEntitySets reports whether the container declares any entity sets
func (c *EntityContainer) HasEntitySets() bool { return c.EntitySets != nil }

// EntitySet is a queryable collection of entities. EntityType is a dotted
// Namespace.Name reference or a bare Name.
type EntitySet struct {
	Name                       string
	EntityType                 string
	NavigationPropertyBindings []NavigationPropertyBinding
	Annotations                []Annotation
}

// NavigationPropertyBinding binds a navigation path to a target entity set
type NavigationPropertyBinding struct {
	Path   string
	Target string
}

// Annotation is a term applied to a model element
type Annotation struct {
	Term  string
	Value string
}
