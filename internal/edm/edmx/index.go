package edmx

// Position is a 1-based line and column in a metadata document
type Position struct {
	Line   int
	Column int
}

// Index records where model elements start in the metadata text.
//
// EntityTypes is keyed by Namespace.Name, EntitySets by Container/Name and
// Properties by Namespace.EntityType/Property.
type Index struct {
	EntityTypes map[string]Position
	EntitySets  map[string]Position
	Properties  map[string]Position
}

func newIndex() *Index {
	return &Index{
		EntityTypes: make(map[string]Position),
		EntitySets:  make(map[string]Position),
		Properties:  make(map[string]Position),
	}
}

func (x *Index) addEntityType(qualified string, e *Element) {
	if _, ok := x.EntityTypes[qualified]; !ok {
		x.EntityTypes[qualified] = Position{Line: e.Line, Column: e.Column}
	}
}

func (x *Index) addEntitySet(container, name string, e *Element) {
	key := container + "/" + name
	if _, ok := x.EntitySets[key]; !ok {
		x.EntitySets[key] = Position{Line: e.Line, Column: e.Column}
	}
}

func (x *Index) addProperty(entityType, name string, e *Element) {
	key := entityType + "/" + name
	if _, ok := x.Properties[key]; !ok {
		x.Properties[key] = Position{Line: e.Line, Column: e.Column}
	}
}

// Property returns the position of a property of a qualified entity type
func (x *Index) Property(qualifiedType, name string) (Position, bool) {
	if x == nil {
		return Position{}, false
	}
	pos, ok := x.Properties[qualifiedType+"/"+name]
	return pos, ok
}

// EntityType returns the position of a qualified entity type
func (x *Index) EntityType(qualified string) (Position, bool) {
	if x == nil {
		return Position{}, false
	}
	pos, ok := x.EntityTypes[qualified]
	return pos, ok
}
