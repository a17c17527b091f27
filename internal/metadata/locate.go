package metadata

import (
	"fmt"
	"strings"
)

// Location is a 0-based line and column in a metadata file. Column is a
// byte offset into the line.
type Location struct {
	Line   int
	Column int
}

// LocateEntityType finds every line declaring the entity type typeName, in
// file order. The first element is the first declaration.
func LocateEntityType(lines []string, typeName string) []Location {
	return locate(lines, fmt.Sprintf(`<EntityType Name="%s"`, typeName))
}

// LocateEntitySet finds every line declaring the entity set name
func LocateEntitySet(lines []string, name string) []Location {
	return locate(lines, fmt.Sprintf(`<EntitySet Name="%s"`, name))
}

func locate(lines []string, needle string) []Location {
	var out []Location
	for i, line := range lines {
		if col := strings.Index(line, needle); col >= 0 {
			out = append(out, Location{Line: i, Column: col})
		}
	}
	return out
}
