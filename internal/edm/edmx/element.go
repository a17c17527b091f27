package edmx

import (
	"encoding/xml"
	"io"
	"strings"
)

// Element is a generic XML element. Names are local names; namespace
// prefixes are dropped so edmx:DataServices and DataServices match alike.
type Element struct {
	Name     string
	Attrs    map[string]string
	Children []*Element
	Text     string
	Line     int // 1-based line of the start tag
	Column   int // 1-based column of the start tag
}

// Attr returns the value of an attribute
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Child returns the first direct child with the given name
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns the direct children with the given name
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// readScalar reads a scalar field that may be encoded either as an attribute
// or as the text of a direct child element. A non-empty attribute wins.
func readScalar(e *Element, name string) (string, bool) {
	if v, ok := e.Attrs[name]; ok && v != "" {
		return v, true
	}
	if c := e.Child(name); c != nil {
		return strings.TrimSpace(c.Text), true
	}
	return "", false
}

// scalar is readScalar without the presence flag
func scalar(e *Element, name string) string {
	v, _ := readScalar(e, name)
	return v
}

// collect maps the direct children named name. It returns nil, not an empty
// slice, when there are none.
func collect[T any](e *Element, name string, fn func(*Element) T) []T {
	var out []T
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, fn(c))
		}
	}
	return out
}

// decodeTree reads a whole document into an element tree and returns its root
func decodeTree(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var root *Element
	var stack []*Element

	for {
		line, col := dec.InputPos()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Name:   t.Name.Local,
				Attrs:  make(map[string]string, len(t.Attr)),
				Line:   line,
				Column: col,
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				if _, dup := el.Attrs[a.Name.Local]; !dup {
					el.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errMultipleRoots
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	return root, nil
}
