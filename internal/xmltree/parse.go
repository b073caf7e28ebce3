// Package xmltree turns XML documents into generic trees and reads values
// out of them with dotted paths.
//
// The tree mirrors the layout produced by xml2js: the root element is a
// mapping, every child element is wrapped in a sequence (elements may
// repeat), attributes live under "$" and text that sits next to attributes
// or children lives under "_". An element holding only text collapses to
// that string.
package xmltree

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	// AttrKey holds the attributes of an element
	AttrKey = "$"
	// TextKey holds the text of an element that also has attributes or children
	TextKey = "_"
)

type frame struct {
	name     string
	attrs    map[string]any
	children map[string]any
	text     strings.Builder
}

// Parse reads an XML document and returns its tree. Namespace prefixes are
// dropped, elements are keyed by local name.
func Parse(r io.Reader) (map[string]any, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		stack []*frame
		root  map[string]any
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			f := &frame{name: t.Name.Local}
			for _, attr := range t.Attr {
				if f.attrs == nil {
					f.attrs = make(map[string]any)
				}
				f.attrs[attrName(attr.Name)] = attr.Value
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("failed to parse XML: unexpected closing tag %q", t.Name.Local)
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			value := f.value()

			if len(stack) == 0 {
				root = map[string]any{f.name: value}
				continue
			}
			parent := stack[len(stack)-1]
			if parent.children == nil {
				parent.children = make(map[string]any)
			}
			siblings, _ := parent.children[f.name].([]any)
			parent.children[f.name] = append(siblings, value)
		}
	}

	if root == nil {
		return nil, errors.New("failed to parse XML: document has no root element")
	}
	return root, nil
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if f.attrs == nil && f.children == nil {
		return text
	}

	node := make(map[string]any, len(f.children)+2)
	for name, child := range f.children {
		node[name] = child
	}
	if f.attrs != nil {
		node[AttrKey] = f.attrs
	}
	if text != "" {
		node[TextKey] = text
	}
	return node
}

func attrName(name xml.Name) string {
	switch {
	case name.Space == "xmlns":
		return "xmlns:" + name.Local
	default:
		return name.Local
	}
}
