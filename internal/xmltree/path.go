package xmltree

import "strings"

// Get walks tree along a dotted path and returns the value found, or nil.
//
// Before each field lookup, and once more after the last one, a sequence is
// replaced by its first element. Anything that is not a mapping where a
// field is expected ends the walk with nil. An empty path returns tree as is.
func Get(tree any, path string) any {
	if path == "" {
		return tree
	}

	node := tree
	for _, field := range strings.Split(path, ".") {
		fields, ok := first(node).(map[string]any)
		if !ok {
			return nil
		}
		if node, ok = fields[field]; !ok {
			return nil
		}
	}
	return first(node)
}

// String returns the text found at path. Elements carrying attributes keep
// their text under TextKey, which is also accepted.
func String(tree any, path string) *string {
	switch v := Get(tree, path).(type) {
	case string:
		return &v
	case map[string]any:
		if text, ok := v[TextKey].(string); ok {
			return &text
		}
	}
	return nil
}

// Has reports whether path resolves to a value
func Has(tree any, path string) bool {
	return Get(tree, path) != nil
}

func first(node any) any {
	if seq, ok := node.([]any); ok {
		if len(seq) == 0 {
			return nil
		}
		return seq[0]
	}
	return node
}
