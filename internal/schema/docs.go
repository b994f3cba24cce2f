package schema

import "strings"

// Documentation returns the schema's documentation text for the node at
// the given instance path, falling back to the closest documented
// ancestor. The walk mirrors how the validator descends: named
// properties first, then array items, then additionalProperties.
func (s *Schema) Documentation(path []string) string {
	node := s.resolveRef(s.raw)
	best := description(node)
	for _, seg := range path {
		child, ok := childSchema(node, seg)
		if !ok {
			break
		}
		node = s.resolveRef(child)
		if d := description(node); d != "" {
			best = d
		}
	}
	return best
}

func description(node map[string]any) string {
	d, _ := node["description"].(string)
	return d
}

func childSchema(node map[string]any, seg string) (map[string]any, bool) {
	if props, ok := node["properties"].(map[string]any); ok {
		if child, ok := props[seg].(map[string]any); ok {
			return child, true
		}
	}
	if isIndex(seg) {
		if items, ok := node["items"].(map[string]any); ok {
			return items, true
		}
	}
	if ap, ok := node["additionalProperties"].(map[string]any); ok {
		return ap, true
	}
	return nil, false
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveRef chases local $ref pointers so descriptions on shared
// definitions are found. The depth cap guards against reference cycles.
func (s *Schema) resolveRef(node map[string]any) map[string]any {
	for range 10 {
		ref, ok := node["$ref"].(string)
		if !ok {
			return node
		}
		resolved, ok := s.lookupLocalRef(ref)
		if !ok {
			return node
		}
		node = resolved
	}
	return node
}

func (s *Schema) lookupLocalRef(ref string) (map[string]any, bool) {
	const prefix = "#/"
	if !strings.HasPrefix(ref, prefix) {
		return nil, false
	}
	node := any(s.raw)
	for _, part := range strings.Split(strings.TrimPrefix(ref, prefix), "/") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	m, ok := node.(map[string]any)
	return m, ok
}
