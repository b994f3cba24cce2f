package parser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source is one input document: a file path, or an inline mapping that
// was decoded elsewhere.
type Source struct {
	path   string
	inline map[string]any
	name   string
}

// FromFile makes a Source read from disk at parse time.
func FromFile(path string) Source {
	return Source{path: path, name: path}
}

// FromMap makes a Source from an already decoded document. The name
// only serves error attribution.
func FromMap(name string, doc map[string]any) Source {
	if name == "" {
		name = "inline"
	}
	return Source{inline: doc, name: name}
}

// Name identifies the source in error messages.
func (s Source) Name() string { return s.name }

// standardTags are the YAML tags a registry document may carry. Anything
// else has no constructor and fails the load.
var standardTags = map[string]struct{}{
	"!!str":       {},
	"!!int":       {},
	"!!float":     {},
	"!!bool":      {},
	"!!null":      {},
	"!!map":       {},
	"!!seq":       {},
	"!!timestamp": {},
	"!!binary":    {},
	"!!merge":     {},
}

// load produces the raw document for a source. Findings about the
// document as a whole come back as a ParseError; further validation is
// the caller's concern.
func (s Source) load() (any, *ParseError) {
	if s.path == "" {
		if len(s.inline) == 0 {
			return nil, &ParseError{
				Source:  s.name,
				Kind:    KindEmptyDocument,
				Message: "file can not be empty.",
			}
		}
		doc := make(map[string]any, len(s.inline))
		for k, v := range s.inline {
			doc[k] = v
		}
		return doc, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &ParseError{
			Source:  s.name,
			Kind:    KindMalformedDocument,
			Message: fmt.Sprintf("could not read file: %v", err),
		}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{
			Source:  s.name,
			Kind:    KindMalformedDocument,
			Message: err.Error(),
		}
	}
	if root.Kind == 0 {
		return nil, &ParseError{
			Source:  s.name,
			Kind:    KindEmptyDocument,
			Message: "file can not be empty.",
		}
	}
	if tag := findUnknownTag(&root); tag != "" {
		return nil, &ParseError{
			Source:  s.name,
			Kind:    KindUnknownConstructorTag,
			Message: fmt.Sprintf("could not determine a constructor for the tag '%s'", tag),
		}
	}

	var doc any
	if err := root.Decode(&doc); err != nil {
		return nil, &ParseError{
			Source:  s.name,
			Kind:    KindMalformedDocument,
			Message: err.Error(),
		}
	}
	if doc == nil {
		return nil, &ParseError{
			Source:  s.name,
			Kind:    KindEmptyDocument,
			Message: "file can not be empty.",
		}
	}
	return doc, nil
}

func findUnknownTag(n *yaml.Node) string {
	if n.Kind == yaml.ScalarNode || n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		if _, ok := standardTags[n.Tag]; !ok && n.Tag != "" {
			return n.Tag
		}
	}
	for _, child := range n.Content {
		if tag := findUnknownTag(child); tag != "" {
			return tag
		}
	}
	return ""
}
