// Package schema compiles the embedded registry schemas and turns
// structural violations into located, human-readable records.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/metrics.1-0-0.schema.json
var metricsSchemaJSON []byte

//go:embed schemas/pings.1-0-0.schema.json
var pingsSchemaJSON []byte

// Schema identifiers documents select with their $schema key.
const (
	MetricsSchemaID = "moz://mozilla.org/schemas/glean/metrics/1-0-0"
	PingsSchemaID   = "moz://mozilla.org/schemas/glean/pings/1-0-0"
)

// Kind tells which document family a schema validates.
type Kind int

const (
	KindMetrics Kind = iota
	KindPings
)

func (k Kind) String() string {
	switch k {
	case KindMetrics:
		return "metrics"
	case KindPings:
		return "pings"
	default:
		return "unknown"
	}
}

// Schema is one compiled registry schema. The raw document is kept
// alongside so documentation text can be looked up per node.
type Schema struct {
	ID       string
	Kind     Kind
	compiled *jsonschema.Schema
	raw      map[string]any
}

// Set holds every registry schema the parser understands. It is
// compiled once and passed explicitly into validation.
type Set struct {
	byID map[string]*Schema
}

// Load compiles the embedded registry schemas.
func Load() (*Set, error) {
	set := &Set{byID: make(map[string]*Schema, 2)}
	for _, entry := range []struct {
		id   string
		kind Kind
		src  []byte
	}{
		{MetricsSchemaID, KindMetrics, metricsSchemaJSON},
		{PingsSchemaID, KindPings, pingsSchemaJSON},
	} {
		sch, err := compile(entry.id, entry.kind, entry.src)
		if err != nil {
			return nil, err
		}
		set.byID[entry.id] = sch
	}
	return set, nil
}

func compile(id string, kind Kind, src []byte) (*Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", id, err)
	}
	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema %s: document is not an object", id)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", id, err)
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", id, err)
	}
	return &Schema{ID: id, Kind: kind, compiled: compiled, raw: raw}, nil
}

// ForID resolves the schema a document selected with its $schema key.
// Documents without the key get the metrics schema.
func (s *Set) ForID(id string) (*Schema, bool) {
	if id == "" {
		id = MetricsSchemaID
	}
	sch, ok := s.byID[id]
	return sch, ok
}

// Metrics returns the metrics registry schema.
func (s *Set) Metrics() *Schema { return s.byID[MetricsSchemaID] }

// Pings returns the pings registry schema.
func (s *Set) Pings() *Schema { return s.byID[PingsSchemaID] }

// IDs returns the identifiers of every known schema, sorted.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Violation is one structural schema violation located by its path into
// the instance document.
type Violation struct {
	// Path holds the instance path segments down to the offending node.
	Path []string
	// Message describes the violated constraint.
	Message string
	// Docs carries the schema's documentation text for the node.
	Docs string
}

// Validate checks an instance document against the schema and returns
// every structural violation. Nil means the document conforms.
func (s *Schema) Validate(instance any) []Violation {
	err := s.compiled.Validate(instance)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Violation{{Message: err.Error()}}
	}
	var leaves []*jsonschema.ValidationError
	collectLeaves(verr, &leaves)
	out := make([]Violation, 0, len(leaves))
	for _, leaf := range leaves {
		out = append(out, Violation{
			Path:    append([]string(nil), leaf.InstanceLocation...),
			Message: violationMessage(leaf, instance),
			Docs:    s.Documentation(leaf.InstanceLocation),
		})
	}
	return out
}

// collectLeaves walks the validation error tree down to the errors that
// carry the actual violated constraints.
func collectLeaves(err *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		*out = append(*out, err)
		return
	}
	for _, cause := range err.Causes {
		collectLeaves(cause, out)
	}
}
