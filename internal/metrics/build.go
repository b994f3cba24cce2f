package metrics

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// constructors maps each type discriminator to a factory for the
// matching variant. Build resolves the tag here exactly once.
var constructors = map[string]func() Object{
	"boolean":             func() Object { return &Boolean{} },
	"string":              func() Object { return &String{} },
	"string_list":         func() Object { return &StringList{} },
	"counter":             func() Object { return &Counter{} },
	"quantity":            func() Object { return &Quantity{} },
	"timespan":            func() Object { return &Timespan{} },
	"datetime":            func() Object { return &Datetime{} },
	"uuid":                func() Object { return &UUID{} },
	"event":               func() Object { return &Event{} },
	"use_counter":         func() Object { return &UseCounter{} },
	"timing_distribution": func() Object { return &TimingDistribution{} },
	"memory_distribution": func() Object { return &MemoryDistribution{} },
	"custom_distribution": func() Object { return &CustomDistribution{} },
	"labeled_boolean":     func() Object { return &LabeledBoolean{} },
	"labeled_string":      func() Object { return &LabeledString{} },
	"labeled_counter":     func() Object { return &LabeledCounter{} },
}

// KnownTypes returns every registered type discriminator, sorted.
func KnownTypes() []string {
	types := make([]string, 0, len(constructors))
	for tag := range constructors {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

// UnknownTagError reports a type discriminator with no registered
// constructor.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("could not determine a constructor for the tag %q", e.Tag)
}

type defaulter interface {
	applyDefaults(raw map[string]any)
}

// Build constructs the typed metric for one raw definition, selecting
// the concrete variant by the type discriminator and applying the
// variant's defaults.
func Build(category, name string, raw map[string]any) (Object, error) {
	tag, _ := raw["type"].(string)
	ctor, ok := constructors[tag]
	if !ok {
		return nil, &UnknownTagError{Tag: tag}
	}
	obj := ctor()
	if err := decodeInto(raw, obj); err != nil {
		return nil, fmt.Errorf("invalid %s metric: %w", tag, err)
	}
	meta := obj.(MetricObject).Meta()
	meta.Category = category
	meta.Name = name
	obj.(defaulter).applyDefaults(raw)
	return obj, nil
}

// BuildPing constructs the typed ping for one raw definition.
func BuildPing(name string, raw map[string]any) (*Ping, error) {
	ping := &Ping{}
	if err := decodeInto(raw, ping); err != nil {
		return nil, fmt.Errorf("invalid ping: %w", err)
	}
	ping.Name = name
	return ping, nil
}

// decodeInto round-trips a raw mapping through YAML so the variant's
// field tags and custom unmarshalers shape the result.
func decodeInto(raw map[string]any, out any) error {
	buf, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(buf, out)
}
