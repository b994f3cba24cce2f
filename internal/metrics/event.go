package metrics

import "sort"

// Event records that something happened, together with optional
// structured extra keys.
type Event struct {
	Metric    `yaml:",inline"`
	ExtraKeys map[string]string `yaml:"extra_keys"`
}

// AllowedExtraKeys returns the extra key names sorted alphabetically,
// the order generated code declares them in.
func (e *Event) AllowedExtraKeys() []string {
	keys := make([]string, 0, len(e.ExtraKeys))
	for key := range e.ExtraKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (e *Event) ConstructorArgs() map[string]any {
	args := e.commonArgs()
	args["allowed_extra_keys"] = e.AllowedExtraKeys()
	return args
}
