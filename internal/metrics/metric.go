package metrics

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Object is a single named entry built from a registry document, either
// a metric or a ping.
type Object interface {
	// ObjectType returns the type discriminator from the source
	// document, for example "counter" or "ping".
	ObjectType() string
	// ObjectName returns the bare object name without its category.
	ObjectName() string
	// ConstructorArgs returns the values a generated constructor call
	// carries, keyed by their canonical snake_case parameter name.
	ConstructorArgs() map[string]any
}

// MetricObject is implemented by every metric variant and exposes the
// shared metadata block.
type MetricObject interface {
	Object
	Meta() *Metric
}

// BugList accepts both bare bug numbers and full bug URLs, keeping every
// entry in its original string form.
type BugList []string

func (b *BugList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("bugs must be a list, got %s", value.Tag)
	}
	out := make(BugList, 0, len(value.Content))
	for _, item := range value.Content {
		out = append(out, item.Value)
	}
	*b = out
	return nil
}

// LabelSet is the set of labels a labeled metric accepts. Duplicates
// collapse and the set is kept sorted.
type LabelSet []string

func (s *LabelSet) UnmarshalYAML(value *yaml.Node) error {
	var raw []string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(raw))
	out := make(LabelSet, 0, len(raw))
	for _, label := range raw {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	*s = out
	return nil
}

// Metric holds the fields shared by every metric type. Variants embed it
// and add their own parameters on top.
type Metric struct {
	Type               string   `yaml:"type"`
	Category           string   `yaml:"-"`
	Name               string   `yaml:"-"`
	Description        string   `yaml:"description"`
	Bugs               BugList  `yaml:"bugs"`
	DataReviews        []string `yaml:"data_reviews"`
	NotificationEmails []string `yaml:"notification_emails"`
	Expires            string   `yaml:"expires"`
	Lifetime           Lifetime `yaml:"lifetime"`
	SendInPings        []string `yaml:"send_in_pings"`
	Disabled           bool     `yaml:"disabled"`
	Labels             LabelSet `yaml:"labels"`
	GeckoDatapoint     string   `yaml:"gecko_datapoint"`
	Version            int      `yaml:"version"`
}

func (m *Metric) ObjectType() string { return m.Type }

func (m *Metric) ObjectName() string { return m.Name }

// Meta returns the shared metadata block. It exists so callers holding
// an Object can reach the common fields without a per-variant switch.
func (m *Metric) Meta() *Metric { return m }

// Identifier returns the dotted category.name form used in error
// messages and generated lookup tables.
func (m *Metric) Identifier() string {
	if m.Category == "" {
		return m.Name
	}
	return m.Category + "." + m.Name
}

// IsDistribution reports whether the metric carries histogram-style
// values.
func (m *Metric) IsDistribution() bool {
	switch m.Type {
	case "timing_distribution", "memory_distribution", "custom_distribution":
		return true
	}
	return false
}

func (m *Metric) ConstructorArgs() map[string]any {
	return m.commonArgs()
}

func (m *Metric) commonArgs() map[string]any {
	return map[string]any{
		"category":      m.Category,
		"name":          m.Name,
		"disabled":      m.Disabled,
		"lifetime":      m.Lifetime,
		"send_in_pings": append([]string(nil), m.SendInPings...),
	}
}

// applyDefaults fills in the values the document format treats as
// implicit. raw is the original mapping, consulted where "absent" and
// "zero" must be told apart.
func (m *Metric) applyDefaults(raw map[string]any) {
	if len(m.SendInPings) == 0 {
		m.SendInPings = []string{"default"}
		return
	}
	seen := make(map[string]struct{}, len(m.SendInPings))
	pings := m.SendInPings[:0]
	for _, ping := range m.SendInPings {
		if _, ok := seen[ping]; ok {
			continue
		}
		seen[ping] = struct{}{}
		pings = append(pings, ping)
	}
	m.SendInPings = pings
}
