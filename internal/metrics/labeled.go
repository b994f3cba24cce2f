package metrics

// labeledArgs adds the label set to a labeled variant's constructor
// arguments. Metrics without a declared label set stay dynamic and get
// no labels argument at all.
func labeledArgs(m *Metric) map[string]any {
	args := m.commonArgs()
	if len(m.Labels) > 0 {
		args["labels"] = m.Labels
	}
	return args
}

// LabeledBoolean is a boolean broken down by label.
type LabeledBoolean struct {
	Metric `yaml:",inline"`
}

func (l *LabeledBoolean) ConstructorArgs() map[string]any {
	return labeledArgs(&l.Metric)
}

// LabeledString is a string broken down by label.
type LabeledString struct {
	Metric `yaml:",inline"`
}

func (l *LabeledString) ConstructorArgs() map[string]any {
	return labeledArgs(&l.Metric)
}

// LabeledCounter is a counter broken down by label.
type LabeledCounter struct {
	Metric `yaml:",inline"`
}

func (l *LabeledCounter) ConstructorArgs() map[string]any {
	return labeledArgs(&l.Metric)
}
