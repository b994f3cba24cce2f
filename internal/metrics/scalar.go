package metrics

// Boolean records a single true/false flag.
type Boolean struct {
	Metric `yaml:",inline"`
}

// String records a single short string value.
type String struct {
	Metric `yaml:",inline"`
}

// StringList records a list of short string values.
type StringList struct {
	Metric `yaml:",inline"`
}

// Counter counts how often something happens.
type Counter struct {
	Metric `yaml:",inline"`
}

// UUID records a single UUID value.
type UUID struct {
	Metric `yaml:",inline"`
}

// Datetime records an absolute point in time.
type Datetime struct {
	Metric   `yaml:",inline"`
	TimeUnit TimeUnit `yaml:"time_unit"`
}

func (d *Datetime) ConstructorArgs() map[string]any {
	args := d.commonArgs()
	args["time_unit"] = d.TimeUnit
	return args
}

func (d *Datetime) applyDefaults(raw map[string]any) {
	d.Metric.applyDefaults(raw)
	if _, ok := raw["time_unit"]; !ok {
		d.TimeUnit = TimeUnitMillisecond
	}
}

// Timespan records a single duration.
type Timespan struct {
	Metric   `yaml:",inline"`
	TimeUnit TimeUnit `yaml:"time_unit"`
}

func (t *Timespan) ConstructorArgs() map[string]any {
	args := t.commonArgs()
	args["time_unit"] = t.TimeUnit
	return args
}

func (t *Timespan) applyDefaults(raw map[string]any) {
	t.Metric.applyDefaults(raw)
	if _, ok := raw["time_unit"]; !ok {
		t.TimeUnit = TimeUnitMillisecond
	}
}

// Quantity records a single numeric value with an externally defined
// unit. Only available to metrics sourced from Gecko.
type Quantity struct {
	Metric `yaml:",inline"`
	Unit   string `yaml:"unit"`
}

func (q *Quantity) ConstructorArgs() map[string]any {
	args := q.commonArgs()
	args["unit"] = q.Unit
	return args
}

// UseCounter counts how often something is used relative to a
// denominator counter.
type UseCounter struct {
	Metric      `yaml:",inline"`
	Denominator string `yaml:"denominator"`
}

func (u *UseCounter) ConstructorArgs() map[string]any {
	args := u.commonArgs()
	args["denominator"] = u.Denominator
	return args
}
