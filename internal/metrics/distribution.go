package metrics

// TimingDistribution samples a distribution of durations.
type TimingDistribution struct {
	Metric   `yaml:",inline"`
	TimeUnit TimeUnit `yaml:"time_unit"`
}

func (t *TimingDistribution) ConstructorArgs() map[string]any {
	args := t.commonArgs()
	args["time_unit"] = t.TimeUnit
	return args
}

func (t *TimingDistribution) applyDefaults(raw map[string]any) {
	t.Metric.applyDefaults(raw)
	if _, ok := raw["time_unit"]; !ok {
		t.TimeUnit = TimeUnitMillisecond
	}
}

// MemoryDistribution samples a distribution of memory sizes.
type MemoryDistribution struct {
	Metric     `yaml:",inline"`
	MemoryUnit MemoryUnit `yaml:"memory_unit"`
}

func (m *MemoryDistribution) ConstructorArgs() map[string]any {
	args := m.commonArgs()
	args["memory_unit"] = m.MemoryUnit
	return args
}

// CustomDistribution samples a distribution with an explicitly
// configured bucket layout. Only available to metrics sourced from
// Gecko.
type CustomDistribution struct {
	Metric        `yaml:",inline"`
	RangeMin      int           `yaml:"range_min"`
	RangeMax      int           `yaml:"range_max"`
	BucketCount   int           `yaml:"bucket_count"`
	HistogramType HistogramType `yaml:"histogram_type"`
}

func (c *CustomDistribution) ConstructorArgs() map[string]any {
	args := c.commonArgs()
	args["range_min"] = c.RangeMin
	args["range_max"] = c.RangeMax
	args["bucket_count"] = c.BucketCount
	args["histogram_type"] = c.HistogramType
	return args
}

func (c *CustomDistribution) applyDefaults(raw map[string]any) {
	c.Metric.applyDefaults(raw)
	if _, ok := raw["range_min"]; !ok {
		c.RangeMin = 1
	}
}
