package metrics

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Lifetime controls when a recorded metric value is reset.
type Lifetime int

const (
	// LifetimePing resets the value each time it is sent in a ping.
	LifetimePing Lifetime = iota
	// LifetimeUser keeps the value for the whole user profile.
	LifetimeUser
	// LifetimeApplication keeps the value until application restart.
	LifetimeApplication
)

var lifetimeNames = map[string]Lifetime{
	"ping":        LifetimePing,
	"user":        LifetimeUser,
	"application": LifetimeApplication,
}

// ParseLifetime maps a document value to its Lifetime.
func ParseLifetime(s string) (Lifetime, error) {
	l, ok := lifetimeNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown lifetime %q", s)
	}
	return l, nil
}

func (l Lifetime) String() string {
	switch l {
	case LifetimePing:
		return "ping"
	case LifetimeUser:
		return "user"
	case LifetimeApplication:
		return "application"
	default:
		return "unknown"
	}
}

func (l *Lifetime) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseLifetime(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// TimeUnit is the resolution a time-based metric records at.
type TimeUnit int

const (
	TimeUnitNanosecond TimeUnit = iota
	TimeUnitMicrosecond
	TimeUnitMillisecond
	TimeUnitSecond
	TimeUnitMinute
	TimeUnitHour
	TimeUnitDay
)

var timeUnitNames = map[string]TimeUnit{
	"nanosecond":  TimeUnitNanosecond,
	"microsecond": TimeUnitMicrosecond,
	"millisecond": TimeUnitMillisecond,
	"second":      TimeUnitSecond,
	"minute":      TimeUnitMinute,
	"hour":        TimeUnitHour,
	"day":         TimeUnitDay,
}

// ParseTimeUnit maps a document value to its TimeUnit.
func ParseTimeUnit(s string) (TimeUnit, error) {
	u, ok := timeUnitNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q", s)
	}
	return u, nil
}

func (u TimeUnit) String() string {
	switch u {
	case TimeUnitNanosecond:
		return "nanosecond"
	case TimeUnitMicrosecond:
		return "microsecond"
	case TimeUnitMillisecond:
		return "millisecond"
	case TimeUnitSecond:
		return "second"
	case TimeUnitMinute:
		return "minute"
	case TimeUnitHour:
		return "hour"
	case TimeUnitDay:
		return "day"
	default:
		return "unknown"
	}
}

func (u *TimeUnit) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTimeUnit(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MemoryUnit is the resolution a memory-based metric records at.
type MemoryUnit int

const (
	MemoryUnitByte MemoryUnit = iota
	MemoryUnitKilobyte
	MemoryUnitMegabyte
	MemoryUnitGigabyte
)

var memoryUnitNames = map[string]MemoryUnit{
	"byte":     MemoryUnitByte,
	"kilobyte": MemoryUnitKilobyte,
	"megabyte": MemoryUnitMegabyte,
	"gigabyte": MemoryUnitGigabyte,
}

// ParseMemoryUnit maps a document value to its MemoryUnit.
func ParseMemoryUnit(s string) (MemoryUnit, error) {
	u, ok := memoryUnitNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown memory unit %q", s)
	}
	return u, nil
}

func (u MemoryUnit) String() string {
	switch u {
	case MemoryUnitByte:
		return "byte"
	case MemoryUnitKilobyte:
		return "kilobyte"
	case MemoryUnitMegabyte:
		return "megabyte"
	case MemoryUnitGigabyte:
		return "gigabyte"
	default:
		return "unknown"
	}
}

func (u *MemoryUnit) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseMemoryUnit(raw)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// HistogramType selects the bucketing strategy of a custom distribution.
type HistogramType int

const (
	HistogramTypeLinear HistogramType = iota
	HistogramTypeExponential
)

var histogramTypeNames = map[string]HistogramType{
	"linear":      HistogramTypeLinear,
	"exponential": HistogramTypeExponential,
}

// ParseHistogramType maps a document value to its HistogramType.
func ParseHistogramType(s string) (HistogramType, error) {
	h, ok := histogramTypeNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown histogram type %q", s)
	}
	return h, nil
}

func (h HistogramType) String() string {
	switch h {
	case HistogramTypeLinear:
		return "linear"
	case HistogramTypeExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

func (h *HistogramType) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseHistogramType(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
