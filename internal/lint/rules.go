package lint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
)

// Rule names reported in lint output. Validation findings reuse the
// parser's error kind names instead.
const (
	RuleBugNumber    = "bug-number"
	RuleCommonPrefix = "common-prefix"
	RuleUnitInName   = "unit-in-name"
)

// adviseTree runs the advisory rules over a merged object tree. These
// flag constructs that pass validation but tend to age badly.
func adviseTree(tree *metrics.ObjectTree) []Issue {
	if tree == nil {
		return nil
	}
	var issues []Issue
	issues = append(issues, checkBugNumbers(tree)...)
	issues = append(issues, checkCommonPrefixes(tree)...)
	issues = append(issues, checkUnitsInNames(tree)...)
	return issues
}

// checkBugNumbers flags bug references given as bare numbers. A number
// alone does not say which tracker it lives in.
func checkBugNumbers(tree *metrics.ObjectTree) []Issue {
	var issues []Issue
	for _, m := range tree.Metrics() {
		meta := m.Meta()
		issues = append(issues, bugNumberIssues(meta.Identifier(), meta.Bugs)...)
	}
	for _, ping := range tree.Pings() {
		issues = append(issues, bugNumberIssues(ping.Name, ping.Bugs)...)
	}
	return issues
}

func bugNumberIssues(identifier string, bugs metrics.BugList) []Issue {
	var issues []Issue
	for _, bug := range bugs {
		if _, err := strconv.Atoi(bug); err != nil {
			continue
		}
		issues = append(issues, Issue{
			Identifier: identifier,
			Severity:   SeverityWarning,
			Rule:       RuleBugNumber,
			Message:    fmt.Sprintf("bug %s is a bare number", bug),
			Fix:        "Reference bugs by full URL so the tracker they live in stays unambiguous.",
		})
	}
	return issues
}

// checkCommonPrefixes flags categories where every metric name starts
// with the same snake_case words. The prefix belongs in the category
// name instead.
func checkCommonPrefixes(tree *metrics.ObjectTree) []Issue {
	var issues []Issue
	for _, category := range tree.MetricCategories() {
		names := tree.ObjectNames(category)
		if len(names) < 2 {
			continue
		}
		prefix := commonWordPrefix(names)
		if prefix == "" {
			continue
		}
		issues = append(issues, Issue{
			Identifier: category,
			Severity:   SeverityWarning,
			Rule:       RuleCommonPrefix,
			Message: fmt.Sprintf("all %d metrics in category %q share the prefix %q",
				len(names), category, prefix),
			Fix: "Fold the shared prefix into the category name and shorten the metric names.",
		})
	}
	return issues
}

// commonWordPrefix returns the longest run of leading snake_case words
// shared by every name, or "" when the names diverge on the first word.
func commonWordPrefix(names []string) string {
	words := strings.Split(names[0], "_")
	shared := len(words)
	for _, name := range names[1:] {
		other := strings.Split(name, "_")
		if len(other) < shared {
			shared = len(other)
		}
		for i := 0; i < shared; i++ {
			if words[i] != other[i] {
				shared = i
				break
			}
		}
		if shared == 0 {
			return ""
		}
	}
	return strings.Join(words[:shared], "_")
}

// unitWords maps the trailing name segments people reach for to the
// canonical unit that makes them redundant.
var unitWords = map[string]string{
	"nanosecond":   "nanosecond",
	"nanoseconds":  "nanosecond",
	"ns":           "nanosecond",
	"microsecond":  "microsecond",
	"microseconds": "microsecond",
	"us":           "microsecond",
	"millisecond":  "millisecond",
	"milliseconds": "millisecond",
	"ms":           "millisecond",
	"second":       "second",
	"seconds":      "second",
	"sec":          "second",
	"secs":         "second",
	"minute":       "minute",
	"minutes":      "minute",
	"min":          "minute",
	"mins":         "minute",
	"hour":         "hour",
	"hours":        "hour",
	"day":          "day",
	"days":         "day",
	"byte":         "byte",
	"bytes":        "byte",
	"kilobyte":     "kilobyte",
	"kilobytes":    "kilobyte",
	"kb":           "kilobyte",
	"megabyte":     "megabyte",
	"megabytes":    "megabyte",
	"mb":           "megabyte",
	"gigabyte":     "gigabyte",
	"gigabytes":    "gigabyte",
	"gb":           "gigabyte",
}

// checkUnitsInNames flags metric names whose last segment restates the
// unit the metric already declares. The unit field is authoritative and
// renaming the metric is cheaper before it ships.
func checkUnitsInNames(tree *metrics.ObjectTree) []Issue {
	var issues []Issue
	for _, m := range tree.Metrics() {
		meta := m.Meta()
		field, unit, ok := declaredUnit(m)
		if !ok {
			continue
		}
		segments := strings.Split(meta.Name, "_")
		last := segments[len(segments)-1]
		// Quantity units are free-form, so fall back to comparing the
		// segment against the declared unit directly.
		if unitWords[last] != unit && last != unit && strings.TrimSuffix(last, "s") != unit {
			continue
		}
		issues = append(issues, Issue{
			Identifier: meta.Identifier(),
			Severity:   SeverityWarning,
			Rule:       RuleUnitInName,
			Message: fmt.Sprintf("name ends in %q but %s already declares %q",
				last, field, unit),
			Fix: "Drop the unit suffix from the metric name.",
		})
	}
	return issues
}

// declaredUnit returns the unit field name and value a metric declares,
// if its type carries one.
func declaredUnit(m metrics.MetricObject) (field, unit string, ok bool) {
	switch v := m.(type) {
	case *metrics.Timespan:
		return "time_unit", v.TimeUnit.String(), true
	case *metrics.TimingDistribution:
		return "time_unit", v.TimeUnit.String(), true
	case *metrics.Datetime:
		return "time_unit", v.TimeUnit.String(), true
	case *metrics.MemoryDistribution:
		return "memory_unit", v.MemoryUnit.String(), true
	case *metrics.Quantity:
		if v.Unit == "" {
			return "", "", false
		}
		return "unit", v.Unit, true
	}
	return "", "", false
}
