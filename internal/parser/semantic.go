package parser

import (
	"fmt"
	"sort"
	"strings"
)

// geckoTypes are the metric types a gecko_datapoint may appear on.
var geckoTypes = map[string]struct{}{
	"timing_distribution": {},
	"custom_distribution": {},
	"memory_distribution": {},
	"quantity":            {},
}

// requiredParams lists type-specific parameters the schema keeps
// optional because they only apply to one metric type.
var requiredParams = map[string][]string{
	"custom_distribution": {"range_max", "bucket_count", "histogram_type"},
	"memory_distribution": {"memory_unit"},
	"quantity":            {"unit"},
}

// geckoOnlyTypes may only be used by metrics mirrored from Gecko.
var geckoOnlyTypes = map[string]struct{}{
	"custom_distribution": {},
	"quantity":            {},
}

// semanticMessages evaluates every cross-field rule for one
// structurally valid metric entry and returns all violations at once.
func semanticMessages(raw map[string]any, allowReserved bool) []string {
	var msgs []string

	metricType, _ := raw["type"].(string)
	_, hasGecko := raw["gecko_datapoint"]

	if metricType == "event" {
		if lifetime, ok := raw["lifetime"]; ok && lifetime != "ping" {
			msgs = append(msgs, "Event metrics must have ping lifetime.")
		}
	}

	if metricType == "use_counter" {
		if _, ok := raw["denominator"]; !ok {
			msgs = append(msgs, "denominator is required on all use_counter metrics.")
		}
	}

	if _, geckoOnly := geckoOnlyTypes[metricType]; geckoOnly && !hasGecko {
		msgs = append(msgs, fmt.Sprintf("`%s` is only allowed for Gecko metrics.", metricType))
	}

	if hasGecko {
		if _, ok := geckoTypes[metricType]; !ok {
			msgs = append(msgs, fmt.Sprintf(
				"`gecko_datapoint` is not allowed on `%s` metrics. It is only allowed on: %s.",
				metricType, strings.Join(sortedKeys(geckoTypes), ", ")))
		}
	}

	if params, ok := requiredParams[metricType]; ok {
		var missing []string
		for _, param := range params {
			if _, present := raw[param]; !present {
				missing = append(missing, param)
			}
		}
		switch {
		case len(missing) == 1:
			msgs = append(msgs, fmt.Sprintf(
				"`%s` is missing required parameter `%s`.", metricType, missing[0]))
		case len(missing) > 1:
			sort.Strings(missing)
			msgs = append(msgs, fmt.Sprintf(
				"`%s` is missing required parameters: %s.", metricType, strings.Join(missing, ", ")))
		}
	}

	if !allowReserved && sendsInAllPings(raw) {
		msgs = append(msgs, "Only internal metrics can specify all_pings in send_in_pings.")
	}

	return msgs
}

func sendsInAllPings(raw map[string]any) bool {
	pings, ok := raw["send_in_pings"].([]any)
	if !ok {
		return false
	}
	for _, ping := range pings {
		if ping == "all_pings" {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
