package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
)

// Naming bounds for registry identifiers. Categories may nest with
// dots, everything else is a single snake_case segment.
const (
	maxCategoryNameLen = 40
	maxNameLen         = 30
)

var snakeSegment = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func isSnakeCase(name string) bool {
	return snakeSegment.MatchString(name)
}

func isDottedSnakeCase(name string) bool {
	if name == "" {
		return false
	}
	for _, segment := range strings.Split(name, ".") {
		if !isSnakeCase(segment) {
			return false
		}
	}
	return true
}

// checkCategoryName returns one message covering every way the name can
// be wrong, or "" when the name conforms.
func checkCategoryName(name string) string {
	if !isDottedSnakeCase(name) || len(name) > maxCategoryNameLen {
		return fmt.Sprintf(
			"Category name '%s' is invalid. It must be dotted snake_case and no more than %d characters.",
			name, maxCategoryNameLen)
	}
	return ""
}

func checkMetricName(name string) string {
	if !isSnakeCase(name) || len(name) > maxNameLen {
		return fmt.Sprintf(
			"Metric name '%s' is invalid. It must be snake_case and no more than %d characters.",
			name, maxNameLen)
	}
	return ""
}

func checkPingName(name string) string {
	if !isSnakeCase(name) || len(name) > maxNameLen {
		return fmt.Sprintf(
			"Ping name '%s' is invalid. It must be snake_case and no more than %d characters.",
			name, maxNameLen)
	}
	return ""
}

func checkLabelName(label string) string {
	if !isSnakeCase(label) || len(label) > maxNameLen {
		return fmt.Sprintf(
			"Label '%s' is invalid. Labels must be snake_case and no more than %d characters.",
			label, maxNameLen)
	}
	return ""
}

func checkExtraKeyName(key string) string {
	if !isSnakeCase(key) || len(key) > maxNameLen {
		return fmt.Sprintf(
			"Extra key '%s' is invalid. Extra keys must be snake_case and no more than %d characters.",
			key, maxNameLen)
	}
	return ""
}

// checkReservedCategory guards the category namespaces the pipeline
// itself claims. The pings bucket clash is structural and is rejected
// even for internal metrics.
func checkReservedCategory(category string, allowReserved bool) (string, bool) {
	if category == metrics.PingsCategory {
		return fmt.Sprintf(
			"Category name '%s' is reserved for pings and can not hold metrics.",
			category), true
	}
	if allowReserved {
		return "", false
	}
	if strings.SplitN(category, ".", 2)[0] == "glean" {
		return fmt.Sprintf(
			"For category '%s': categories beginning with 'glean' are reserved for Glean internal use.",
			category), true
	}
	return "", false
}

func checkReservedPingName(name string, allowReserved bool) (string, bool) {
	if allowReserved {
		return "", false
	}
	for _, reserved := range metrics.ReservedPingNames {
		if name == reserved {
			return fmt.Sprintf(
				"The name '%s' is reserved and is not allowed for user-defined pings.",
				name), true
		}
	}
	return "", false
}
