package translate

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Registry identifiers are snake_case with optional dotted segments.
// Generated code wants CamelCase type and file names and camelCase
// value names, so both casings split on the same separator set.
func splitWords(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '.' || r == '-'
	})
}

// Camelize converts a registry identifier to CamelCase with an upper
// case first letter: "core_ping" becomes "CorePing", "glean.baseline"
// becomes "GleanBaseline".
func Camelize(name string) string {
	// A cases.Caser is stateful, so build one per call instead of
	// sharing a package-level instance.
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, word := range splitWords(name) {
		b.WriteString(caser.String(word))
	}
	return b.String()
}

// camelize converts a registry identifier to camelCase with a lower
// case first letter: "session_duration" becomes "sessionDuration".
func camelize(name string) string {
	camel := Camelize(name)
	if camel == "" {
		return ""
	}
	return strings.ToLower(camel[:1]) + camel[1:]
}
