package parser

import (
	"fmt"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
)

// ErrorKind classifies a single validation finding.
type ErrorKind int

const (
	// KindSchemaViolation covers structural failures against the
	// registry schema, including an unknown $schema key.
	KindSchemaViolation ErrorKind = iota
	// KindNameViolation covers category, metric, ping, label and extra
	// key names that break the naming rules.
	KindNameViolation
	// KindReservedNameViolation covers names reserved for internal use.
	KindReservedNameViolation
	// KindSemanticRuleViolation covers cross-field rules a structurally
	// valid entry can still break.
	KindSemanticRuleViolation
	// KindDuplicateDefinition covers the same object defined twice
	// across the merged inputs.
	KindDuplicateDefinition
	// KindUnknownConstructorTag covers type discriminators and document
	// tags no constructor is registered for.
	KindUnknownConstructorTag
	// KindEmptyDocument covers inputs with no content at all.
	KindEmptyDocument
	// KindMalformedDocument covers inputs that cannot be read or
	// decoded in the first place.
	KindMalformedDocument
)

func (k ErrorKind) String() string {
	switch k {
	case KindSchemaViolation:
		return "schema-violation"
	case KindNameViolation:
		return "name-violation"
	case KindReservedNameViolation:
		return "reserved-name"
	case KindSemanticRuleViolation:
		return "semantic-rule"
	case KindDuplicateDefinition:
		return "duplicate-definition"
	case KindUnknownConstructorTag:
		return "unknown-constructor-tag"
	case KindEmptyDocument:
		return "empty-document"
	case KindMalformedDocument:
		return "malformed-document"
	default:
		return "unknown"
	}
}

// ParseError is one finding against one input document. Findings are
// collected, never raised, so a single run surfaces every defect.
type ParseError struct {
	// Source names the input the finding belongs to: a file path or an
	// inline document name.
	Source string
	// Kind classifies the finding.
	Kind ErrorKind
	// Path locates the offending node inside the document. Empty for
	// document-level findings.
	Path []string
	// Message describes the violated rule.
	Message string
	// Docs carries the schema documentation excerpt for the node, when
	// one applies.
	Docs string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Source != "" {
		b.WriteString(e.Source)
		b.WriteString(": ")
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, "On instance %s: ", strings.Join(e.Path, "."))
	}
	b.WriteString(e.Message)
	if e.Docs != "" {
		b.WriteString("\n\nDocumentation for this node:\n")
		b.WriteString(indent(e.Docs, "    "))
	}
	return b.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// Result carries every finding plus the merged object tree. The tree is
// complete for entries without structural failures; the caller decides
// whether any error aborts downstream generation.
type Result struct {
	Errors []*ParseError
	Tree   *metrics.ObjectTree
}

// HasErrors reports whether any finding was collected.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// ErrorStrings renders every finding, in collection order.
func (r *Result) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}
