// Package lint reports problems in metric and ping registries. Parser
// findings carry over at error severity, and a handful of advisory
// rules run over whatever object tree the parse produced.
package lint

import (
	"strings"

	"github.com/probeforge/metricgen/internal/parser"
)

// Check folds a parse result into lint findings. documents is the
// number of input documents the parse covered.
func Check(parsed *parser.Result, documents int) *Result {
	result := &Result{DocumentsTotal: documents}
	for _, perr := range parsed.Errors {
		result.Issues = append(result.Issues, Issue{
			Source:      perr.Source,
			Identifier:  strings.Join(perr.Path, "."),
			Severity:    SeverityError,
			Rule:        perr.Kind.String(),
			Message:     perr.Message,
			Explanation: perr.Docs,
		})
	}
	result.Issues = append(result.Issues, adviseTree(parsed.Tree)...)
	return result
}
