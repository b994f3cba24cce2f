package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter formats lint results for output.
type Formatter interface {
	Format(w io.Writer, result *Result, inputs string) error
}

// TextFormatter formats results as human-readable text.
type TextFormatter struct{}

// NewTextFormatter creates a text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format outputs results in human-readable text format. inputs names
// the documents that were linted.
func (f *TextFormatter) Format(w io.Writer, result *Result, inputs string) error {
	if _, err := fmt.Fprintf(w, "Linting registry inputs: %s\n", inputs); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("━", 60)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	// Issues arrive in document order with advisories last. Keep
	// that order so output is stable between runs.
	for _, issue := range result.Issues {
		if err := f.formatIssue(w, issue); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	// Summary
	if _, err := fmt.Fprintln(w, strings.Repeat("━", 60)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Results:\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  %d document%s scanned\n", result.DocumentsTotal, pluralize(result.DocumentsTotal)); err != nil {
		return err
	}

	errorCount := result.ErrorCount()
	warningCount := result.WarningCount()

	if errorCount > 0 {
		if _, err := fmt.Fprintf(w, "  %d error%s (blocks generation)\n", errorCount, pluralize(errorCount)); err != nil {
			return err
		}
	}
	if warningCount > 0 {
		if _, err := fmt.Fprintf(w, "  %d warning%s (should fix)\n", warningCount, pluralize(warningCount)); err != nil {
			return err
		}
	}

	infoCount := 0
	for _, issue := range result.Issues {
		if issue.Severity == SeverityInfo {
			infoCount++
		}
	}
	if infoCount > 0 {
		if _, err := fmt.Fprintf(w, "  %d info\n", infoCount); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if err := f.printFinalMessage(w, result); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return nil
}

// printFinalMessage prints the appropriate final message based on the result.
func (f *TextFormatter) printFinalMessage(w io.Writer, result *Result) error {
	if result.HasErrors() {
		return f.printMessages(w,
			"❌ Registry has errors that block code generation.",
			"   translate will refuse these inputs until they are fixed.")
	}
	if result.HasWarnings() {
		return f.printMessages(w,
			"⚠️  Registry has warnings. Consider fixing before commit.")
	}
	if len(result.Issues) > 0 {
		return f.printMessages(w, "ℹ️  All issues are informational.")
	}
	return f.printMessages(w, "✨ Registry passes linting!")
}

// printMessages prints multiple lines to the writer.
func (f *TextFormatter) printMessages(w io.Writer, messages ...string) error {
	for _, msg := range messages {
		if _, err := fmt.Fprintln(w, msg); err != nil {
			return err
		}
	}
	return nil
}

// formatIssue formats a single issue.
func (f *TextFormatter) formatIssue(w io.Writer, issue Issue) error {
	var icon string
	switch issue.Severity {
	case SeverityError:
		icon = "✗"
	case SeverityWarning:
		icon = "⚠"
	case SeverityInfo:
		icon = "ℹ"
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", icon, issueLocation(issue)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  %s [%s]: %s\n", issue.Severity, issue.Rule, issue.Message); err != nil {
		return err
	}

	if issue.Explanation != "" {
		for _, line := range strings.Split(strings.TrimSpace(issue.Explanation), "\n") {
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
	}

	if issue.Fix != "" {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  Fix: %s\n", issue.Fix); err != nil {
			return err
		}
	}

	return nil
}

// issueLocation renders where an issue points: the source document,
// the object identifier inside it, or both.
func issueLocation(issue Issue) string {
	switch {
	case issue.Source != "" && issue.Identifier != "":
		return issue.Source + ": " + issue.Identifier
	case issue.Source != "":
		return issue.Source
	case issue.Identifier != "":
		return issue.Identifier
	default:
		return "registry"
	}
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	Inputs         string      `json:"inputs"`
	DocumentsTotal int         `json:"documents_total"`
	ErrorCount     int         `json:"error_count"`
	WarningCount   int         `json:"warning_count"`
	InfoCount      int         `json:"info_count"`
	Issues         []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	Source      string `json:"source,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	Severity    string `json:"severity"`
	Rule        string `json:"rule"`
	Message     string `json:"message"`
	Explanation string `json:"explanation,omitempty"`
	Fix         string `json:"fix,omitempty"`
}

// Format outputs results in JSON format.
func (f *JSONFormatter) Format(w io.Writer, result *Result, inputs string) error {
	output := JSONOutput{
		Inputs:         inputs,
		DocumentsTotal: result.DocumentsTotal,
		ErrorCount:     result.ErrorCount(),
		WarningCount:   result.WarningCount(),
	}

	for _, issue := range result.Issues {
		if issue.Severity == SeverityInfo {
			output.InfoCount++
		}

		output.Issues = append(output.Issues, JSONIssue{
			Source:      issue.Source,
			Identifier:  issue.Identifier,
			Severity:    issue.Severity.String(),
			Rule:        issue.Rule,
			Message:     issue.Message,
			Explanation: issue.Explanation,
			Fix:         issue.Fix,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// NewFormatter creates the appropriate formatter based on format string.
func NewFormatter(format string) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	default:
		return NewTextFormatter()
	}
}

// pluralize returns "s" if count != 1, otherwise empty string.
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
