package lint

// Severity indicates how seriously an issue should be taken.
type Severity int

const (
	// SeverityInfo is informational only.
	SeverityInfo Severity = iota
	// SeverityWarning should be fixed but does not block generation.
	SeverityWarning
	// SeverityError blocks code generation.
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a single finding against a registry.
type Issue struct {
	// Source is the input document the issue was found in, when known.
	Source string
	// Identifier is the dotted path of the offending object, for
	// example "browser.engagement.session_count".
	Identifier string
	// Severity of the issue.
	Severity Severity
	// Rule that produced the issue, for example "common-prefix".
	Rule string
	// Message is a short description of the problem.
	Message string
	// Explanation optionally expands on the message, possibly over
	// several lines.
	Explanation string
	// Fix suggests how to resolve the issue, when there is an
	// obvious resolution.
	Fix string
}

// Result holds all findings from a lint run.
type Result struct {
	// Issues found, in document order followed by advisory order.
	Issues []Issue
	// DocumentsTotal is the number of input documents scanned.
	DocumentsTotal int
}

// HasErrors returns true if any issue blocks generation.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-severity issues.
func (r *Result) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-severity issues.
func (r *Result) WarningCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

// ExitCode maps the result onto a process exit code: 2 when errors
// are present, 1 for warnings only, 0 for a clean registry.
func (r *Result) ExitCode() int {
	switch {
	case r.HasErrors():
		return 2
	case r.HasWarnings():
		return 1
	default:
		return 0
	}
}
