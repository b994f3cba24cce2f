package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/lint"
	"github.com/probeforge/metricgen/internal/logfields"
)

// LintCmd implements the 'lint' command.
type LintCmd struct {
	Inputs        []string `arg:"" optional:"" type:"existingfile" help:"Registry files to lint. Defaults to the inputs configured in the configuration file."`
	Format        string   `short:"f" default:"text" enum:"text,json" help:"Output format (text or json)"`
	Quiet         bool     `short:"q" help:"Quiet mode: only show errors, suppress warnings"`
	AllowReserved bool     `help:"Permit names and targets reserved for internal metrics"`
}

func (l *LintCmd) Run(_ *Global, root *CLI) error {
	inputs := l.Inputs
	if len(inputs) == 0 {
		cfg, err := config.Load(root.Config)
		if err != nil {
			return fmt.Errorf("no registry inputs on the command line and no usable configuration: %w", err)
		}
		inputs = cfg.Inputs
		slog.Info("Using inputs from configuration", logfields.Files(len(inputs)))
	}

	result, err := RunLint(inputs, l.AllowReserved, l.Quiet, l.Format, os.Stdout)
	if err != nil {
		return err
	}
	if code := result.ExitCode(); code != 0 {
		os.Exit(code)
	}
	return nil
}

// RunLint parses the inputs and formats every finding onto w. With
// quiet set, warnings are dropped from both the output and the
// returned result so only errors affect the exit code.
func RunLint(inputs []string, allowReserved, quiet bool, format string, w io.Writer) (*lint.Result, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no registry inputs")
	}

	parsed, err := parseRegistries(inputs, allowReserved)
	if err != nil {
		return nil, err
	}

	result := lint.Check(parsed, len(inputs))
	if quiet {
		errorsOnly := &lint.Result{DocumentsTotal: result.DocumentsTotal}
		for _, issue := range result.Issues {
			if issue.Severity == lint.SeverityError {
				errorsOnly.Issues = append(errorsOnly.Issues, issue)
			}
		}
		result = errorsOnly
	}

	formatter := lint.NewFormatter(format)
	if err := formatter.Format(w, result, strings.Join(inputs, ", ")); err != nil {
		return nil, fmt.Errorf("formatting output: %w", err)
	}
	return result, nil
}
