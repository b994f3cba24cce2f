package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/logfields"
	"github.com/probeforge/metricgen/internal/report"
	"github.com/probeforge/metricgen/internal/translate"
)

// TranslateCmd implements the 'translate' command.
type TranslateCmd struct {
	Inputs         []string `arg:"" optional:"" type:"existingfile" help:"Registry files (metrics.yaml, pings.yaml). Defaults to the inputs configured in the configuration file."`
	Format         string   `short:"f" default:"kotlin" enum:"kotlin,swift,markdown" help:"Output format (kotlin, swift or markdown)"`
	Output         string   `short:"o" default:"./generated" help:"Output directory for generated files"`
	AllowReserved  bool     `help:"Permit names and targets reserved for internal metrics"`
	Namespace      string   `help:"Package namespace declared in generated files"`
	GleanNamespace string   `name:"glean-namespace" help:"Namespace the glean runtime types are imported from"`
	Report         bool     `help:"Write a build report into the output directory"`
}

func (t *TranslateCmd) Run(_ *Global, root *CLI) error {
	inputs := t.Inputs
	if len(inputs) == 0 {
		cfg, err := config.Load(root.Config)
		if err != nil {
			return fmt.Errorf("no registry inputs on the command line and no usable configuration: %w", err)
		}
		inputs = cfg.Inputs
		slog.Info("Using inputs from configuration", logfields.Files(len(inputs)))
	}
	return RunTranslate(TranslateRun{
		Inputs:         inputs,
		Formats:        []string{t.Format},
		OutputDir:      t.Output,
		AllowReserved:  t.AllowReserved,
		Namespace:      t.Namespace,
		GleanNamespace: t.GleanNamespace,
		WriteReport:    t.Report,
	})
}

// TranslateRun describes one generation pass over a set of registry
// files.
type TranslateRun struct {
	Inputs         []string
	Formats        []string
	OutputDir      string
	AllowReserved  bool
	Namespace      string
	GleanNamespace string
	WriteReport    bool
}

// RunTranslate parses the registry inputs and renders every requested
// format. When validation fails each defect is printed on stderr and
// nothing is written.
func RunTranslate(run TranslateRun) error {
	if len(run.Inputs) == 0 {
		return errors.New("no registry inputs")
	}

	result, err := parseRegistries(run.Inputs, run.AllowReserved)
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		for _, perr := range result.Errors {
			fmt.Fprintln(os.Stderr, perr.Error())
		}
		return fmt.Errorf("registry validation failed (%d errors)", len(result.Errors))
	}

	topts := translate.Options{
		Namespace:      run.Namespace,
		GleanNamespace: run.GleanNamespace,
	}

	var rep *report.RunReport
	if run.WriteReport {
		rep = report.Begin(strings.Join(run.Formats, ","))
		for _, input := range run.Inputs {
			if err := rep.AddInputFile(input); err != nil {
				return fmt.Errorf("hash input %s: %w", input, err)
			}
		}
		if err := rep.SetOptions(topts); err != nil {
			slog.Warn("Could not hash options", logfields.Error(err))
		}
	}

	total := 0
	for _, format := range run.Formats {
		files, err := translate.Translate(result.Tree, format, run.OutputDir, topts)
		if err != nil {
			return err
		}
		total += len(files)
		for _, file := range files {
			if rep != nil {
				if err := rep.AddOutput(file); err != nil {
					slog.Warn("Could not record output", logfields.Path(file), logfields.Error(err))
				}
			}
		}
		slog.Info("Generated output",
			logfields.Format(format),
			logfields.Files(len(files)))
	}

	if rep != nil {
		rep.Finish(0)
		path, err := rep.Write(run.OutputDir)
		if err != nil {
			return fmt.Errorf("write build report: %w", err)
		}
		slog.Info("Build report written", logfields.Path(path))
	}

	fmt.Printf("Generated %d file%s into %s\n", total, pluralSuffix(total), run.OutputDir)
	return nil
}

// pluralSuffix returns "s" if count != 1, otherwise empty string.
func pluralSuffix(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
