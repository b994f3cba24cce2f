package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/probeforge/metricgen/internal/parser"
	"github.com/probeforge/metricgen/internal/schema"
)

// Global carries state shared by subcommands if we need more than
// logging later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"metricgen.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Translate TranslateCmd `cmd:"" help:"Generate metric and ping APIs from registry files"`
	Lint      LintCmd      `cmd:"" help:"Validate registry files without generating code"`
	Init      InitCmd      `cmd:"" help:"Initialize a configuration file and starter registry"`
	Discover  DiscoverCmd  `cmd:"" help:"Clone configured repositories and translate their registries"`
	Docscheck DocscheckCmd `cmd:"" help:"Check fragment links in generated markdown docs"`
	Watch     WatchCmd     `cmd:"" help:"Watch registry files and regenerate on change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// parseRegistries loads the embedded schemas and runs the full parse
// over the given registry files.
func parseRegistries(inputs []string, allowReserved bool) (*parser.Result, error) {
	set, err := schema.Load()
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	return parser.ParseFiles(set, inputs, parser.Options{AllowReserved: allowReserved}), nil
}
