package main

import (
	"github.com/alecthomas/kong"

	"github.com/probeforge/metricgen/cmd/metricgen/commands"
	"github.com/probeforge/metricgen/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("metricgen"),
		kong.Description("Generate metric and ping APIs from YAML registries."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	ctx.FatalIfErrorf(ctx.Run(&commands.Global{}))
}
