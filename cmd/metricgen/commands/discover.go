package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/gitsource"
	"github.com/probeforge/metricgen/internal/logfields"
	"github.com/probeforge/metricgen/internal/workspace"
)

// DiscoverCmd implements the 'discover' command.
type DiscoverCmd struct {
	Repository string `short:"r" help:"Specific repository to process (optional)"`
	Report     bool   `help:"Write a build report into the output directory"`
}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return RunDiscover(context.Background(), cfg, d.Repository, d.Report)
}

// RunDiscover clones every configured repository into an ephemeral
// workspace, collects the registry files they carry and translates the
// union with the configured formats.
func RunDiscover(ctx context.Context, cfg *config.Config, specificRepo string, writeReport bool) error {
	if len(cfg.Repositories) == 0 {
		return errors.New("no repositories configured")
	}

	repos := cfg.Repositories
	if specificRepo != "" {
		repos = nil
		for _, repo := range cfg.Repositories {
			if repo.Name == specificRepo {
				repos = []config.Repository{repo}
				break
			}
		}
		if len(repos) == 0 {
			return fmt.Errorf("repository '%s' not found in configuration", specificRepo)
		}
	}

	slog.Info("Starting registry discovery", slog.Int("repositories", len(repos)))

	wsManager := workspace.NewManager("")
	if err := wsManager.Create(); err != nil {
		return err
	}
	defer func() {
		if err := wsManager.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup workspace", logfields.Error(err))
		}
	}()

	client := gitsource.NewClient(wsManager.Path())
	files, err := client.Discover(ctx, repos)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("No registry files found in any repository")
		return nil
	}
	slog.Info("Discovery completed", logfields.Files(len(files)))

	return RunTranslate(TranslateRun{
		Inputs:         files,
		Formats:        cfg.Output.Formats,
		OutputDir:      cfg.Output.Directory,
		AllowReserved:  cfg.Options.AllowReserved,
		Namespace:      cfg.Options.Namespace,
		GleanNamespace: cfg.Options.GleanNamespace,
		WriteReport:    writeReport,
	})
}
