package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/probeforge/metricgen/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing files"`
	Output string `short:"o" name:"output" help:"Directory to scaffold into (defaults to the working directory)"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, config.DefaultFile), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

const starterMetrics = `# Metric definitions for this project. Run ` + "`metricgen translate`" + `
# to generate code from this file.
$schema: moz://mozilla.org/schemas/glean/metrics/1-0-0

app:
  launch_count:
    type: counter
    description: |
      How often the application was launched.
    bugs:
      - https://bugzilla.mozilla.org/show_bug.cgi?id=1234567
    data_reviews:
      - https://example.com/reviews/1
    notification_emails:
      - telemetry@example.com
    expires: never
`

const starterPings = `# Ping definitions for this project.
$schema: moz://mozilla.org/schemas/glean/pings/1-0-0

prototype:
  description: |
    A ping sent while prototyping new instrumentation.
  include_client_id: true
  bugs:
    - https://bugzilla.mozilla.org/show_bug.cgi?id=1234567
  data_reviews:
    - https://example.com/reviews/1
  notification_emails:
    - telemetry@example.com
`

// RunInit scaffolds a configuration file plus starter metric and ping
// registries next to it, enough for an immediate first translate run.
func RunInit(configPath string, force bool) error {
	// Provide friendly user-facing messages on stdout for CLI integration tests.
	fmt.Println("Initializing metricgen project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}

	dir := filepath.Dir(configPath)
	starters := []struct {
		name string
		body string
	}{
		{"metrics.yaml", starterMetrics},
		{"pings.yaml", starterPings},
	}
	for _, starter := range starters {
		path := filepath.Join(dir, starter.name)
		if _, err := os.Stat(path); err == nil && !force {
			fmt.Printf("Keeping existing %s\n", path)
			continue
		}
		// #nosec G306 -- scaffolded registries are meant to be user editable
		if err := os.WriteFile(path, []byte(starter.body), 0o644); err != nil {
			return fmt.Errorf("write starter registry: %w", err)
		}
		fmt.Printf("Writing starter registry %s\n", path)
	}

	fmt.Println("initialized successfully")
	return nil
}
