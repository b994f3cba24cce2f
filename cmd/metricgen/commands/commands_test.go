package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/report"
)

const validMetrics = `---
$schema: moz://mozilla.org/schemas/glean/metrics/1-0-0

session:
  count:
    type: counter
    description: |
      Number of sessions the user started.
    bugs:
      - https://bugzilla.mozilla.org/show_bug.cgi?id=1234567
    data_reviews:
      - https://example.com/review/1
    notification_emails:
      - telemetry@example.com
    expires: never
    lifetime: ping
`

const bareNumberBugs = `---
$schema: moz://mozilla.org/schemas/glean/metrics/1-0-0

session:
  count:
    type: counter
    description: |
      Number of sessions the user started.
    bugs:
      - 1234567
    data_reviews:
      - https://example.com/review/1
    notification_emails:
      - telemetry@example.com
    expires: never
    lifetime: ping
`

const brokenMetrics = `---
$schema: moz://mozilla.org/schemas/glean/metrics/1-0-0

session:
  count:
    type: counter
`

func writeRegistry(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunTranslate(t *testing.T) {
	t.Run("renders requested formats", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", validMetrics)
		outDir := filepath.Join(dir, "generated")

		err := RunTranslate(TranslateRun{
			Inputs:    []string{input},
			Formats:   []string{"kotlin", "markdown"},
			OutputDir: outDir,
		})
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(outDir, "metrics.md"))

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(entries), 2)
	})

	t.Run("validation failure writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", brokenMetrics)
		outDir := filepath.Join(dir, "generated")

		err := RunTranslate(TranslateRun{
			Inputs:    []string{input},
			Formats:   []string{"kotlin"},
			OutputDir: outDir,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry validation failed")

		_, statErr := os.Stat(outDir)
		assert.True(t, os.IsNotExist(statErr), "output directory must not exist after a failed run")
	})

	t.Run("writes build report on request", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", validMetrics)
		outDir := filepath.Join(dir, "generated")

		err := RunTranslate(TranslateRun{
			Inputs:      []string{input},
			Formats:     []string{"markdown"},
			OutputDir:   outDir,
			WriteReport: true,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(outDir, report.FileName))
		require.NoError(t, err)
		rep, err := report.FromJSON(data)
		require.NoError(t, err)
		assert.Equal(t, report.StatusSuccess, rep.Status)
		assert.Len(t, rep.Inputs, 1)
		assert.NotEmpty(t, rep.Outputs)
	})

	t.Run("no inputs", func(t *testing.T) {
		err := RunTranslate(TranslateRun{Formats: []string{"kotlin"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no registry inputs")
	})
}

func TestRunLint(t *testing.T) {
	t.Run("clean registry", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", validMetrics)

		var buf bytes.Buffer
		result, err := RunLint([]string{input}, false, false, "text", &buf)
		require.NoError(t, err)
		assert.Equal(t, 0, result.ExitCode())
		assert.Contains(t, buf.String(), "Linting registry inputs")
	})

	t.Run("bare bug numbers warn", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", bareNumberBugs)

		var buf bytes.Buffer
		result, err := RunLint([]string{input}, false, false, "text", &buf)
		require.NoError(t, err)
		assert.Equal(t, 1, result.ExitCode())
		assert.Contains(t, buf.String(), "bare number")
	})

	t.Run("quiet drops warnings", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", bareNumberBugs)

		var buf bytes.Buffer
		result, err := RunLint([]string{input}, false, true, "text", &buf)
		require.NoError(t, err)
		assert.Equal(t, 0, result.ExitCode())
		assert.NotContains(t, buf.String(), "bare number")
	})

	t.Run("defects are errors", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", brokenMetrics)

		var buf bytes.Buffer
		result, err := RunLint([]string{input}, false, false, "text", &buf)
		require.NoError(t, err)
		assert.Equal(t, 2, result.ExitCode())
	})

	t.Run("json output", func(t *testing.T) {
		dir := t.TempDir()
		input := writeRegistry(t, dir, "metrics.yaml", bareNumberBugs)

		var buf bytes.Buffer
		_, err := RunLint([]string{input}, false, false, "json", &buf)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
		assert.EqualValues(t, 1, payload["warning_count"])
	})

	t.Run("no inputs", func(t *testing.T) {
		_, err := RunLint(nil, false, false, "text", os.Stdout)
		require.Error(t, err)
	})
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, config.DefaultFile)

	require.NoError(t, RunInit(configPath, false))
	assert.FileExists(t, configPath)
	assert.FileExists(t, filepath.Join(dir, "metrics.yaml"))
	assert.FileExists(t, filepath.Join(dir, "pings.yaml"))

	t.Run("starter registries translate cleanly", func(t *testing.T) {
		err := RunTranslate(TranslateRun{
			Inputs: []string{
				filepath.Join(dir, "metrics.yaml"),
				filepath.Join(dir, "pings.yaml"),
			},
			Formats:   []string{"kotlin", "swift", "markdown"},
			OutputDir: filepath.Join(dir, "generated"),
		})
		require.NoError(t, err)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := RunInit(configPath, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		require.NoError(t, RunInit(configPath, true))
	})
}

func TestRunDocscheck(t *testing.T) {
	t.Run("clean document", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "metrics.md")
		doc := "# Metrics\n\n## Session\n\nSee [session](#session).\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		var buf bytes.Buffer
		require.NoError(t, RunDocscheck(path, &buf))
		assert.Contains(t, buf.String(), "all fragments resolve")
	})

	t.Run("broken fragment fails", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "metrics.md")
		doc := "# Metrics\n\nSee [missing](#missing-section).\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		var buf bytes.Buffer
		err := RunDocscheck(path, &buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 broken fragment link")
		assert.Contains(t, buf.String(), "#missing-section")
	})

	t.Run("walks directories", func(t *testing.T) {
		dir := t.TempDir()
		good := "# Docs\n\n## Usage\n\n[usage](#usage)\n"
		bad := "# Docs\n\n[nowhere](#nowhere)\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "good.md"), []byte(good), 0o644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "bad.md"), []byte(bad), 0o644))

		var buf bytes.Buffer
		err := RunDocscheck(dir, &buf)
		require.Error(t, err)
		assert.Contains(t, buf.String(), "#nowhere")
	})

	t.Run("nothing to check", func(t *testing.T) {
		dir := t.TempDir()
		var buf bytes.Buffer
		err := RunDocscheck(dir, &buf)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no markdown files")
	})
}

// seedOriginRepo builds a bare repository holding the given files so
// clone tests never leave the local filesystem.
func seedOriginRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	base := t.TempDir()
	barePath := filepath.Join(base, "origin.git")
	_, err := git.PlainInit(barePath, true)
	require.NoError(t, err)

	seedPath := filepath.Join(base, "seed")
	seed, err := git.PlainInit(seedPath, false)
	require.NoError(t, err)
	_, err = seed.CreateRemote(&gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{barePath},
	})
	require.NoError(t, err)

	wt, err := seed.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		full := filepath.Join(seedPath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	_, err = wt.Commit("registry", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))

	return barePath
}

func TestRunDiscover(t *testing.T) {
	t.Run("no repositories", func(t *testing.T) {
		err := RunDiscover(t.Context(), &config.Config{}, "", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no repositories configured")
	})

	t.Run("unknown repository name", func(t *testing.T) {
		cfg := &config.Config{
			Repositories: []config.Repository{{Name: "product", URL: "https://example.com/r.git"}},
		}
		err := RunDiscover(t.Context(), cfg, "missing", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found in configuration")
	})

	t.Run("clones and translates", func(t *testing.T) {
		barePath := seedOriginRepo(t, map[string]string{
			"metrics.yaml": validMetrics,
		})
		outDir := filepath.Join(t.TempDir(), "generated")
		cfg := &config.Config{
			Repositories: []config.Repository{{
				Name:   "product",
				URL:    barePath,
				Branch: "master",
				Paths:  []string{"metrics.yaml"},
			}},
			Output: config.OutputConfig{
				Directory: outDir,
				Formats:   []string{"markdown"},
			},
		}

		require.NoError(t, RunDiscover(t.Context(), cfg, "", false))

		data, err := os.ReadFile(filepath.Join(outDir, "metrics.md"))
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "session"), "generated docs should mention the category")
	})
}
