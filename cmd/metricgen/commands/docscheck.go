package commands

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/docverify"
)

// DocscheckCmd implements the 'docscheck' command.
type DocscheckCmd struct {
	Path string `arg:"" optional:"" help:"Markdown file or directory to check. Defaults to the configured output directory."`
}

func (d *DocscheckCmd) Run(_ *Global, root *CLI) error {
	path := d.Path
	if path == "" {
		cfg, err := config.Load(root.Config)
		if err != nil {
			return fmt.Errorf("no path on the command line and no usable configuration: %w", err)
		}
		path = cfg.Output.Directory
	}
	return RunDocscheck(path, os.Stdout)
}

// RunDocscheck verifies fragment links in the markdown under path,
// which may be a single file or a directory tree. Every broken link is
// printed and any broken link fails the run.
func RunDocscheck(path string, w io.Writer) error {
	files, err := markdownFiles(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no markdown files under %s", path)
	}

	broken := 0
	for _, file := range files {
		rep, err := docverify.VerifyFile(file)
		if err != nil {
			return fmt.Errorf("verify %s: %w", file, err)
		}
		if rep.Ok() {
			fmt.Fprintf(w, "%s: %d links, %d anchors, all fragments resolve\n",
				file, len(rep.Links), len(rep.Anchors))
			continue
		}
		for _, link := range rep.Broken {
			fmt.Fprintf(w, "%s: broken fragment link '#%s' (%q)\n", file, link.Fragment, link.Text)
		}
		broken += len(rep.Broken)
	}

	if broken > 0 {
		return fmt.Errorf("found %d broken fragment link%s", broken, pluralSuffix(broken))
	}
	return nil
}

// markdownFiles expands path into the markdown files it covers.
func markdownFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".md") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
