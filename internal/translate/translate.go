// Package translate renders a parsed object tree into per-language
// source files. Each target language registers an Outputter; the
// orchestration, file writing and template plumbing are shared.
package translate

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/probeforge/metricgen/internal/metrics"
)

// Options adjust the generated output. The zero value is usable;
// unset fields fall back to per-language defaults.
type Options struct {
	// Namespace is the package namespace declared at the top of every
	// generated file. Defaults to "GleanMetrics".
	Namespace string

	// GleanNamespace is the namespace the shared runtime types are
	// imported from. The default depends on the target language.
	GleanNamespace string
}

func (o Options) namespace() string {
	if o.Namespace == "" {
		return "GleanMetrics"
	}
	return o.Namespace
}

// Outputter renders one target language.
type Outputter interface {
	// Name is the format name used on the command line.
	Name() string

	// Output walks the tree and writes the generated files under
	// outDir, returning the paths written.
	Output(tree *metrics.ObjectTree, outDir string, opts Options) ([]string, error)
}

// Registry maps format names to outputters.
type Registry struct {
	outputters map[string]Outputter
}

// NewRegistry creates an empty outputter registry.
func NewRegistry() *Registry {
	return &Registry{outputters: make(map[string]Outputter)}
}

// Register adds an outputter. Registering the same format twice is a
// programmer error.
func (r *Registry) Register(out Outputter) error {
	name := out.Name()
	if _, exists := r.outputters[name]; exists {
		return fmt.Errorf("outputter %q already registered", name)
	}
	r.outputters[name] = out
	return nil
}

// ForName returns the outputter for a format name.
func (r *Registry) ForName(name string) (Outputter, error) {
	out, ok := r.outputters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q; known formats: %s",
			name, strings.Join(r.Formats(), ", "))
	}
	return out, nil
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.outputters))
	for name := range r.outputters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with every built-in outputter.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, out := range []Outputter{
		&KotlinOutputter{},
		&SwiftOutputter{},
		&MarkdownOutputter{},
	} {
		if err := r.Register(out); err != nil {
			panic(err)
		}
	}
	return r
}

// Translate renders the tree in the named format into outDir, creating
// the directory first. It returns the written file paths.
func Translate(tree *metrics.ObjectTree, format, outDir string, opts Options) ([]string, error) {
	out, err := DefaultRegistry().ForName(format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	files, err := out.Output(tree, outDir, opts)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	slog.Debug("Rendered object tree",
		slog.String("format", format),
		slog.Int("files", len(files)))
	return files, nil
}

//go:embed templates/*.tmpl
var templateFS embed.FS

// mustTemplate loads an embedded template by base name. Missing
// embedded templates are a programmer error.
func mustTemplate(name string, funcs template.FuncMap) *template.Template {
	body, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded template missing: %s: %v", name, err))
	}
	tpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(body))
	if err != nil {
		panic(fmt.Sprintf("embedded template invalid: %s: %v", name, err))
	}
	return tpl
}

// renderFile executes the template and writes the result, normalized
// to end in exactly one trailing newline.
func renderFile(tpl *template.Template, data any, path string) error {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render template %s: %w", tpl.Name(), err)
	}
	content := strings.TrimRight(buf.String(), "\n") + "\n"
	// #nosec G306 -- generated source files are public content
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func outputPath(outDir, category, ext string) string {
	return filepath.Join(outDir, Camelize(category)+ext)
}
