package translate

import (
	"path/filepath"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
)

// MarkdownOutputter renders the whole tree into a single reference
// document, metrics.md.
type MarkdownOutputter struct{}

func (*MarkdownOutputter) Name() string { return "markdown" }

func (o *MarkdownOutputter) Output(tree *metrics.ObjectTree, outDir string, opts Options) ([]string, error) {
	tpl := mustTemplate("markdown.md.tmpl", nil)
	path := filepath.Join(outDir, "metrics.md")
	if err := renderFile(tpl, buildMarkdownDoc(tree), path); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

type markdownDoc struct {
	TOC        []markdownTOCEntry
	Categories []markdownCategory
	Pings      []markdownPing
}

type markdownTOCEntry struct {
	Title  string
	Anchor string
}

type markdownCategory struct {
	Name    string
	Metrics []markdownMetric
}

type markdownMetric struct {
	Identifier  string
	Description string
	Properties  []markdownProperty
}

type markdownProperty struct {
	Name  string
	Value string
}

type markdownPing struct {
	Name        string
	Description string
	Properties  []markdownProperty
}

func buildMarkdownDoc(tree *metrics.ObjectTree) markdownDoc {
	var doc markdownDoc
	for _, category := range tree.MetricCategories() {
		cat := markdownCategory{Name: category}
		for _, obj := range tree.Objects(category) {
			m, ok := obj.(metrics.MetricObject)
			if !ok {
				continue
			}
			cat.Metrics = append(cat.Metrics, markdownMetric{
				Identifier:  m.Meta().Identifier(),
				Description: strings.TrimRight(m.Meta().Description, "\n"),
				Properties:  metricProperties(m),
			})
		}
		doc.Categories = append(doc.Categories, cat)
		doc.TOC = append(doc.TOC, markdownTOCEntry{Title: category, Anchor: anchor(category)})
	}
	if pings := tree.Pings(); len(pings) > 0 {
		doc.TOC = append(doc.TOC, markdownTOCEntry{Title: "Pings", Anchor: "pings"})
		for _, ping := range pings {
			doc.Pings = append(doc.Pings, markdownPing{
				Name:        ping.Name,
				Description: strings.TrimRight(ping.Description, "\n"),
				Properties:  pingProperties(ping),
			})
		}
	}
	return doc
}

func metricProperties(m metrics.MetricObject) []markdownProperty {
	meta := m.Meta()
	props := []markdownProperty{
		{Name: "Type", Value: code(meta.Type)},
		{Name: "Lifetime", Value: code(meta.Lifetime.String())},
		{Name: "Sent in pings", Value: codeList(meta.SendInPings)},
		{Name: "Expires", Value: meta.Expires},
	}
	if meta.Disabled {
		props = append(props, markdownProperty{Name: "Disabled", Value: "true"})
	}
	if len(meta.Labels) > 0 {
		props = append(props, markdownProperty{Name: "Labels", Value: codeList(meta.Labels)})
	}
	if event, ok := m.(*metrics.Event); ok && len(event.ExtraKeys) > 0 {
		props = append(props, markdownProperty{Name: "Extra keys", Value: codeList(event.AllowedExtraKeys())})
	}
	if meta.GeckoDatapoint != "" {
		props = append(props, markdownProperty{Name: "Gecko datapoint", Value: code(meta.GeckoDatapoint)})
	}
	if len(meta.Bugs) > 0 {
		props = append(props, markdownProperty{Name: "Bugs", Value: strings.Join(meta.Bugs, ", ")})
	}
	if len(meta.DataReviews) > 0 {
		props = append(props, markdownProperty{Name: "Data reviews", Value: strings.Join(meta.DataReviews, ", ")})
	}
	return props
}

func pingProperties(p *metrics.Ping) []markdownProperty {
	props := []markdownProperty{
		{Name: "Include client id", Value: code(boolWord(p.IncludeClientID))},
	}
	if len(p.Bugs) > 0 {
		props = append(props, markdownProperty{Name: "Bugs", Value: strings.Join(p.Bugs, ", ")})
	}
	if len(p.DataReviews) > 0 {
		props = append(props, markdownProperty{Name: "Data reviews", Value: strings.Join(p.DataReviews, ", ")})
	}
	return props
}

func code(s string) string {
	return "`" + s + "`"
}

func codeList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = code(v)
	}
	return strings.Join(parts, ", ")
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// anchor derives the heading fragment the markdown renderer assigns,
// mirroring goldmark's auto heading ids: letters and digits lowered,
// each space, hyphen and underscore mapped to a hyphen, everything else
// dropped.
func anchor(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return b.String()
}
