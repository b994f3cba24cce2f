// Package docverify checks a generated markdown document against its own
// link targets. Intra-document fragment links are pulled from the
// markdown AST, the document is rendered to HTML the way documentation
// hosts render it, and every fragment must resolve to an anchor in the
// result.
package docverify

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// FragmentLink is an intra-document link extracted from the markdown
// AST.
type FragmentLink struct {
	Fragment string // anchor name without the leading #
	Text     string // link text
}

// Report is the outcome of verifying one document.
type Report struct {
	Links   []FragmentLink // every intra-document link found
	Anchors []string       // every anchor the rendered HTML exposes, sorted
	Broken  []FragmentLink // links whose fragment matched no anchor
}

// Ok reports whether every fragment link resolved.
func (r *Report) Ok() bool { return len(r.Broken) == 0 }

// VerifyFile reads path and verifies its content.
func VerifyFile(path string) (*Report, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Verify(body)
}

// Verify parses the markdown document, renders it and reports fragment
// links without a matching anchor.
func Verify(body []byte) (*Report, error) {
	links := extractFragmentLinks(body)

	rendered, err := renderHTML(body)
	if err != nil {
		return nil, err
	}
	anchors, err := collectAnchors(rendered)
	if err != nil {
		return nil, err
	}

	report := &Report{Links: links, Anchors: sortedKeys(anchors)}
	for _, link := range links {
		if _, ok := anchors[link.Fragment]; !ok {
			report.Broken = append(report.Broken, link)
		}
	}
	return report, nil
}

// extractFragmentLinks walks the markdown AST collecting links whose
// destination is nothing but a fragment. Links into other documents or
// sites are out of scope here.
func extractFragmentLinks(body []byte) []FragmentLink {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var links []FragmentLink
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		link, ok := n.(*gmast.Link)
		if !ok {
			return gmast.WalkContinue, nil
		}
		fragment, ok := fragmentOf(string(link.Destination))
		if !ok {
			return gmast.WalkContinue, nil
		}
		links = append(links, FragmentLink{Fragment: fragment, Text: nodeText(link, body)})
		return gmast.WalkContinue, nil
	})
	return links
}

// fragmentOf returns the anchor name when dest points inside the same
// document.
func fragmentOf(dest string) (string, bool) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" || u.Path != "" || u.Fragment == "" {
		return "", false
	}
	return u.Fragment, true
}

// nodeText collects the plain text under a node.
func nodeText(n gmast.Node, body []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := child.(*gmast.Text); ok {
			sb.Write(t.Segment.Value(body))
		}
		return gmast.WalkContinue, nil
	})
	return sb.String()
}

// renderHTML converts markdown to HTML with auto heading ids, the same
// ids documentation hosts derive from heading text.
func renderHTML(body []byte) ([]byte, error) {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	var buf bytes.Buffer
	if err := md.Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// collectAnchors walks the rendered HTML collecting element ids and the
// names of a elements.
func collectAnchors(doc []byte) (map[string]struct{}, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parse rendered html: %w", err)
	}

	anchors := make(map[string]struct{})
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				anchors[id] = struct{}{}
			}
			if n.Data == "a" {
				if name := getAttr(n, "name"); name != "" {
					anchors[name] = struct{}{}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return anchors, nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
