// Package parser loads registry documents, validates them against the
// registry schemas, merges them and builds the typed object tree.
//
// Every finding is collected into the Result rather than raised, so a
// single run reports all defects at once. The caller decides whether
// findings abort downstream generation.
package parser

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
	"github.com/probeforge/metricgen/internal/schema"
)

// Options adjust how strictly documents are checked.
type Options struct {
	// AllowReserved permits names and targets ordinarily reserved for
	// internal metrics: the glean category prefix, reserved ping names
	// and the all_pings send target.
	AllowReserved bool
}

// ParseObjects loads, validates and merges every source into one object
// tree.
func ParseObjects(set *schema.Set, sources []Source, opts Options) *Result {
	p := &run{
		set:       set,
		opts:      opts,
		tree:      metrics.NewObjectTree(),
		definedIn: make(map[string]string),
	}
	for _, src := range sources {
		p.parseSource(src)
	}
	return &Result{Errors: p.errs, Tree: p.tree}
}

// ParseFiles is ParseObjects over plain file paths.
func ParseFiles(set *schema.Set, paths []string, opts Options) *Result {
	sources := make([]Source, len(paths))
	for i, path := range paths {
		sources[i] = FromFile(path)
	}
	return ParseObjects(set, sources, opts)
}

type run struct {
	set       *schema.Set
	opts      Options
	tree      *metrics.ObjectTree
	errs      []*ParseError
	definedIn map[string]string
}

func (p *run) report(err *ParseError) {
	p.errs = append(p.errs, err)
}

func (p *run) parseSource(src Source) {
	doc, loadErr := src.load()
	if loadErr != nil {
		p.report(loadErr)
		return
	}

	schemaID := ""
	docMap, isMap := doc.(map[string]any)
	if isMap {
		if v, ok := docMap["$schema"].(string); ok {
			schemaID = v
		}
	}

	sch, ok := p.set.ForID(schemaID)
	if !ok {
		p.report(&ParseError{
			Source: src.Name(),
			Kind:   KindSchemaViolation,
			Path:   []string{"$schema"},
			Message: fmt.Sprintf("$schema key must be one of %s; found '%s'.",
				quotedList(p.set.IDs()), schemaID),
		})
		return
	}

	violations := sch.Validate(doc)
	skip := newSkipSet(violations)
	for _, v := range violations {
		p.report(&ParseError{
			Source:  src.Name(),
			Kind:    KindSchemaViolation,
			Path:    v.Path,
			Message: v.Message,
			Docs:    v.Docs,
		})
	}
	if skip.document || !isMap {
		return
	}

	switch sch.Kind {
	case schema.KindMetrics:
		p.parseMetricsDoc(src, docMap, skip)
	case schema.KindPings:
		p.parsePingsDoc(src, docMap, skip)
	}
}

func (p *run) parseMetricsDoc(src Source, doc map[string]any, skip *skipSet) {
	for _, category := range sortedMapKeys(doc) {
		if category == "$schema" {
			continue
		}
		if msg := checkCategoryName(category); msg != "" {
			p.report(&ParseError{
				Source: src.Name(), Kind: KindNameViolation,
				Path: []string{category}, Message: msg,
			})
		}
		if msg, reserved := checkReservedCategory(category, p.opts.AllowReserved); reserved {
			p.report(&ParseError{
				Source: src.Name(), Kind: KindReservedNameViolation,
				Path: []string{category}, Message: msg,
			})
			if category == metrics.PingsCategory {
				continue
			}
		}
		entries, ok := doc[category].(map[string]any)
		if !ok {
			continue
		}
		for _, name := range sortedMapKeys(entries) {
			p.parseMetricEntry(src, category, name, entries[name], skip)
		}
	}
}

func (p *run) parseMetricEntry(src Source, category, name string, value any, skip *skipSet) {
	path := []string{category, name}
	if msg := checkMetricName(name); msg != "" {
		p.report(&ParseError{
			Source: src.Name(), Kind: KindNameViolation, Path: path, Message: msg,
		})
	}
	raw, ok := value.(map[string]any)
	if !ok {
		return
	}
	p.checkEntryNames(src, path, raw)
	if skip.entrySkip(category, name) {
		return
	}
	for _, msg := range semanticMessages(raw, p.opts.AllowReserved) {
		p.report(&ParseError{
			Source: src.Name(), Kind: KindSemanticRuleViolation, Path: path, Message: msg,
		})
	}
	p.addMetric(src, category, name, raw)
}

// checkEntryNames validates the names nested inside a metric entry:
// label values and event extra keys.
func (p *run) checkEntryNames(src Source, path []string, raw map[string]any) {
	if labels, ok := raw["labels"].([]any); ok {
		for _, label := range labels {
			value, ok := label.(string)
			if !ok {
				continue
			}
			if msg := checkLabelName(value); msg != "" {
				p.report(&ParseError{
					Source: src.Name(), Kind: KindNameViolation, Path: path, Message: msg,
				})
			}
		}
	}
	if extras, ok := raw["extra_keys"].(map[string]any); ok {
		for _, key := range sortedMapKeys(extras) {
			if msg := checkExtraKeyName(key); msg != "" {
				p.report(&ParseError{
					Source: src.Name(), Kind: KindNameViolation, Path: path, Message: msg,
				})
			}
		}
	}
}

func (p *run) addMetric(src Source, category, name string, raw map[string]any) {
	key := category + "\x00" + name
	if firstSrc, exists := p.definedIn[key]; exists {
		p.report(&ParseError{
			Source: src.Name(), Kind: KindDuplicateDefinition,
			Path:    []string{category, name},
			Message: fmt.Sprintf("Duplicate metric name: already defined in %s.", firstSrc),
		})
		return
	}
	obj, err := metrics.Build(category, name, raw)
	if err != nil {
		kind := KindMalformedDocument
		var unknownTag *metrics.UnknownTagError
		if errors.As(err, &unknownTag) {
			kind = KindUnknownConstructorTag
		}
		p.report(&ParseError{
			Source: src.Name(), Kind: kind,
			Path: []string{category, name}, Message: err.Error(),
		})
		return
	}
	p.definedIn[key] = src.Name()
	p.tree.Insert(category, name, obj)
}

func (p *run) parsePingsDoc(src Source, doc map[string]any, skip *skipSet) {
	for _, name := range sortedMapKeys(doc) {
		if name == "$schema" {
			continue
		}
		path := []string{name}
		if msg := checkPingName(name); msg != "" {
			p.report(&ParseError{
				Source: src.Name(), Kind: KindNameViolation, Path: path, Message: msg,
			})
		}
		if msg, reserved := checkReservedPingName(name, p.opts.AllowReserved); reserved {
			p.report(&ParseError{
				Source: src.Name(), Kind: KindReservedNameViolation, Path: path, Message: msg,
			})
			continue
		}
		raw, ok := doc[name].(map[string]any)
		if !ok || skip.pingSkip(name) {
			continue
		}
		p.addPing(src, name, raw)
	}
}

func (p *run) addPing(src Source, name string, raw map[string]any) {
	key := metrics.PingsCategory + "\x00" + name
	if firstSrc, exists := p.definedIn[key]; exists {
		p.report(&ParseError{
			Source: src.Name(), Kind: KindDuplicateDefinition,
			Path:    []string{name},
			Message: fmt.Sprintf("Duplicate ping name: already defined in %s.", firstSrc),
		})
		return
	}
	ping, err := metrics.BuildPing(name, raw)
	if err != nil {
		p.report(&ParseError{
			Source: src.Name(), Kind: KindMalformedDocument,
			Path: []string{name}, Message: err.Error(),
		})
		return
	}
	p.definedIn[key] = src.Name()
	p.tree.Insert(metrics.PingsCategory, name, ping)
}

// skipSet marks the document regions structural violations made
// unbuildable. Entries with only name or semantic findings still build,
// so the merged tree stays as complete as the inputs allow.
type skipSet struct {
	document   bool
	roots      map[string]struct{}
	categories map[string]struct{}
	entries    map[entryKey]struct{}
}

type entryKey struct {
	category, name string
}

func newSkipSet(violations []schema.Violation) *skipSet {
	s := &skipSet{
		roots:      make(map[string]struct{}),
		categories: make(map[string]struct{}),
		entries:    make(map[entryKey]struct{}),
	}
	for _, v := range violations {
		if len(v.Path) == 0 {
			s.document = true
			continue
		}
		s.roots[v.Path[0]] = struct{}{}
		if len(v.Path) == 1 {
			s.categories[v.Path[0]] = struct{}{}
		} else {
			s.entries[entryKey{v.Path[0], v.Path[1]}] = struct{}{}
		}
	}
	return s
}

func (s *skipSet) entrySkip(category, name string) bool {
	if s.document {
		return true
	}
	if _, ok := s.categories[category]; ok {
		return true
	}
	_, ok := s.entries[entryKey{category, name}]
	return ok
}

func (s *skipSet) pingSkip(name string) bool {
	if s.document {
		return true
	}
	_, ok := s.roots[name]
	return ok
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quotedList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + v + "'"
	}
	return strings.Join(parts, ", ")
}
