package translate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
)

const defaultKotlinGleanNamespace = "mozilla.components.service.glean"

// constructorArgOrder fixes the order named arguments appear in inside
// generated constructor calls, for every target language.
var constructorArgOrder = []string{
	"allowed_extra_keys",
	"bucket_count",
	"category",
	"denominator",
	"disabled",
	"histogram_type",
	"include_client_id",
	"labels",
	"lifetime",
	"memory_unit",
	"name",
	"range_max",
	"range_min",
	"send_in_pings",
	"time_unit",
	"unit",
}

// KotlinOutputter renders one Kotlin file per category, each declaring
// an object with one lazily constructed metric per entry, plus an
// optional Gecko histogram lookup table.
type KotlinOutputter struct{}

func (*KotlinOutputter) Name() string { return "kotlin" }

func (o *KotlinOutputter) Output(tree *metrics.ObjectTree, outDir string, opts Options) ([]string, error) {
	tpl := mustTemplate("kotlin.kt.tmpl", nil)
	var written []string
	for _, category := range tree.Categories() {
		data := buildKotlinFile(category, tree.Objects(category), opts)
		path := outputPath(outDir, category, ".kt")
		if err := renderFile(tpl, data, path); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	path, err := o.writeGeckoLookup(tree, outDir, opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		written = append(written, path)
	}
	return written, nil
}

// writeGeckoLookup emits the histogram mapping file. When no metric
// carries a gecko_datapoint no file is written at all.
func (o *KotlinOutputter) writeGeckoLookup(tree *metrics.ObjectTree, outDir string, opts Options) (string, error) {
	type geckoEntry struct {
		Datapoint string // quoted Kotlin string literal
		Accessor  string
	}
	var entries []geckoEntry
	for _, m := range tree.Metrics() {
		meta := m.Meta()
		if meta.GeckoDatapoint == "" {
			continue
		}
		entries = append(entries, geckoEntry{
			Datapoint: strconv.Quote(meta.GeckoDatapoint),
			Accessor:  Camelize(meta.Category) + "." + camelize(meta.Name),
		})
	}
	if len(entries) == 0 {
		return "", nil
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Datapoint < entries[j].Datapoint
	})

	tpl := mustTemplate("kotlin_gecko.kt.tmpl", nil)
	path := outputPath(outDir, "GleanGeckoHistogramMapping", ".kt")
	data := struct {
		Namespace string
		Entries   []geckoEntry
	}{opts.namespace(), entries}
	if err := renderFile(tpl, data, path); err != nil {
		return "", err
	}
	return path, nil
}

type kotlinFile struct {
	Namespace      string
	GleanNamespace string
	ObjectName     string
	Imports        []string
	Entries        []kotlinEntry
}

type kotlinEntry struct {
	DocLines    []string
	Identifier  string
	EnumName    string
	EnumMembers []string
	ValName     string
	ValType     string
	Ctor        string
}

func buildKotlinFile(category string, objs []metrics.Object, opts Options) kotlinFile {
	glean := opts.GleanNamespace
	if glean == "" {
		glean = defaultKotlinGleanNamespace
	}
	b := &kotlinBuilder{imports: make(map[string]struct{})}
	file := kotlinFile{
		Namespace:      opts.namespace(),
		GleanNamespace: glean,
		ObjectName:     Camelize(category),
	}
	for _, obj := range objs {
		file.Entries = append(file.Entries, b.entry(obj))
	}
	file.Imports = b.sorted()
	return file
}

// kotlinBuilder renders entries while tracking which runtime types the
// file ends up referencing, so the import block matches the body.
type kotlinBuilder struct {
	imports map[string]struct{}
}

func (b *kotlinBuilder) need(class string) {
	b.imports[class] = struct{}{}
}

func (b *kotlinBuilder) sorted() []string {
	out := make([]string, 0, len(b.imports))
	for class := range b.imports {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

func (b *kotlinBuilder) entry(obj metrics.Object) kotlinEntry {
	entry := kotlinEntry{
		ValName: camelize(obj.ObjectName()),
		ValType: kotlinTypeName(obj),
	}

	className := kotlinClassName(obj.ObjectType())
	b.need(className)

	args := obj.ConstructorArgs()
	switch m := obj.(type) {
	case *metrics.Event:
		entry.Identifier = m.Identifier()
		entry.DocLines = docLines(m.Description)
		if len(m.ExtraKeys) > 0 {
			entry.EnumName = camelize(m.Name) + "Keys"
			for _, key := range m.AllowedExtraKeys() {
				entry.EnumMembers = append(entry.EnumMembers, camelize(key))
			}
		} else {
			b.need("NoExtraKeys")
		}
		entry.Ctor = b.ctor(entry.ValType, b.orderedArgs(args), "        ")
	case *metrics.Ping:
		entry.Identifier = m.Name
		entry.DocLines = docLines(m.Description)
		entry.Ctor = b.ctor(className, b.orderedArgs(args), "        ")
	case metrics.MetricObject:
		meta := m.Meta()
		entry.Identifier = meta.Identifier()
		entry.DocLines = docLines(meta.Description)
		if strings.HasPrefix(meta.Type, "labeled_") {
			b.need("LabeledMetricType")
			sub := make(map[string]any, len(args))
			for k, v := range args {
				if k != "labels" {
					sub[k] = v
				}
			}
			outer := b.orderedArgs(args)
			outer = append(outer, kotlinArg{
				Name:  "subMetric",
				Value: b.ctor(className, b.orderedArgs(sub), "            "),
			})
			entry.Ctor = b.ctor("LabeledMetricType", outer, "        ")
		} else {
			entry.Ctor = b.ctor(className, b.orderedArgs(args), "        ")
		}
	}
	return entry
}

type kotlinArg struct {
	Name  string
	Value string
}

// orderedArgs renders the present constructor arguments in the
// canonical order with camelCase Kotlin parameter names.
func (b *kotlinBuilder) orderedArgs(args map[string]any) []kotlinArg {
	out := make([]kotlinArg, 0, len(args))
	for _, name := range constructorArgOrder {
		value, ok := args[name]
		if !ok {
			continue
		}
		out = append(out, kotlinArg{Name: camelize(name), Value: b.literal(value)})
	}
	return out
}

// ctor renders a named-argument constructor call. indent is the
// indentation of the line the call starts on; arguments go one level
// deeper.
func (b *kotlinBuilder) ctor(name string, args []kotlinArg, indent string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString("(\n")
	for i, arg := range args {
		sb.WriteString(indent)
		sb.WriteString("    ")
		sb.WriteString(arg.Name)
		sb.WriteString(" = ")
		sb.WriteString(arg.Value)
		if i < len(args)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(indent)
	sb.WriteString(")")
	return sb.String()
}

// literal renders a Kotlin literal: lists as listOf, string maps as
// mapOf, label sets as setOf, unit enums as members of the like-named
// Kotlin enum, scalars as their JSON form.
func (b *kotlinBuilder) literal(v any) string {
	switch val := v.(type) {
	case metrics.LabelSet:
		return "setOf(" + b.joinStrings([]string(val)) + ")"
	case []string:
		return "listOf(" + b.joinStrings(val) + ")"
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + " to " + strconv.Quote(val[k])
		}
		return "mapOf(" + strings.Join(parts, ", ") + ")"
	case metrics.Lifetime:
		b.need("Lifetime")
		return "Lifetime." + Camelize(val.String())
	case metrics.TimeUnit:
		b.need("TimeUnit")
		return "TimeUnit." + Camelize(val.String())
	case metrics.MemoryUnit:
		b.need("MemoryUnit")
		return "MemoryUnit." + Camelize(val.String())
	case metrics.HistogramType:
		b.need("HistogramType")
		return "HistogramType." + Camelize(val.String())
	case string:
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (b *kotlinBuilder) joinStrings(values []string) string {
	parts := make([]string, len(values))
	for i, s := range values {
		parts[i] = strconv.Quote(s)
	}
	return strings.Join(parts, ", ")
}

// kotlinClassName maps a type tag to the Kotlin runtime class
// instantiated for it. Labeled variants construct their base class and
// get wrapped in LabeledMetricType by the caller.
func kotlinClassName(objType string) string {
	if objType == "ping" {
		return "PingType"
	}
	return Camelize(strings.TrimPrefix(objType, "labeled_")) + "MetricType"
}

// kotlinTypeName returns the declared Kotlin type of the generated
// property, including generic parameters where the runtime type takes
// them.
func kotlinTypeName(obj metrics.Object) string {
	if event, ok := obj.(*metrics.Event); ok {
		enum := "NoExtraKeys"
		if len(event.ExtraKeys) > 0 {
			enum = camelize(event.Name) + "Keys"
		}
		return "EventMetricType<" + enum + ">"
	}
	if strings.HasPrefix(obj.ObjectType(), "labeled_") {
		return "LabeledMetricType<" + kotlinClassName(obj.ObjectType()) + ">"
	}
	return kotlinClassName(obj.ObjectType())
}

func docLines(description string) []string {
	if description == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(description, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return lines
}
