package translate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/probeforge/metricgen/internal/metrics"
)

const defaultSwiftGleanNamespace = "Glean"

// SwiftOutputter renders one Swift file per category, each extending
// the namespace enum with one static metric constant per entry.
type SwiftOutputter struct{}

func (*SwiftOutputter) Name() string { return "swift" }

func (o *SwiftOutputter) Output(tree *metrics.ObjectTree, outDir string, opts Options) ([]string, error) {
	tpl := mustTemplate("swift.swift.tmpl", nil)
	var written []string
	for _, category := range tree.Categories() {
		data := buildSwiftFile(category, tree.Objects(category), opts)
		path := outputPath(outDir, category, ".swift")
		if err := renderFile(tpl, data, path); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

type swiftFile struct {
	Namespace      string
	GleanNamespace string
	EnumName       string
	Entries        []swiftEntry
}

type swiftEntry struct {
	Doc          string
	KeysEnumName string
	KeysCases    []swiftCase
	ValName      string
	Ctor         string
}

type swiftCase struct {
	Name  string
	Index int
}

func buildSwiftFile(category string, objs []metrics.Object, opts Options) swiftFile {
	glean := opts.GleanNamespace
	if glean == "" {
		glean = defaultSwiftGleanNamespace
	}
	file := swiftFile{
		Namespace:      opts.namespace(),
		GleanNamespace: glean,
		EnumName:       Camelize(category),
	}
	for _, obj := range objs {
		file.Entries = append(file.Entries, buildSwiftEntry(obj))
	}
	return file
}

func buildSwiftEntry(obj metrics.Object) swiftEntry {
	entry := swiftEntry{ValName: camelize(obj.ObjectName())}

	args := obj.ConstructorArgs()
	switch m := obj.(type) {
	case *metrics.Event:
		entry.Doc = swiftDoc(m.Description)
		if len(m.ExtraKeys) > 0 {
			entry.KeysEnumName = Camelize(m.Name) + "Keys"
			for i, key := range m.AllowedExtraKeys() {
				entry.KeysCases = append(entry.KeysCases, swiftCase{Name: camelize(key), Index: i})
			}
		}
		entry.Ctor = swiftCtor(swiftTypeName(obj), swiftArgs(args), "        ")
	case *metrics.Ping:
		entry.Doc = swiftDoc(m.Description)
		entry.Ctor = swiftCtor("PingType", swiftArgs(args), "        ")
	case metrics.MetricObject:
		meta := m.Meta()
		entry.Doc = swiftDoc(meta.Description)
		if strings.HasPrefix(meta.Type, "labeled_") {
			sub := make(map[string]any, len(args))
			for k, v := range args {
				if k != "labels" {
					sub[k] = v
				}
			}
			outer := swiftArgs(args)
			outer = append(outer, swiftArg{
				Name:  "subMetric",
				Value: swiftCtor(swiftClassName(meta.Type), swiftArgs(sub), "            "),
			})
			entry.Ctor = swiftCtor(swiftTypeName(obj), outer, "        ")
		} else {
			entry.Ctor = swiftCtor(swiftClassName(meta.Type), swiftArgs(args), "        ")
		}
	}
	return entry
}

type swiftArg struct {
	Name  string
	Value string
}

func swiftArgs(args map[string]any) []swiftArg {
	out := make([]swiftArg, 0, len(args))
	for _, name := range constructorArgOrder {
		value, ok := args[name]
		if !ok {
			continue
		}
		out = append(out, swiftArg{Name: camelize(name), Value: swiftLiteral(value)})
	}
	return out
}

func swiftCtor(name string, args []swiftArg, indent string) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString("(\n")
	for i, arg := range args {
		sb.WriteString(indent)
		sb.WriteString("    ")
		sb.WriteString(arg.Name)
		sb.WriteString(": ")
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

// swiftLiteral renders a Swift literal: arrays and sets as bracketed
// lists, string maps as dictionary literals, unit enums as leading-dot
// members, scalars as their JSON form.
func swiftLiteral(v any) string {
	switch val := v.(type) {
	case metrics.LabelSet:
		return swiftStringArray([]string(val))
	case []string:
		return swiftStringArray(val)
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + strconv.Quote(val[k])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case metrics.Lifetime:
		return "." + camelize(val.String())
	case metrics.TimeUnit:
		return "." + camelize(val.String())
	case metrics.MemoryUnit:
		return "." + camelize(val.String())
	case metrics.HistogramType:
		return "." + camelize(val.String())
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

func swiftStringArray(values []string) string {
	parts := make([]string, len(values))
	for i, s := range values {
		parts[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func swiftClassName(objType string) string {
	if objType == "ping" {
		return "PingType"
	}
	return Camelize(strings.TrimPrefix(objType, "labeled_")) + "MetricType"
}

func swiftTypeName(obj metrics.Object) string {
	if event, ok := obj.(*metrics.Event); ok {
		enum := "NoExtraKeys"
		if len(event.ExtraKeys) > 0 {
			enum = Camelize(event.Name) + "Keys"
		}
		return "EventMetricType<" + enum + ">"
	}
	if strings.HasPrefix(obj.ObjectType(), "labeled_") {
		return "LabeledMetricType<" + swiftClassName(obj.ObjectType()) + ">"
	}
	return swiftClassName(obj.ObjectType())
}

// swiftDoc renders the description as an indented doc comment block.
func swiftDoc(description string) string {
	lines := docLines(description)
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			out[i] = "        ///"
			continue
		}
		out[i] = "        /// " + line
	}
	return strings.Join(out, "\n")
}
