package schema

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var englishPrinter = message.NewPrinter(language.English)

// violationMessage renders one leaf validation error in the phrasing
// registry authors are used to reading.
func violationMessage(leaf *jsonschema.ValidationError, instance any) string {
	switch k := leaf.ErrorKind.(type) {
	case *kind.Required:
		missing := append([]string(nil), k.Missing...)
		sort.Strings(missing)
		return "Missing required properties: " + strings.Join(missing, ", ")
	case *kind.Enum:
		return fmt.Sprintf("%s is not one of %s",
			literal(valueAt(instance, leaf.InstanceLocation)), literalList(k.Want))
	case *kind.Type:
		return fmt.Sprintf("%s is not of type %s",
			literal(valueAt(instance, leaf.InstanceLocation)), quotedTypes(k.Want))
	case *kind.Minimum:
		return fmt.Sprintf("%s is less than the minimum of %s",
			ratString(k.Got), ratString(k.Want))
	case *kind.Maximum:
		return fmt.Sprintf("%s is greater than the maximum of %s",
			ratString(k.Got), ratString(k.Want))
	case *kind.MinLength:
		return fmt.Sprintf("%s is shorter than %d characters",
			literal(valueAt(instance, leaf.InstanceLocation)), k.Want)
	case *kind.MaxLength:
		return fmt.Sprintf("%s is longer than %d characters",
			literal(valueAt(instance, leaf.InstanceLocation)), k.Want)
	case *kind.Pattern:
		return fmt.Sprintf("%s does not match %s",
			literal(valueAt(instance, leaf.InstanceLocation)), literal(k.Want))
	default:
		return leaf.ErrorKind.LocalizedString(englishPrinter)
	}
}

// literal renders an instance value the way the messages quote values:
// strings in single quotes, everything else in its JSON form.
func literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case string:
		return "'" + t + "'"
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func literalList(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = literal(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func quotedTypes(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = "'" + n + "'"
	}
	return strings.Join(parts, ", ")
}

func ratString(r *big.Rat) string {
	if r == nil {
		return "?"
	}
	if r.IsInt() {
		return r.Num().String()
	}
	return strings.TrimRight(strings.TrimRight(r.FloatString(6), "0"), ".")
}

// valueAt fetches the instance value a violation points at.
func valueAt(instance any, path []string) any {
	node := instance
	for _, seg := range path {
		switch t := node.(type) {
		case map[string]any:
			node = t[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(t) {
				return nil
			}
			node = t[idx]
		default:
			return nil
		}
	}
	return node
}
