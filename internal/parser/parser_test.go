package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeforge/metricgen/internal/metrics"
	"github.com/probeforge/metricgen/internal/schema"
)

func loadSet(t *testing.T) *schema.Set {
	t.Helper()
	set, err := schema.Load()
	require.NoError(t, err)
	return set
}

// addRequired fills the fields every metric must carry so tests can
// focus on the single property they exercise.
func addRequired(doc map[string]any) map[string]any {
	for category, entries := range doc {
		if category == "$schema" {
			continue
		}
		m, ok := entries.(map[string]any)
		if !ok {
			continue
		}
		for _, entry := range m {
			e, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			setDefault(e, "description", "DESCRIPTION")
			setDefault(e, "bugs", []any{12345})
			setDefault(e, "data_reviews", []any{"https://example.com/review/"})
			setDefault(e, "notification_emails", []any{"nobody@example.com"})
			setDefault(e, "expires", "never")
		}
	}
	doc["$schema"] = schema.MetricsSchemaID
	return doc
}

// addRequiredPing does the same for ping documents.
func addRequiredPing(doc map[string]any) map[string]any {
	for name, entry := range doc {
		if name == "$schema" {
			continue
		}
		e, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		setDefault(e, "description", "DESCRIPTION")
		setDefault(e, "bugs", []any{12345})
		setDefault(e, "data_reviews", []any{"https://example.com/review/"})
		setDefault(e, "notification_emails", []any{"nobody@example.com"})
	}
	doc["$schema"] = schema.PingsSchemaID
	return doc
}

func setDefault(m map[string]any, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func parseMaps(t *testing.T, docs []map[string]any, opts Options) *Result {
	t.Helper()
	sources := make([]Source, len(docs))
	for i, doc := range docs {
		sources[i] = FromMap(fmt.Sprintf("doc%d", i+1), doc)
	}
	return ParseObjects(loadSet(t), sources, opts)
}

// findError returns the first collected error containing substr.
func findError(t *testing.T, r *Result, substr string) string {
	t.Helper()
	for _, msg := range r.ErrorStrings() {
		if strings.Contains(msg, substr) {
			return msg
		}
	}
	t.Fatalf("no error containing %q in %v", substr, r.ErrorStrings())
	return ""
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestParseSingleFile(t *testing.T) {
	result := ParseFiles(loadSet(t),
		[]string{testdata("core.yaml"), testdata("pings.yaml")},
		Options{AllowReserved: true})
	require.Empty(t, result.ErrorStrings())

	tree := result.Tree
	for _, category := range tree.MetricCategories() {
		for _, obj := range tree.Objects(category) {
			m, ok := obj.(metrics.MetricObject)
			require.True(t, ok, "%s.%s is not a metric", category, obj.ObjectName())
			lifetime := m.Meta().Lifetime
			assert.Contains(t,
				[]metrics.Lifetime{metrics.LifetimePing, metrics.LifetimeUser, metrics.LifetimeApplication},
				lifetime)
		}
	}

	clientID, ok := tree.Lookup("telemetry", "client_id")
	require.True(t, ok)
	uuid, ok := clientID.(*metrics.UUID)
	require.True(t, ok)
	assert.Equal(t, metrics.LifetimeUser, uuid.Lifetime)
	assert.Equal(t, []string{"all_pings"}, uuid.SendInPings)

	sessions, ok := tree.Lookup("core_ping", "sessions")
	require.True(t, ok)
	assert.Equal(t, metrics.LabelSet{"active", "inactive"},
		sessions.(*metrics.LabeledCounter).Labels)

	pings := tree.Pings()
	require.Len(t, pings, 2)
	assert.Equal(t, "custom_ping", pings[0].Name)
	assert.False(t, pings[0].IncludeClientID)
	assert.Equal(t, "really_custom_ping", pings[1].Name)
	assert.True(t, pings[1].IncludeClientID)
}

func TestParserInvalidDocumentTag(t *testing.T) {
	result := ParseFiles(loadSet(t), []string{testdata("invalid.yaml")}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "could not determine a constructor for the tag")
	assert.Equal(t, KindUnknownConstructorTag, result.Errors[0].Kind)
}

func TestParserSchemaViolation(t *testing.T) {
	result := ParseFiles(loadSet(t), []string{testdata("schema-violation.yaml")}, Options{})
	require.Len(t, result.Errors, 3)

	missing := findError(t, result,
		"Missing required properties: bugs, data_reviews, description, expires, notification_emails")
	assert.Contains(t, missing, "On instance gleantest.test_event")
	assert.Contains(t, missing, "Describes a single metric.")

	lifetime := findError(t, result, "'user2' is not one of ['ping', 'user', 'application']")
	assert.Contains(t, lifetime, "Defines the lifetime of the metric.")

	wrongType := findError(t, result, "'b' is not of type 'object'")
	assert.Contains(t, wrongType, "On instance gleantest.foo.a")
	assert.Contains(t, wrongType, "Describes a single metric.")

	assert.True(t, result.Tree.IsEmpty(), "structurally broken entries must not build")
}

func TestParserEmptyFile(t *testing.T) {
	result := ParseFiles(loadSet(t), []string{testdata("empty.yaml")}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "file can not be empty")
	assert.Equal(t, KindEmptyDocument, result.Errors[0].Kind)
}

func TestInvalidSchemaKey(t *testing.T) {
	result := parseMaps(t, []map[string]any{{"$schema": "This is wrong"}}, Options{})
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, findError(t, result, "key must be one of"), "This is wrong")
}

func TestDuplicateKeysInOneDocument(t *testing.T) {
	result := ParseFiles(loadSet(t), []string{testdata("duplicate_keys.yaml")}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, KindMalformedDocument, result.Errors[0].Kind)
	assert.Contains(t, result.Errors[0].Error(), "test_metric")
}

func TestMergeMetrics(t *testing.T) {
	docs := []map[string]any{
		{
			"category1": map[string]any{
				"metric1": map[string]any{"type": "counter"},
				"metric2": map[string]any{"type": "counter"},
			},
			"category2": map[string]any{
				"metric3": map[string]any{"type": "counter"},
			},
		},
		{
			"category1": map[string]any{
				"metric4": map[string]any{"type": "counter"},
			},
			"category3": map[string]any{
				"metric5": map[string]any{"type": "counter"},
			},
		},
	}
	for _, doc := range docs {
		addRequired(doc)
	}

	result := parseMaps(t, docs, Options{})
	require.Empty(t, result.ErrorStrings())

	tree := result.Tree
	assert.Equal(t, []string{"metric1", "metric2", "metric4"}, tree.ObjectNames("category1"))
	assert.Equal(t, []string{"metric3"}, tree.ObjectNames("category2"))
	assert.Equal(t, []string{"metric5"}, tree.ObjectNames("category3"))
}

func TestMergeMetricsClash(t *testing.T) {
	docs := []map[string]any{
		{"category1": map[string]any{
			"metric1": map[string]any{"type": "counter", "description": "first"},
		}},
		{"category1": map[string]any{
			"metric1": map[string]any{"type": "counter", "description": "second"},
		}},
	}
	for _, doc := range docs {
		addRequired(doc)
	}

	result := parseMaps(t, docs, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "Duplicate metric name")
	assert.Equal(t, KindDuplicateDefinition, result.Errors[0].Kind)

	obj, ok := result.Tree.Lookup("category1", "metric1")
	require.True(t, ok)
	assert.Equal(t, "first", obj.(metrics.MetricObject).Meta().Description,
		"the later definition is dropped")
}

func TestSnakeCaseEnforcement(t *testing.T) {
	docs := []map[string]any{
		{"categoryWithCamelCase": map[string]any{
			"metric": map[string]any{"type": "string"},
		}},
		{"category": map[string]any{
			"metricWithCamelCase": map[string]any{"type": "string"},
		}},
	}
	for _, doc := range docs {
		doc := addRequired(doc)
		result := parseMaps(t, []map[string]any{doc}, Options{})
		require.Len(t, result.Errors, 1)
		assert.Equal(t, KindNameViolation, result.Errors[0].Kind)
	}
}

func TestMultipleErrors(t *testing.T) {
	doc := addRequired(map[string]any{
		"camelCaseName": map[string]any{
			"metric": map[string]any{"type": "unknown"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 2)
	findError(t, result, "camelCaseName")
	findError(t, result, "could not determine a constructor for the tag")
}

func TestRequiredDenominator(t *testing.T) {
	doc := addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{"type": "use_counter"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "denominator is required")
}

func TestEventMustHavePingLifetime(t *testing.T) {
	doc := addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{"type": "event", "lifetime": "user"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "Event metrics must have ping lifetime")
}

func TestReservedCategory(t *testing.T) {
	doc := addRequired(map[string]any{
		"glean.baseline": map[string]any{
			"metric": map[string]any{"type": "string"},
		},
	})

	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "For category 'glean.baseline'")
	assert.Equal(t, KindReservedNameViolation, result.Errors[0].Kind)

	result = parseMaps(t, []map[string]any{doc}, Options{AllowReserved: true})
	assert.Empty(t, result.ErrorStrings())
}

func TestPingsCategoryReservedForMetrics(t *testing.T) {
	doc := addRequired(map[string]any{
		"pings": map[string]any{
			"metric": map[string]any{"type": "string"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{AllowReserved: true})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "reserved for pings")
	assert.True(t, result.Tree.IsEmpty())
}

func TestInvalidNames(t *testing.T) {
	badNames := []string{
		"name/with_slash",
		"name#with_pound",
		"this_name_is_too_long_and_shouldnt_be_used",
		"",
	}
	positions := map[string]func(name string) map[string]any{
		"category": func(name string) map[string]any {
			return map[string]any{name: map[string]any{
				"metric": map[string]any{"type": "string"},
			}}
		},
		"metric": func(name string) map[string]any {
			return map[string]any{"baseline": map[string]any{
				name: map[string]any{"type": "string"},
			}}
		},
		"label": func(name string) map[string]any {
			return map[string]any{"baseline": map[string]any{
				"metric": map[string]any{"type": "string", "labels": []any{name}},
			}}
		},
	}

	for position, build := range positions {
		for _, name := range badNames {
			t.Run(fmt.Sprintf("%s/%q", position, name), func(t *testing.T) {
				doc := addRequired(build(name))
				result := parseMaps(t, []map[string]any{doc}, Options{})
				require.Len(t, result.Errors, 1)
				assert.Equal(t, KindNameViolation, result.Errors[0].Kind)
				assert.Contains(t, result.Errors[0].Error(), name)
			})
		}
	}
}

func TestDuplicateSendInPings(t *testing.T) {
	result := ParseFiles(loadSet(t),
		[]string{testdata("duplicate_send_in_ping.yaml")},
		Options{AllowReserved: true})
	require.Empty(t, result.ErrorStrings())

	obj, ok := result.Tree.Lookup("telemetry", "test")
	require.True(t, ok)
	assert.Equal(t, []string{"core", "metrics"},
		obj.(metrics.MetricObject).Meta().SendInPings)
}

func TestGeckoDatapointOnlyOnValidMetrics(t *testing.T) {
	valid := []map[string]any{
		{"type": "timing_distribution", "gecko_datapoint": "FOO"},
		{"type": "memory_distribution", "gecko_datapoint": "FOO", "memory_unit": "megabyte"},
		{"type": "custom_distribution", "gecko_datapoint": "FOO",
			"range_max": 60000, "bucket_count": 100, "histogram_type": "exponential"},
		{"type": "quantity", "gecko_datapoint": "FOO", "unit": "pixel"},
	}
	for _, metric := range valid {
		doc := addRequired(map[string]any{
			"category1": map[string]any{"metric1": metric},
		})
		result := parseMaps(t, []map[string]any{doc}, Options{})
		assert.Empty(t, result.ErrorStrings(), "type %v", metric["type"])
	}

	doc := addRequired(map[string]any{
		"category1": map[string]any{
			"metric1": map[string]any{"type": "event", "gecko_datapoint": "FOO"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "`gecko_datapoint` is not allowed")
}

func TestAllPingsReserved(t *testing.T) {
	doc := addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{
				"type":          "string",
				"send_in_pings": []any{"all_pings"},
			},
		},
	})

	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "On instance category.metric")
	assert.Contains(t, result.Errors[0].Error(), "Only internal metrics")

	result = parseMaps(t, []map[string]any{doc}, Options{AllowReserved: true})
	assert.Empty(t, result.ErrorStrings())

	pingDoc := addRequiredPing(map[string]any{
		"all_pings": map[string]any{"include_client_id": true},
	})
	pingResult := parseMaps(t, []map[string]any{pingDoc}, Options{})
	require.Len(t, pingResult.Errors, 1)
	assert.Contains(t, pingResult.Errors[0].Error(), "is not allowed for")
	assert.Contains(t, pingResult.Errors[0].Error(), "'all_pings'")
	assert.True(t, pingResult.Tree.IsEmpty())
}

func TestCustomDistribution(t *testing.T) {
	t.Run("requires gecko_datapoint", func(t *testing.T) {
		doc := addRequired(map[string]any{
			"category": map[string]any{
				"metric": map[string]any{
					"type":           "custom_distribution",
					"range_min":      0,
					"range_max":      60000,
					"bucket_count":   100,
					"histogram_type": "exponential",
				},
			},
		})
		result := parseMaps(t, []map[string]any{doc}, Options{})
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(), "is only allowed for Gecko metrics")
	})

	t.Run("requires parameters", func(t *testing.T) {
		doc := addRequired(map[string]any{
			"category": map[string]any{
				"metric": map[string]any{
					"type":            "custom_distribution",
					"gecko_datapoint": "FROM_GECKO",
				},
			},
		})
		result := parseMaps(t, []map[string]any{doc}, Options{})
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(),
			"`custom_distribution` is missing required parameters")
	})

	t.Run("enforces maximum bucket_count", func(t *testing.T) {
		doc := addRequired(map[string]any{
			"category": map[string]any{
				"metric": map[string]any{
					"type":            "custom_distribution",
					"gecko_datapoint": "FROM_GECKO",
					"range_max":       60000,
					"bucket_count":    101,
					"histogram_type":  "exponential",
				},
			},
		})
		result := parseMaps(t, []map[string]any{doc}, Options{})
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(), "101 is greater than")
	})

	t.Run("correct usage", func(t *testing.T) {
		doc := addRequired(map[string]any{
			"category": map[string]any{
				"metric": map[string]any{
					"type":            "custom_distribution",
					"gecko_datapoint": "FROM_GECKO",
					"range_max":       60000,
					"bucket_count":    100,
					"histogram_type":  "exponential",
				},
			},
		})
		result := parseMaps(t, []map[string]any{doc}, Options{})
		require.Empty(t, result.ErrorStrings())

		obj, ok := result.Tree.Lookup("category", "metric")
		require.True(t, ok)
		dist := obj.(*metrics.CustomDistribution)
		assert.Equal(t, 1, dist.RangeMin)
		assert.Equal(t, 60000, dist.RangeMax)
		assert.Equal(t, 100, dist.BucketCount)
		assert.Equal(t, metrics.HistogramTypeExponential, dist.HistogramType)
	})
}

func TestMemoryDistribution(t *testing.T) {
	doc := addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{"type": "memory_distribution"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(),
		"`memory_distribution` is missing required parameter `memory_unit`")

	doc = addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{
				"type":        "memory_distribution",
				"memory_unit": "megabyte",
			},
		},
	})
	result = parseMaps(t, []map[string]any{doc}, Options{})
	require.Empty(t, result.ErrorStrings())

	obj, ok := result.Tree.Lookup("category", "metric")
	require.True(t, ok)
	assert.Equal(t, metrics.MemoryUnitMegabyte, obj.(*metrics.MemoryDistribution).MemoryUnit)
}

func TestQuantity(t *testing.T) {
	doc := addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{"type": "quantity"},
		},
	})
	result := parseMaps(t, []map[string]any{doc}, Options{})
	require.Len(t, result.Errors, 2)
	findError(t, result, "`quantity` is missing required parameter `unit`")
	findError(t, result, "is only allowed for Gecko metrics")

	doc = addRequired(map[string]any{
		"category": map[string]any{
			"metric": map[string]any{
				"type":            "quantity",
				"unit":            "pixel",
				"gecko_datapoint": "FOO",
			},
		},
	})
	result = parseMaps(t, []map[string]any{doc}, Options{})
	require.Empty(t, result.ErrorStrings())

	obj, ok := result.Tree.Lookup("category", "metric")
	require.True(t, ok)
	assert.Equal(t, "pixel", obj.(*metrics.Quantity).Unit)
}

func TestParseErrorFormat(t *testing.T) {
	err := &ParseError{
		Source:  "metrics.yaml",
		Kind:    KindSchemaViolation,
		Path:    []string{"category", "metric", "lifetime"},
		Message: "'user2' is not one of ['ping', 'user', 'application']",
		Docs:    "Defines the lifetime of the metric.",
	}
	text := err.Error()
	assert.Contains(t, text, "metrics.yaml: ")
	assert.Contains(t, text, "On instance category.metric.lifetime: ")
	assert.Contains(t, text, "Documentation for this node:")
	assert.Contains(t, text, "    Defines the lifetime of the metric.")
}
