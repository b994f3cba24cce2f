package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLifetime(t *testing.T) {
	tests := []struct {
		in   string
		want Lifetime
	}{
		{"ping", LifetimePing},
		{"user", LifetimeUser},
		{"application", LifetimeApplication},
	}
	for _, tt := range tests {
		got, err := ParseLifetime(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}

	_, err := ParseLifetime("user2")
	assert.Error(t, err)
}

func TestLifetimeZeroValueIsPing(t *testing.T) {
	var l Lifetime
	assert.Equal(t, LifetimePing, l)
}

func TestBuildCounterDefaults(t *testing.T) {
	obj, err := Build("telemetry", "clicks", map[string]any{
		"type":        "counter",
		"description": "Number of clicks.",
	})
	require.NoError(t, err)

	counter, ok := obj.(*Counter)
	require.True(t, ok)
	assert.Equal(t, "counter", counter.ObjectType())
	assert.Equal(t, "clicks", counter.ObjectName())
	assert.Equal(t, "telemetry", counter.Category)
	assert.Equal(t, LifetimePing, counter.Lifetime)
	assert.Equal(t, []string{"default"}, counter.SendInPings)
	assert.False(t, counter.Disabled)
}

func TestBuildSendInPingsDeduplicates(t *testing.T) {
	obj, err := Build("telemetry", "test", map[string]any{
		"type":          "counter",
		"send_in_pings": []any{"core", "metrics", "core"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "metrics"}, obj.(*Counter).SendInPings)
}

func TestBuildUnknownTag(t *testing.T) {
	_, err := Build("telemetry", "test", map[string]any{"type": "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not determine a constructor for the tag")
	assert.Contains(t, err.Error(), "unknown")
}

func TestBuildCustomDistribution(t *testing.T) {
	raw := map[string]any{
		"type":            "custom_distribution",
		"gecko_datapoint": "FROM_GECKO",
		"range_max":       60000,
		"bucket_count":    100,
		"histogram_type":  "exponential",
	}
	obj, err := Build("category", "metric", raw)
	require.NoError(t, err)

	dist, ok := obj.(*CustomDistribution)
	require.True(t, ok)
	assert.Equal(t, 1, dist.RangeMin, "range_min defaults to 1 when absent")
	assert.Equal(t, 60000, dist.RangeMax)
	assert.Equal(t, 100, dist.BucketCount)
	assert.Equal(t, HistogramTypeExponential, dist.HistogramType)

	raw["range_min"] = 0
	obj, err = Build("category", "metric", raw)
	require.NoError(t, err)
	assert.Equal(t, 0, obj.(*CustomDistribution).RangeMin, "explicit range_min wins")
}

func TestBuildTimespanDefaultUnit(t *testing.T) {
	obj, err := Build("category", "metric", map[string]any{"type": "timespan"})
	require.NoError(t, err)
	assert.Equal(t, TimeUnitMillisecond, obj.(*Timespan).TimeUnit)

	obj, err = Build("category", "metric", map[string]any{
		"type":      "timespan",
		"time_unit": "second",
	})
	require.NoError(t, err)
	assert.Equal(t, TimeUnitSecond, obj.(*Timespan).TimeUnit)
}

func TestBuildLabeledCounterSortsLabels(t *testing.T) {
	obj, err := Build("category", "metric", map[string]any{
		"type":   "labeled_counter",
		"labels": []any{"zebra", "apple", "zebra", "mango"},
	})
	require.NoError(t, err)

	labeled := obj.(*LabeledCounter)
	assert.Equal(t, LabelSet{"apple", "mango", "zebra"}, labeled.Labels)

	args := labeled.ConstructorArgs()
	assert.Equal(t, LabelSet{"apple", "mango", "zebra"}, args["labels"])
}

func TestBuildEventExtraKeys(t *testing.T) {
	obj, err := Build("ui", "click", map[string]any{
		"type": "event",
		"extra_keys": map[string]any{
			"source_of_click": "Where the click came from.",
			"ab_test":         "Active experiment branch.",
		},
	})
	require.NoError(t, err)

	event := obj.(*Event)
	assert.Equal(t, []string{"ab_test", "source_of_click"}, event.AllowedExtraKeys())
	assert.Equal(t, []string{"ab_test", "source_of_click"}, event.ConstructorArgs()["allowed_extra_keys"])
}

func TestBuildUseCounter(t *testing.T) {
	obj, err := Build("category", "metric", map[string]any{
		"type":        "use_counter",
		"denominator": "category.total",
	})
	require.NoError(t, err)
	assert.Equal(t, "category.total", obj.(*UseCounter).Denominator)
	assert.Equal(t, "category.total", obj.ConstructorArgs()["denominator"])
}

func TestBuildBugsKeepStringForm(t *testing.T) {
	obj, err := Build("category", "metric", map[string]any{
		"type": "boolean",
		"bugs": []any{12345, "https://bugzilla.mozilla.org/12345"},
	})
	require.NoError(t, err)
	meta := obj.(MetricObject).Meta()
	assert.Equal(t, BugList{"12345", "https://bugzilla.mozilla.org/12345"}, meta.Bugs)
}

func TestBuildPing(t *testing.T) {
	ping, err := BuildPing("custom_ping", map[string]any{
		"description":       "A custom ping.",
		"include_client_id": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "custom_ping", ping.Name)
	assert.Equal(t, "ping", ping.ObjectType())
	assert.True(t, ping.IncludeClientID)

	args := ping.ConstructorArgs()
	assert.Equal(t, "custom_ping", args["name"])
	assert.Equal(t, true, args["include_client_id"])
}

func TestObjectTreeOrdering(t *testing.T) {
	tree := NewObjectTree()

	mustBuild := func(category, name, typ string) Object {
		obj, err := Build(category, name, map[string]any{"type": typ})
		require.NoError(t, err)
		return obj
	}

	tree.Insert("zeta", "m1", mustBuild("zeta", "m1", "counter"))
	tree.Insert("alpha", "m2", mustBuild("alpha", "m2", "string"))
	tree.Insert("alpha", "m1", mustBuild("alpha", "m1", "boolean"))

	ping, err := BuildPing("custom_ping", map[string]any{"description": "d"})
	require.NoError(t, err)
	tree.Insert(PingsCategory, ping.Name, ping)

	assert.Equal(t, []string{"alpha", PingsCategory, "zeta"}, tree.Categories())
	assert.Equal(t, []string{"alpha", "zeta"}, tree.MetricCategories())
	assert.Equal(t, []string{"m1", "m2"}, tree.ObjectNames("alpha"))
	assert.Equal(t, 4, tree.Len())

	pings := tree.Pings()
	require.Len(t, pings, 1)
	assert.Equal(t, "custom_ping", pings[0].Name)

	all := tree.Metrics()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha.m1", all[0].Meta().Identifier())
	assert.Equal(t, "alpha.m2", all[1].Meta().Identifier())
	assert.Equal(t, "zeta.m1", all[2].Meta().Identifier())
}

func TestKnownTypesSorted(t *testing.T) {
	types := KnownTypes()
	assert.Contains(t, types, "counter")
	assert.Contains(t, types, "labeled_counter")
	for i := 1; i < len(types); i++ {
		assert.Less(t, types[i-1], types[i])
	}
}
