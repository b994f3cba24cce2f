package watch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeforge/metricgen/internal/config"
)

var (
	_ Publisher = NoopPublisher{}
	_ Publisher = (*NATSPublisher)(nil)
)

func TestNewPublisherDisabled(t *testing.T) {
	pub, err := NewPublisher(config.NATSConfig{Enabled: false, URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, pub)

	assert.NoError(t, pub.PublishBuildEvent(BuildEvent{Status: "success"}))
	pub.Close()
}

func TestBuildEventJSON(t *testing.T) {
	event := BuildEvent{
		RunID:      "run-1",
		Status:     "success",
		Reason:     "file_change",
		Formats:    []string{"kotlin", "markdown"},
		Files:      3,
		Errors:     0,
		DurationMS: 12.5,
		Timestamp:  time.Date(2021, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"run_id", "status", "reason", "formats", "files", "errors", "duration_ms", "timestamp"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "file_change", decoded["reason"])
}

func TestBuildEventOmitsEmptyRunID(t *testing.T) {
	data, err := json.Marshal(BuildEvent{Status: StatusSkipped})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotContains(t, decoded, "run_id")
	assert.Equal(t, "skipped", decoded["status"])
}
