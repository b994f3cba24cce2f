package watch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/probeforge/metricgen/internal/config"
)

// BuildEvent is published after every run the daemon finishes or
// skips, so downstream consumers can react to fresh output.
type BuildEvent struct {
	RunID      string    `json:"run_id,omitempty"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
	Formats    []string  `json:"formats"`
	Files      int       `json:"files"`
	Errors     int       `json:"errors"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusSkipped marks runs the daemon skipped because the inputs were
// unchanged. Finished runs carry the report status instead.
const StatusSkipped = "skipped"

// Publisher delivers build events. Implementations must tolerate being
// called from the build goroutine without blocking it for long.
type Publisher interface {
	PublishBuildEvent(event BuildEvent) error
	Close()
}

// NoopPublisher drops every event. It is the default when event
// publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishBuildEvent(BuildEvent) error { return nil }

func (NoopPublisher) Close() {}

// NATSPublisher publishes build events to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher creates the publisher matching the configuration:
// NoopPublisher when disabled, a connected NATSPublisher otherwise.
func NewPublisher(cfg config.NATSConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg)
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("metricgen-watch"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	slog.Info("NATS publisher connected",
		slog.String("url", cfg.URL),
		slog.String("subject", cfg.Subject))

	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

// PublishBuildEvent marshals the event and publishes it.
func (p *NATSPublisher) PublishBuildEvent(event BuildEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish build event: %w", err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Flush(); err != nil {
		slog.Warn("Could not flush NATS connection", slog.String("error", err.Error()))
	}
	p.conn.Close()
}
