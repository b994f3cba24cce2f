// Package telemetry provides observability hooks for generation runs.
//
// Components receive a Recorder through dependency injection and default
// to NoopRecorder, so metrics collection never requires nil checks at
// call sites. Watch mode swaps in the Prometheus implementation and
// serves it over HTTP.
package telemetry

import "time"

// ResultLabel enumerates run outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	// ResultSkipped marks runs watch mode skipped because the input
	// fingerprint was unchanged.
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for generation runs. All methods
// must be safe on the zero value so NoopRecorder can be injected as a
// default.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome ResultLabel)
	AddFilesWritten(format string, n int)
	IncParseErrors(kind string)
	SetLastRun(t time.Time)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                  {}
func (NoopRecorder) AddFilesWritten(string, int)                {}
func (NoopRecorder) IncParseErrors(string)                      {}
func (NoopRecorder) SetLastRun(time.Time)                       {}
