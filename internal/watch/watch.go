// Package watch runs the continuous generation daemon. It rebuilds the
// configured outputs when registry files change, reconciles on a
// schedule, skips runs whose inputs are unchanged, records run history
// and exposes health, status and Prometheus endpoints over HTTP.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/probeforge/metricgen/internal/config"
	"github.com/probeforge/metricgen/internal/docverify"
	"github.com/probeforge/metricgen/internal/history"
	"github.com/probeforge/metricgen/internal/logfields"
	"github.com/probeforge/metricgen/internal/parser"
	"github.com/probeforge/metricgen/internal/report"
	"github.com/probeforge/metricgen/internal/schema"
	"github.com/probeforge/metricgen/internal/telemetry"
	"github.com/probeforge/metricgen/internal/translate"
)

// Build trigger reasons, carried through the debouncer into logs and
// build events.
const (
	reasonStartup   = "startup"
	reasonChange    = "file_change"
	reasonReconcile = "reconcile"
)

// Options wires the daemon's collaborators. Config, Schemas and
// History are required; Recorder and Publisher default to the no-op
// implementations and a nil Metrics handler disables the /metrics
// endpoint.
type Options struct {
	Config    *config.Config
	Schemas   *schema.Set
	History   *history.Store
	Recorder  telemetry.Recorder
	Publisher Publisher
	Metrics   http.Handler
}

// Daemon is the watch mode service.
type Daemon struct {
	cfg       *config.Config
	schemas   *schema.Set
	history   *history.Store
	recorder  telemetry.Recorder
	publisher Publisher
	metrics   http.Handler
	debouncer *debouncer

	mu            sync.RWMutex
	startedAt     time.Time
	addr          string
	building      bool
	buildsRun     int
	buildsSkipped int
	lastStatus    string
	lastError     string
}

// New validates the options and creates the daemon.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if len(opts.Config.Inputs) == 0 {
		return nil, errors.New("watch mode needs at least one input")
	}
	if opts.Schemas == nil {
		return nil, errors.New("schema set is required")
	}
	if opts.History == nil {
		return nil, errors.New("history store is required")
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = telemetry.NoopRecorder{}
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = NoopPublisher{}
	}

	return &Daemon{
		cfg:       opts.Config,
		schemas:   opts.Schemas,
		history:   opts.History,
		recorder:  recorder,
		publisher: publisher,
		metrics:   opts.Metrics,
		debouncer: newDebouncer(opts.Config.Watch.DebounceDuration()),
	}, nil
}

// Run starts the daemon and blocks until ctx is done. The injected
// history store and publisher stay open; their owner closes them.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.startedAt = time.Now()
	d.mu.Unlock()

	slog.Info("Watch daemon starting",
		logfields.Files(len(d.cfg.Inputs)),
		logfields.Format(strings.Join(d.cfg.Output.Formats, ",")),
		slog.Duration("debounce", d.cfg.Watch.DebounceDuration()),
		slog.Duration("reconcile_interval", d.cfg.Watch.ReconcileDuration()))

	server, err := d.startHTTP()
	if err != nil {
		return err
	}

	watcher, err := d.startWatcher(ctx)
	if err != nil {
		d.shutdownHTTP(server)
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("Could not close file watcher", logfields.Error(err))
		}
	}()

	// First build before the loops start, so output exists as soon as
	// the daemon settles.
	d.runBuild(ctx, reasonStartup, 0)

	scheduler, err := d.startScheduler()
	if err != nil {
		d.shutdownHTTP(server)
		return err
	}

	go d.debouncer.Run(ctx, func(reason string, changes int) {
		d.runBuild(ctx, reason, changes)
	})

	<-ctx.Done()
	slog.Info("Watch daemon stopping")

	if err := scheduler.Shutdown(); err != nil {
		slog.Error("Scheduler shutdown failed", logfields.Error(err))
	}
	d.shutdownHTTP(server)
	return nil
}

// startScheduler schedules the periodic reconcile through the
// debouncer, so scheduled and file-triggered builds share one queue.
func (d *Daemon) startScheduler() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(d.cfg.Watch.ReconcileDuration()),
		gocron.NewTask(func() { d.debouncer.Notify(reasonReconcile) }),
		gocron.WithName("reconcile"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile job: %w", err)
	}
	scheduler.Start()
	return scheduler, nil
}

// startWatcher watches the directories containing the inputs. Watching
// directories instead of files survives editors that replace files on
// save.
func (d *Daemon) startWatcher(ctx context.Context) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	watched := make(map[string]struct{}, len(d.cfg.Inputs))
	dirs := make(map[string]struct{})
	for _, input := range d.cfg.Inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("resolve input path %s: %w", input, err)
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	go d.watchLoop(ctx, watcher, watched)
	return watcher, nil
}

func (d *Daemon) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]struct{}) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[abs]; !ok {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				slog.Debug("Registry file changed",
					logfields.Path(event.Name),
					slog.String("op", event.Op.String()))
				d.debouncer.Notify(reasonChange)
			case event.Op&fsnotify.Remove != 0:
				slog.Warn("Registry file removed", logfields.Path(event.Name))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// runBuild executes one full generation run: fingerprint skip check,
// parse, translate every configured format, record the report, publish
// the event.
func (d *Daemon) runBuild(ctx context.Context, reason string, changes int) {
	d.setBuilding(true)
	defer d.setBuilding(false)

	formats := d.cfg.Output.Formats
	formatKey := strings.Join(formats, ",")
	translateOpts := translate.Options{
		Namespace:      d.cfg.Options.Namespace,
		GleanNamespace: d.cfg.Options.GleanNamespace,
	}

	slog.Info("Build triggered",
		slog.String("reason", reason),
		slog.Int("changes", changes))

	if d.shouldSkip(ctx, formatKey, translateOpts) {
		slog.Info("Inputs unchanged, skipping build", slog.String("reason", reason))
		d.recorder.IncRunOutcome(telemetry.ResultSkipped)
		d.noteSkip()
		d.publishEvent(BuildEvent{
			Status:    StatusSkipped,
			Reason:    reason,
			Formats:   formats,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	start := time.Now()
	rep := report.Begin(formatKey)

	errorCount := 0
	for _, input := range d.cfg.Inputs {
		if err := rep.AddInputFile(input); err != nil {
			slog.Error("Cannot read input", logfields.Path(input), logfields.Error(err))
			errorCount++
		}
	}
	if err := rep.SetOptions(translateOpts); err != nil {
		slog.Warn("Could not hash options", logfields.Error(err))
	}
	if errorCount > 0 {
		d.finishRun(ctx, rep, reason, errorCount, start)
		return
	}

	parseStart := time.Now()
	result := parser.ParseFiles(d.schemas, d.cfg.Inputs, parser.Options{
		AllowReserved: d.cfg.Options.AllowReserved,
	})
	d.recorder.ObserveStageDuration("parse", time.Since(parseStart))

	if len(result.Errors) > 0 {
		for _, perr := range result.Errors {
			d.recorder.IncParseErrors(perr.Kind.String())
			slog.Error("Registry defect",
				logfields.Source(perr.Source),
				slog.String("kind", perr.Kind.String()),
				logfields.Error(perr))
		}
		d.finishRun(ctx, rep, reason, len(result.Errors), start)
		return
	}

	for _, format := range formats {
		stageStart := time.Now()
		files, err := translate.Translate(result.Tree, format, d.cfg.Output.Directory, translateOpts)
		d.recorder.ObserveStageDuration(format, time.Since(stageStart))
		if err != nil {
			slog.Error("Generation failed", logfields.Format(format), logfields.Error(err))
			errorCount++
			continue
		}
		d.recorder.AddFilesWritten(format, len(files))
		for _, file := range files {
			if err := rep.AddOutput(file); err != nil {
				slog.Warn("Could not digest output", logfields.Path(file), logfields.Error(err))
			}
		}
		slog.Info("Generated output",
			logfields.Format(format),
			logfields.Files(len(files)))

		if format == "markdown" {
			d.verifyDocs(files)
		}
	}

	d.finishRun(ctx, rep, reason, errorCount, start)
}

// shouldSkip reports whether the current inputs already produced the
// latest successful run.
func (d *Daemon) shouldSkip(ctx context.Context, formatKey string, opts translate.Options) bool {
	fingerprint, err := report.FingerprintInputs(d.cfg.Inputs, formatKey, opts)
	if err != nil {
		// Unreadable inputs surface as a failed run instead.
		slog.Debug("Could not fingerprint inputs", logfields.Error(err))
		return false
	}
	last, err := d.history.LastSuccessFingerprint(ctx)
	if err != nil {
		if !errors.Is(err, history.ErrNoRuns) {
			slog.Warn("Could not read last fingerprint", logfields.Error(err))
		}
		return false
	}
	return last == fingerprint
}

// verifyDocs checks intra-document links in generated markdown and
// logs findings. Broken links never fail the run.
func (d *Daemon) verifyDocs(files []string) {
	for _, file := range files {
		if filepath.Ext(file) != ".md" {
			continue
		}
		docReport, err := docverify.VerifyFile(file)
		if err != nil {
			slog.Warn("Docs verification failed", logfields.Path(file), logfields.Error(err))
			continue
		}
		for _, link := range docReport.Broken {
			slog.Warn("Broken fragment link in generated docs",
				logfields.Path(file),
				slog.String("fragment", link.Fragment),
				slog.String("text", link.Text))
		}
	}
}

func (d *Daemon) finishRun(ctx context.Context, rep *report.RunReport, reason string, errorCount int, start time.Time) {
	rep.Finish(errorCount)
	duration := time.Since(start)

	if rep.Status == report.StatusSuccess {
		if _, err := rep.Write(d.cfg.Output.Directory); err != nil {
			slog.Warn("Could not write build report", logfields.Error(err))
		}
	}
	if err := d.history.Append(ctx, rep); err != nil {
		slog.Warn("Could not record run history", logfields.Error(err))
	}

	d.recorder.ObserveRunDuration(duration)
	d.recorder.SetLastRun(time.Now())
	if rep.Status == report.StatusSuccess {
		d.recorder.IncRunOutcome(telemetry.ResultSuccess)
	} else {
		d.recorder.IncRunOutcome(telemetry.ResultFailed)
	}

	d.noteRun(rep.Status, errorCount)
	d.publishEvent(BuildEvent{
		RunID:      rep.RunID,
		Status:     rep.Status,
		Reason:     reason,
		Formats:    d.cfg.Output.Formats,
		Files:      len(rep.Outputs),
		Errors:     errorCount,
		DurationMS: float64(rep.DurationMS),
		Timestamp:  time.Now().UTC(),
	})

	slog.Info("Build finished",
		logfields.RunID(rep.RunID),
		slog.String("status", rep.Status),
		logfields.Errors(errorCount),
		logfields.DurationMS(float64(duration.Milliseconds())))
}

func (d *Daemon) publishEvent(event BuildEvent) {
	if err := d.publisher.PublishBuildEvent(event); err != nil {
		slog.Warn("Could not publish build event", logfields.Error(err))
	}
}

func (d *Daemon) setBuilding(v bool) {
	d.mu.Lock()
	d.building = v
	d.mu.Unlock()
}

func (d *Daemon) noteRun(status string, errorCount int) {
	d.mu.Lock()
	d.buildsRun++
	d.lastStatus = status
	if errorCount > 0 {
		d.lastError = fmt.Sprintf("%d errors in last run", errorCount)
	} else {
		d.lastError = ""
	}
	d.mu.Unlock()
}

func (d *Daemon) noteSkip() {
	d.mu.Lock()
	d.buildsSkipped++
	d.lastStatus = StatusSkipped
	d.mu.Unlock()
}
