package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/probeforge/metricgen/internal/logfields"
	"github.com/probeforge/metricgen/internal/report"
	"github.com/probeforge/metricgen/internal/version"
)

type healthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Building      bool      `json:"building"`
	BuildsRun     int       `json:"builds_run"`
	BuildsSkipped int       `json:"builds_skipped"`
}

type statusResponse struct {
	StartedAt     time.Time           `json:"started_at"`
	Building      bool                `json:"building"`
	BuildsRun     int                 `json:"builds_run"`
	BuildsSkipped int                 `json:"builds_skipped"`
	LastStatus    string              `json:"last_status,omitempty"`
	LastError     string              `json:"last_error,omitempty"`
	Recent        []*report.RunReport `json:"recent,omitempty"`
}

// Addr returns the bound listen address, available once Run has
// started the HTTP server. Useful when listening on ":0".
func (d *Daemon) Addr() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.addr
}

// routes builds the endpoint mux. Split from startHTTP so handler
// tests can serve it directly.
func (d *Daemon) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.handleHealth)
	mux.HandleFunc("/status", d.handleStatus)
	if d.metrics != nil {
		mux.Handle("/metrics", d.metrics)
	}
	return mux
}

// startHTTP binds the listen address first so startup fails fast when
// the port is taken, then serves in the background.
func (d *Daemon) startHTTP() (*http.Server, error) {
	listener, err := net.Listen("tcp", d.cfg.Watch.Listen)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", d.cfg.Watch.Listen, err)
	}

	d.mu.Lock()
	d.addr = listener.Addr().String()
	d.mu.Unlock()

	server := &http.Server{
		Handler:           d.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", logfields.Error(err))
		}
	}()

	slog.Info("HTTP endpoints listening", slog.String("address", d.Addr()))
	return server, nil
}

func (d *Daemon) shutdownHTTP(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", logfields.Error(err))
	}
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.RLock()
	resp := healthResponse{
		Status:        "healthy",
		Version:       version.Version,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: time.Since(d.startedAt).Seconds(),
		Building:      d.building,
		BuildsRun:     d.buildsRun,
		BuildsSkipped: d.buildsSkipped,
	}
	d.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d.mu.RLock()
	resp := statusResponse{
		StartedAt:     d.startedAt,
		Building:      d.building,
		BuildsRun:     d.buildsRun,
		BuildsSkipped: d.buildsSkipped,
		LastStatus:    d.lastStatus,
		LastError:     d.lastError,
	}
	d.mu.RUnlock()

	recent, err := d.history.Recent(r.Context(), 10)
	if err != nil {
		slog.Warn("Could not load recent runs", logfields.Error(err))
	} else {
		resp.Recent = recent
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		slog.Error("Could not encode response", logfields.Error(err))
	}
}
