// Package report records what a single generation run consumed and
// produced. Reports serialize to JSON for the output directory and the
// run history, and fingerprint deterministically so unchanged inputs
// can skip a run.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// FileName is the name reports are written under in the output
// directory.
const FileName = "build-report.json"

// Status values a run can end in.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// InputDigest records one input document and a digest of its content.
type InputDigest struct {
	Path string `json:"path"`
	// Digest is the xxhash64 of the raw document bytes, hex encoded.
	Digest string `json:"digest"`
}

// OutputFile records one generated file and its content hash.
type OutputFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// RunReport is the complete record of one generation run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	DurationMS  int64         `json:"duration_ms"`
	Format      string        `json:"format"`
	Inputs      []InputDigest `json:"inputs"`
	OptionsHash string        `json:"options_hash,omitempty"`
	Outputs     []OutputFile  `json:"outputs,omitempty"`
	ErrorCount  int           `json:"error_count"`
	Status      string        `json:"status"`
}

// Begin opens a report for a run starting now.
func Begin(format string) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Format:    format,
		Status:    StatusSuccess,
	}
}

// AddInput digests one input document that is already in memory.
func (r *RunReport) AddInput(path string, content []byte) {
	r.Inputs = append(r.Inputs, InputDigest{
		Path:   path,
		Digest: fmt.Sprintf("%016x", xxhash.Sum64(content)),
	})
}

// AddInputFile reads one input document from disk and digests it.
func (r *RunReport) AddInputFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("digest input: %w", err)
	}
	r.AddInput(path, data)
	return nil
}

// SetOptions hashes the effective generation options. Anything that
// changes the output belongs in here so the fingerprint changes with
// it.
func (r *RunReport) SetOptions(opts any) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	sum := sha256.Sum256(data)
	r.OptionsHash = hex.EncodeToString(sum[:])
	return nil
}

// AddOutput reads one generated file back and records its hash.
func (r *RunReport) AddOutput(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("hash output: %w", err)
	}
	sum := sha256.Sum256(data)
	r.Outputs = append(r.Outputs, OutputFile{
		Path:   path,
		SHA256: hex.EncodeToString(sum[:]),
	})
	return nil
}

// Finish stamps the end time, the duration and the final status.
func (r *RunReport) Finish(errorCount int) {
	r.FinishedAt = time.Now().UTC()
	r.DurationMS = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	r.ErrorCount = errorCount
	if errorCount > 0 {
		r.Status = StatusFailed
	}
}

// ToJSON serializes the report.
func (r *RunReport) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a report.
func FromJSON(data []byte) (*RunReport, error) {
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}

// Write stores the report under its canonical name inside dir and
// returns the path written.
func (r *RunReport) Write(dir string) (string, error) {
	data, err := r.ToJSON()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	// #nosec G306 -- the report documents public generated output
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Fingerprint computes a deterministic hash over the run's inputs,
// format and options. Identity, timing and outputs stay out of it, so
// two runs over identical inputs share a fingerprint.
func (r *RunReport) Fingerprint() (string, error) {
	inputs := append([]InputDigest(nil), r.Inputs...)
	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].Path < inputs[j].Path
	})

	normalized := struct {
		Format      string        `json:"format"`
		Inputs      []InputDigest `json:"inputs"`
		OptionsHash string        `json:"options_hash"`
	}{
		Format:      r.Format,
		Inputs:      inputs,
		OptionsHash: r.OptionsHash,
	}

	data, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("marshal for fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintInputs digests a set of input files without building a
// full report. Watch mode uses it to decide whether anything changed
// since the last run.
func FingerprintInputs(paths []string, format string, opts any) (string, error) {
	r := &RunReport{Format: format}
	if err := r.SetOptions(opts); err != nil {
		return "", err
	}
	for _, path := range paths {
		if err := r.AddInputFile(path); err != nil {
			return "", err
		}
	}
	return r.Fingerprint()
}
