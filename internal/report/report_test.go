package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportRoundTrip(t *testing.T) {
	r := Begin("kotlin")
	if r.RunID == "" {
		t.Fatal("Begin should assign a run id")
	}
	if r.Status != StatusSuccess {
		t.Fatalf("expected initial status %q, got %q", StatusSuccess, r.Status)
	}

	r.AddInput("metrics.yaml", []byte("content-a"))
	r.AddInput("pings.yaml", []byte("content-b"))
	if err := r.SetOptions(map[string]string{"namespace": "GleanMetrics"}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}

	dir := t.TempDir()
	outFile := filepath.Join(dir, "Metrics.kt")
	if err := os.WriteFile(outFile, []byte("internal object Metrics {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.AddOutput(outFile); err != nil {
		t.Fatalf("AddOutput failed: %v", err)
	}

	r.Finish(0)
	if r.DurationMS < 0 {
		t.Errorf("duration should not be negative, got %d", r.DurationMS)
	}

	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}

	if restored.RunID != r.RunID {
		t.Errorf("expected run id %s, got %s", r.RunID, restored.RunID)
	}
	if len(restored.Inputs) != 2 {
		t.Errorf("expected 2 inputs, got %d", len(restored.Inputs))
	}
	if restored.Inputs[0].Digest == "" || len(restored.Inputs[0].Digest) != 16 {
		t.Errorf("expected 16-char xxhash digest, got %q", restored.Inputs[0].Digest)
	}
	if len(restored.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(restored.Outputs))
	}
	if len(restored.Outputs[0].SHA256) != 64 {
		t.Errorf("expected 64-char sha256, got %q", restored.Outputs[0].SHA256)
	}
	if restored.Status != StatusSuccess {
		t.Errorf("expected status %q, got %q", StatusSuccess, restored.Status)
	}
}

func TestFinishMarksFailed(t *testing.T) {
	r := Begin("swift")
	r.Finish(3)

	if r.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, r.Status)
	}
	if r.ErrorCount != 3 {
		t.Errorf("expected error count 3, got %d", r.ErrorCount)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Error("finish time should not precede start time")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	build := func(order []string) *RunReport {
		r := Begin("kotlin")
		for _, name := range order {
			r.AddInput(name, []byte("payload-"+name))
		}
		if err := r.SetOptions(map[string]string{"namespace": "Telemetry"}); err != nil {
			t.Fatal(err)
		}
		return r
	}

	r1 := build([]string{"a.yaml", "b.yaml"})
	r2 := build([]string{"b.yaml", "a.yaml"})

	fp1, err := r1.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	fp2, err := r2.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}

	// Run identity and input order must not affect the fingerprint.
	if fp1 != fp2 {
		t.Errorf("expected identical fingerprints, got %s and %s", fp1, fp2)
	}
	if len(fp1) != 64 {
		t.Errorf("expected 64-char hex fingerprint, got %d chars", len(fp1))
	}

	r3 := build([]string{"a.yaml", "b.yaml"})
	r3.AddInput("c.yaml", []byte("payload-c.yaml"))
	fp3, err := r3.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if fp1 == fp3 {
		t.Error("expected fingerprint to change with an extra input")
	}
}

func TestFingerprintChangesWithOptions(t *testing.T) {
	r1 := Begin("kotlin")
	r1.AddInput("a.yaml", []byte("same"))
	if err := r1.SetOptions(map[string]string{"namespace": "One"}); err != nil {
		t.Fatal(err)
	}

	r2 := Begin("kotlin")
	r2.AddInput("a.yaml", []byte("same"))
	if err := r2.SetOptions(map[string]string{"namespace": "Two"}); err != nil {
		t.Fatal(err)
	}

	fp1, _ := r1.Fingerprint()
	fp2, _ := r2.Fingerprint()
	if fp1 == fp2 {
		t.Error("expected fingerprint to change with options")
	}

	r3 := Begin("swift")
	r3.AddInput("a.yaml", []byte("same"))
	if err := r3.SetOptions(map[string]string{"namespace": "One"}); err != nil {
		t.Fatal(err)
	}
	fp3, _ := r3.Fingerprint()
	if fp1 == fp3 {
		t.Error("expected fingerprint to change with the output format")
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()

	r := Begin("markdown")
	r.AddInput("metrics.yaml", []byte("x"))
	r.Finish(0)

	path, err := r.Write(dir)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Errorf("expected report file %s, got %s", FileName, filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("report file should end with a newline")
	}

	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON failed on written report: %v", err)
	}
	if restored.Format != "markdown" {
		t.Errorf("expected format markdown, got %s", restored.Format)
	}
}

func TestFingerprintInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	if err := os.WriteFile(a, []byte("alpha"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("beta"), 0o600); err != nil {
		t.Fatal(err)
	}

	opts := map[string]string{"namespace": "GleanMetrics"}
	fp1, err := FingerprintInputs([]string{a, b}, "kotlin", opts)
	if err != nil {
		t.Fatalf("FingerprintInputs failed: %v", err)
	}
	fp2, err := FingerprintInputs([]string{b, a}, "kotlin", opts)
	if err != nil {
		t.Fatalf("FingerprintInputs failed: %v", err)
	}
	if fp1 != fp2 {
		t.Error("input order should not affect the fingerprint")
	}

	if err := os.WriteFile(a, []byte("alpha-changed"), 0o600); err != nil {
		t.Fatal(err)
	}
	fp3, err := FingerprintInputs([]string{a, b}, "kotlin", opts)
	if err != nil {
		t.Fatalf("FingerprintInputs failed: %v", err)
	}
	if fp1 == fp3 {
		t.Error("changed content should change the fingerprint")
	}

	if _, err := FingerprintInputs([]string{filepath.Join(dir, "missing.yaml")}, "kotlin", opts); err == nil {
		t.Error("expected an error for a missing input")
	}
}

func TestReportJSONStructure(t *testing.T) {
	r := Begin("kotlin")
	r.AddInput("metrics.yaml", []byte("x"))
	r.Finish(1)

	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	required := []string{"run_id", "started_at", "finished_at", "duration_ms", "format", "inputs", "error_count", "status"}
	for _, field := range required {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
	if parsed["status"] != StatusFailed {
		t.Errorf("expected status %q in JSON, got %v", StatusFailed, parsed["status"])
	}
}
