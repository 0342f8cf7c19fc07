package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evokit/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:          runID,
			Scape:          "onemax",
			PopulationSize: 4,
			GenomeLength:   16,
			Generations:    3,
			Seed:           1,
			Workers:        2,
			Selection:      "rank_based",
			SelectionParam: 2,
			CrossoverRate:  0.9,
			MutationRate:   0.05,
		},
		BestByGeneration: []float64{9, 11, 12},
		GenerationDiagnostics: []model.GenerationDiagnostics{
			{Generation: 0, PopulationSize: 4, Evaluations: 4, BestFitness: 9, MeanFitness: 7.5, MinFitness: 6},
			{Generation: 1, PopulationSize: 4, Evaluations: 4, BestFitness: 11, MeanFitness: 8.25, MinFitness: 7},
			{Generation: 2, PopulationSize: 4, Evaluations: 4, BestFitness: 12, MeanFitness: 10, MinFitness: 8},
		},
		FinalBestFitness: 12,
		Champion:         "1111011111110001",
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-123"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range artifactFiles {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	exportedDir, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range artifactFiles {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}

	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected error exporting a missing run")
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read config: ok=%t err=%v", ok, err)
	}
	if cfg.Selection != "rank_based" || cfg.SelectionParam != 2 || cfg.GenomeLength != 16 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	history, ok, err := ReadFitnessHistory(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read history: ok=%t err=%v", ok, err)
	}
	if len(history.BestByGeneration) != 3 || history.FinalBestFitness != 12 || history.Champion == "" {
		t.Fatalf("unexpected history: %+v", history)
	}

	diagnostics, ok, err := ReadGenerationDiagnostics(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read diagnostics: ok=%t err=%v", ok, err)
	}
	if len(diagnostics) != 3 || diagnostics[1].MeanFitness != 8.25 {
		t.Fatalf("unexpected diagnostics: %+v", diagnostics)
	}

	series, ok, err := ReadBestSeries(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read best series: ok=%t err=%v", ok, err)
	}
	if len(series) != 3 || series[0] != 9 || series[2] != 12 {
		t.Fatalf("unexpected series: %+v", series)
	}

	if _, ok, err := ReadRunConfig(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing config, got ok=%t err=%v", ok, err)
	}
}

func TestDiagnosticsCSVHeader(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-1"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(runDir, diagnosticsCSVFile))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(diagnosticsCSVHeader, ",") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[2], "1,4,0,4,0,11,8.25,7,") {
		t.Fatalf("unexpected row: %s", lines[2])
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-1",
		Scape:            "onemax",
		Selection:        "elitist",
		PopulationSize:   8,
		Generations:      3,
		Seed:             1,
		Workers:          2,
		FinalBestFitness: 0.80,
		CreatedAtUTC:     "2026-02-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-2",
		Scape:            "sphere",
		Selection:        "random",
		PopulationSize:   8,
		Generations:      3,
		Seed:             2,
		Workers:          2,
		FinalBestFitness: 0.82,
		CreatedAtUTC:     "2026-02-10T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-1",
		Scape:            "onemax",
		FinalBestFitness: 0.90,
		CreatedAtUTC:     "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].FinalBestFitness != 0.90 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}

func TestListRunIndexEmptyDir(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %+v", entries)
	}
}
