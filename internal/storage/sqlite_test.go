//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"evokit/internal/model"
)

func openSQLiteStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(path)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func TestSQLiteStoreTelemetryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLiteStore(t, filepath.Join(t.TempDir(), "evokit.db"))
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := model.RunRecord{ID: "run-1", Scape: "onemax", CreatedAtUTC: "2026-01-02T03:04:05Z", FinalBestFitness: 31}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loaded, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || loaded.Scape != "onemax" || loaded.FinalBestFitness != 31 {
		t.Fatalf("unexpected run loaded: ok=%t %+v", ok, loaded)
	}

	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2, 3}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok || len(history) != 3 || history[2] != 3 {
		t.Fatalf("unexpected history: ok=%t err=%v %+v", ok, err, history)
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 3, SelectedCount: 10}}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loadedDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-1")
	if err != nil || !ok || len(loadedDiagnostics) != 1 || loadedDiagnostics[0].SelectedCount != 10 {
		t.Fatalf("unexpected diagnostics: ok=%t err=%v %+v", ok, err, loadedDiagnostics)
	}

	if _, ok, err := store.GetFitnessHistory(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing history, got ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openSQLiteStore(t, filepath.Join(t.TempDir(), "evokit.db"))
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, run := range []model.RunRecord{
		{ID: "old", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{ID: "new", CreatedAtUTC: "2026-03-01T00:00:00Z"},
		{ID: "mid", CreatedAtUTC: "2026-02-01T00:00:00Z"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "new" || runs[1].ID != "mid" || runs[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", runs)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list limited runs: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "new" {
		t.Fatalf("unexpected limited runs: %+v", limited)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "evokit.db")

	first := openSQLiteStore(t, path)
	if err := first.SaveRun(ctx, model.RunRecord{ID: "persisted-run", CreatedAtUTC: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close first store: %v", err)
	}

	second := openSQLiteStore(t, path)
	t.Cleanup(func() {
		_ = second.Close()
	})
	loaded, ok, err := second.GetRun(ctx, "persisted-run")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || loaded.ID != "persisted-run" {
		t.Fatalf("expected persisted run, got ok=%t value=%+v", ok, loaded)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "evokit.db"))
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "run-1"}); err == nil {
		t.Fatal("expected error before init")
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore(KindSQLite, filepath.Join(t.TempDir(), "evokit.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
