package evokit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"evokit/internal/config"
	"evokit/internal/evo"
	"evokit/internal/model"
	"evokit/internal/monitor"
	"evokit/internal/scape"
	"evokit/internal/stats"
	"evokit/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "evokit.db"
)

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	// MetricsRegisterer enables Prometheus engine metrics when set.
	MetricsRegisterer prometheus.Registerer
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *monitor.Metrics
	now     func() time.Time

	artifactsDir string
	exportsDir   string

	initMu      sync.Mutex
	initialized bool
}

type RunRequest struct {
	RunID          string
	Scape          string
	Population     int
	GenomeLength   int
	Generations    int
	FitnessTarget  float64
	Timeout        time.Duration
	Seed           int64
	Workers        int
	Selection      string
	SelectionParam int
	CrossoverRate  float64
	MutationRate   float64
	MutationSigma  float64
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Scape            string
	Generations      int
	PopulationSize   int
	Evaluations      int
	BestByGeneration []float64
	FinalBestFitness float64
	Champion         string
	Duration         time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Scape            string
	Selection        string
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ScapeItem struct {
	Name        string
	Description string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	var metrics *monitor.Metrics
	if opts.MetricsRegisterer != nil {
		metrics, err = monitor.NewMetrics(opts.MetricsRegisterer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return &Client{
		store:        store,
		logger:       logger,
		metrics:      metrics,
		now:          time.Now,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store. It is safe to call more than once.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// DefaultRunRequest returns a request carrying the default run settings.
func DefaultRunRequest() RunRequest {
	return RunRequestFromConfig(config.Default())
}

// RunRequestFromConfig maps a loaded config onto a run request.
func RunRequestFromConfig(cfg *config.Config) RunRequest {
	return RunRequest{
		Scape:          cfg.Scape,
		Population:     cfg.Population,
		GenomeLength:   cfg.Operators.GenomeLength,
		Generations:    cfg.Generations,
		FitnessTarget:  cfg.FitnessTarget,
		Timeout:        cfg.Timeout,
		Seed:           cfg.Seed,
		Workers:        cfg.Workers,
		Selection:      cfg.Selection.Name,
		SelectionParam: cfg.Selection.Param,
		CrossoverRate:  cfg.Operators.CrossoverRate,
		MutationRate:   cfg.Operators.MutationRate,
		MutationSigma:  cfg.Operators.MutationSigma,
	}
}

// Run evolves one scape, then records its telemetry in the store and its
// artifacts on disk.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	req = withDefaults(req)
	s, err := scape.Resolve(req.Scape)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := c.logger.With("run_id", runID)
	recorder := monitor.NewRecorder()

	started := c.now().UTC()
	logger.Info("run started", "scape", s.Name(), "population", req.Population, "generations", req.Generations, "selection", req.Selection)
	outcome, err := s.Run(ctx, scape.RunSpec{
		Population:     req.Population,
		GenomeLength:   req.GenomeLength,
		Generations:    req.Generations,
		FitnessTarget:  req.FitnessTarget,
		Timeout:        req.Timeout,
		Seed:           req.Seed,
		Workers:        req.Workers,
		Selection:      req.Selection,
		SelectionParam: req.SelectionParam,
		CrossoverRate:  req.CrossoverRate,
		MutationRate:   req.MutationRate,
		MutationSigma:  req.MutationSigma,
		Instrumentation: scape.Instrumentation{
			Logger:   logger,
			Recorder: recorder,
			Metrics:  c.metrics,
		},
	})
	if err != nil {
		return RunSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}
	duration := c.now().UTC().Sub(started)

	diagnostics := recorder.Diagnostics()
	bestByGeneration := recorder.BestByGeneration()
	createdAt := started.Format(time.RFC3339Nano)

	record := model.RunRecord{
		ID:               runID,
		Scape:            s.Name(),
		Selection:        req.Selection,
		SelectionParam:   req.SelectionParam,
		PopulationSize:   req.Population,
		GenerationLimit:  req.Generations,
		Generations:      outcome.Generations,
		FitnessTarget:    req.FitnessTarget,
		Seed:             req.Seed,
		Workers:          req.Workers,
		Evaluations:      recorder.Evaluations(),
		FinalBestFitness: outcome.BestFitness,
		Champion:         outcome.Champion,
		CreatedAtUTC:     createdAt,
		DurationMillis:   duration.Milliseconds(),
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, diagnostics); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, bestByGeneration); err != nil {
		return RunSummary{}, err
	}

	runDir, err := stats.WriteRunArtifacts(c.artifactsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:          runID,
			Scape:          s.Name(),
			PopulationSize: req.Population,
			GenomeLength:   req.GenomeLength,
			Generations:    req.Generations,
			FitnessTarget:  req.FitnessTarget,
			Seed:           req.Seed,
			Workers:        req.Workers,
			Selection:      req.Selection,
			SelectionParam: req.SelectionParam,
			CrossoverRate:  req.CrossoverRate,
			MutationRate:   req.MutationRate,
			MutationSigma:  req.MutationSigma,
		},
		BestByGeneration:      bestByGeneration,
		GenerationDiagnostics: diagnostics,
		FinalBestFitness:      outcome.BestFitness,
		Champion:              outcome.Champion,
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.artifactsDir, stats.RunIndexEntry{
		RunID:            runID,
		Scape:            s.Name(),
		Selection:        req.Selection,
		PopulationSize:   req.Population,
		Generations:      outcome.Generations,
		Seed:             req.Seed,
		Workers:          req.Workers,
		FinalBestFitness: outcome.BestFitness,
		CreatedAtUTC:     createdAt,
	}); err != nil {
		return RunSummary{}, err
	}

	logger.Info("run finished", "generations", outcome.Generations, "best_fitness", outcome.BestFitness, "duration", duration)
	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		Scape:            s.Name(),
		Generations:      outcome.Generations,
		PopulationSize:   outcome.PopulationSize,
		Evaluations:      record.Evaluations,
		BestByGeneration: bestByGeneration,
		FinalBestFitness: outcome.BestFitness,
		Champion:         outcome.Champion,
		Duration:         duration,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Scape:            e.Scape,
			Selection:        e.Selection,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	if _, ok, err := stats.ReadRunConfig(c.artifactsDir, runID); err != nil {
		return ExportSummary{}, err
	} else if !ok {
		return ExportSummary{}, fmt.Errorf("run artifacts not found for run id: %s", runID)
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// FitnessHistory returns the best fitness of each generation. Runs missing
// from the store, such as those recorded by another process with the memory
// backend, are read back from their artifacts.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		artifact, found, err := stats.ReadFitnessHistory(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		history = artifact.BestByGeneration
		if !found {
			// Older or partially copied runs may only carry the diagnostics CSV.
			history, found, err = stats.ReadBestSeries(c.artifactsDir, runID)
			if err != nil {
				return nil, err
			}
		}
		if !found {
			return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) Scapes() []ScapeItem {
	scapes := scape.List()
	out := make([]ScapeItem, 0, len(scapes))
	for _, s := range scapes {
		out = append(out, ScapeItem{Name: s.Name(), Description: s.Description()})
	}
	return out
}

func (c *Client) resolveRunID(runID string, latest bool, op string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%s requires run id or latest", op)
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoRuns
	}
	return entries[0].RunID, nil
}

// withDefaults fills only the fields whose zero value could never run.
// Generations, seed, target and operator rates are taken as given, zero
// included.
func withDefaults(req RunRequest) RunRequest {
	def := config.Default()
	if req.Scape == "" {
		req.Scape = def.Scape
	}
	if req.Population <= 0 {
		req.Population = def.Population
	}
	if req.GenomeLength <= 0 {
		req.GenomeLength = def.Operators.GenomeLength
	}
	if req.Workers <= 0 {
		req.Workers = def.Workers
	}
	if req.Selection == "" {
		req.Selection = def.Selection.Name
	}
	if req.SelectionParam == 0 && evo.SelectionTakesParam(req.Selection) {
		req.SelectionParam = max(1, req.Population/5)
	}
	return req
}
