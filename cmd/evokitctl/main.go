package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"evokit/internal/config"
	"evokit/internal/evo"
	"evokit/internal/storage"
	"evokit/pkg/evokit"
)

const (
	artifactsDir = "runs"
	exportsDir   = "exports"
	dbPath       = "evokit.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "scapes":
		return runScapes(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type clientFlags struct {
	storeKind    *string
	dbPath       *string
	artifactsDir *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", dbPath, "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", artifactsDir, "run artifacts directory"),
	}
}

func (f clientFlags) options() evokit.Options {
	return evokit.Options{
		StoreKind:    *f.storeKind,
		DBPath:       *f.dbPath,
		ArtifactsDir: *f.artifactsDir,
		ExportsDir:   exportsDir,
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional YAML run config path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	scapeName := fs.String("scape", "onemax", "scape name")
	population := fs.Int("population", 50, "population size")
	genomeLength := fs.Int("genome-length", 32, "genome length (bits or dimensions)")
	generations := fs.Int("generations", 100, "generation limit")
	fitnessTarget := fs.Float64("fitness-target", 0, "stop once a score reaches this value (0 disables)")
	timeout := fs.Duration("timeout", 0, "stop once this much wall time has passed (0 disables)")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 1, "concurrent fitness evaluations")
	selection := fs.String("selection", evo.SelectionFitnessProportional, "selection strategy: "+strings.Join(evo.SelectionNames(), "|"))
	selectionParam := fs.Int("selection-param", 0, "rank cutoff for rank_based, pool size for elitist (0 uses population/5)")
	crossoverRate := fs.Float64("crossover-rate", 0.9, "probability a pair is recombined")
	mutationRate := fs.Float64("mutation-rate", 0.02, "per-gene mutation probability")
	mutationSigma := fs.Float64("mutation-sigma", 0.1, "gaussian mutation step for real-valued scapes")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "auto", "log format: auto|text|json")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Only flags given on the command line override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "scape":
			cfg.Scape = *scapeName
		case "population":
			cfg.Population = *population
		case "genome-length":
			cfg.Operators.GenomeLength = *genomeLength
		case "generations":
			cfg.Generations = *generations
		case "fitness-target":
			cfg.FitnessTarget = *fitnessTarget
		case "timeout":
			cfg.Timeout = *timeout
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.Workers = *workers
		case "selection":
			cfg.Selection.Name = *selection
		case "selection-param":
			cfg.Selection.Param = *selectionParam
		case "crossover-rate":
			cfg.Operators.CrossoverRate = *crossoverRate
		case "mutation-rate":
			cfg.Operators.MutationRate = *mutationRate
		case "mutation-sigma":
			cfg.Operators.MutationSigma = *mutationSigma
		case "store":
			cfg.Storage.Kind = *cf.storeKind
		case "db-path":
			cfg.Storage.DBPath = *cf.dbPath
		case "artifacts-dir":
			cfg.Artifacts.Dir = *cf.artifactsDir
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsAddr
		}
	})
	cfg.DefaultSelectionParam()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	opts := evokit.Options{
		StoreKind:    cfg.Storage.Kind,
		DBPath:       cfg.Storage.DBPath,
		ArtifactsDir: cfg.Artifacts.Dir,
		ExportsDir:   exportsDir,
		Logger:       logger,
	}
	if cfg.Metrics.Addr != "" {
		server, err := startMetricsServer(cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer server.shutdown()
		opts.MetricsRegisterer = server.registry
	}

	client, err := evokit.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := evokit.RunRequestFromConfig(cfg)
	req.RunID = *runID
	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s scape=%s pop=%d gens=%d seed=%d selection=%s\n",
		summary.RunID, summary.Scape, cfg.Population, summary.Generations, cfg.Seed, cfg.Selection.Name)
	for i, best := range summary.BestByGeneration {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	fmt.Printf("final_best_fitness=%.6f evaluations=%s duration=%s\n",
		summary.FinalBestFitness, humanize.Comma(int64(summary.Evaluations)), summary.Duration.Round(time.Millisecond))
	if summary.Champion != "" {
		fmt.Printf("champion=%s\n", summary.Champion)
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := evokit.New(cf.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, evokit.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return writeJSON(runs)
	}

	now := time.Now()
	for _, r := range runs {
		fmt.Printf("run_id=%s created=%q scape=%s selection=%s seed=%d pop=%d gens=%d final_best_fitness=%.6f\n",
			r.RunID,
			createdAgo(r.CreatedAtUTC, now),
			r.Scape,
			r.Selection,
			r.Seed,
			r.Population,
			r.Generations,
			r.FinalBestFitness,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "fitness"); err != nil {
		return err
	}

	client, err := evokit.New(cf.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, evokit.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  max(*limit, 0),
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return writeJSON(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "diagnostics"); err != nil {
		return err
	}

	client, err := evokit.New(cf.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, evokit.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  max(*limit, 0),
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d population=%d offspring=%d evaluations=%d best=%.6f mean=%.6f min=%.6f total_weight=%.6f selected=%d distinct=%d\n",
			d.Generation,
			d.PopulationSize,
			d.OffspringCount,
			d.Evaluations,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.TotalWeight,
			d.SelectedCount,
			d.DistinctCount,
		)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "export"); err != nil {
		return err
	}

	client, err := evokit.New(cf.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, evokit.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runScapes(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("scapes", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit scapes as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := evokit.New(cf.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items := client.Scapes()
	if *jsonOut {
		return writeJSON(items)
	}
	for _, item := range items {
		fmt.Printf("scape=%s description=%q\n", item.Name, item.Description)
	}
	return nil
}

func checkRunSelector(runID string, latest bool, command string) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func createdAgo(createdAtUTC string, now time.Time) string {
	created, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.RelTime(created, now, "ago", "from now")
}

func writeJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: evokitctl <run|runs|fitness|diagnostics|export|scapes> [flags]", msg)
}
