package scape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"evokit/internal/monitor"
	"evokit/internal/scapeid"
)

var ErrUnknownScape = errors.New("unknown scape")

// Scape is a fitness landscape together with the representation and
// operators that search it.
type Scape interface {
	Name() string
	Description() string
	Run(ctx context.Context, spec RunSpec) (Outcome, error)
}

type RunSpec struct {
	Population     int
	GenomeLength   int
	Generations    int
	FitnessTarget  float64 // 0 disables
	Timeout        time.Duration
	Seed           int64
	Workers        int
	Selection      string
	SelectionParam int
	CrossoverRate  float64
	MutationRate   float64
	MutationSigma  float64

	Instrumentation Instrumentation
}

// Instrumentation carries the optional observers attached to a run.
type Instrumentation struct {
	Logger   *slog.Logger
	Recorder *monitor.Recorder
	Metrics  *monitor.Metrics
}

type Outcome struct {
	Generations    int
	PopulationSize int
	BestFitness    float64
	Champion       string
}

var registry = map[string]Scape{
	"onemax": OneMax{},
	"sphere": Sphere{},
}

// Resolve looks a scape up by name. Aliases such as "one-max" are accepted.
func Resolve(name string) (Scape, error) {
	s, ok := registry[scapeid.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScape, name)
	}
	return s, nil
}

// List returns every registered scape ordered by name.
func List() []Scape {
	out := make([]Scape, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func validateSpec(spec RunSpec) error {
	switch {
	case spec.Population <= 0:
		return fmt.Errorf("population must be > 0")
	case spec.GenomeLength <= 0:
		return fmt.Errorf("genome length must be > 0")
	case spec.Generations < 0:
		return fmt.Errorf("generations must be >= 0")
	case spec.CrossoverRate < 0 || spec.CrossoverRate > 1:
		return fmt.Errorf("crossover rate must be in [0,1]")
	case spec.MutationRate < 0 || spec.MutationRate > 1:
		return fmt.Errorf("mutation rate must be in [0,1]")
	}
	return nil
}
