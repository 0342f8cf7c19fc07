package scape

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"evokit/internal/evo"
	"evokit/internal/monitor"
	"evokit/internal/weighted"
)

// problem bundles what a scape hands to the shared engine runner.
type problem[T weighted.Copyable[T]] struct {
	name          string
	initial       []T
	recombination evo.Recombination[T]
	mutation      evo.Mutation[T]
	fitness       evo.Fitness[T]
	render        func(T) string
}

func runProblem[T weighted.Copyable[T]](ctx context.Context, spec RunSpec, selectionRand *rand.Rand, p problem[T]) (Outcome, error) {
	selection, err := evo.NewSelectionByName[T](spec.Selection, selectionRand, spec.SelectionParam)
	if err != nil {
		return Outcome{}, err
	}

	exit := evo.AnyExit[T]{
		evo.GenerationLimit[T]{Generations: spec.Generations},
		evo.ContextExit[T]{Context: ctx},
	}
	if spec.FitnessTarget > 0 {
		exit = append(exit, evo.FitnessTarget[T]{Target: spec.FitnessTarget})
	}
	if spec.Timeout > 0 {
		exit = append(exit, evo.DeadlineExit[T]{Deadline: time.Now().Add(spec.Timeout)})
	}

	champion := &championObserver[T]{best: math.Inf(-1)}
	observers := []evo.Observer[T]{champion}
	inst := spec.Instrumentation
	if inst.Logger != nil {
		observers = append(observers, monitor.NewLogObserver[T](inst.Logger.With("scape", p.name)))
	}
	if inst.Recorder != nil {
		observers = append(observers, monitor.NewRecorderObserver[T](inst.Recorder))
	}
	if inst.Metrics != nil {
		observers = append(observers, monitor.NewMetricsObserver[T](inst.Metrics, p.name))
	}

	engine := evo.NewEngine(evo.EngineConfig[T]{
		Workers:   spec.Workers,
		Observers: observers,
		Logger:    inst.Logger,
	})
	final, err := engine.Evolve(ctx, p.initial, exit, p.recombination, p.mutation, p.fitness, selection)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Generations:    champion.generations,
		PopulationSize: len(final),
	}
	if champion.found {
		out.BestFitness = champion.best
		out.Champion = p.render(champion.individual)
	}
	return out, nil
}

// championObserver keeps the best scored individual seen during a run.
type championObserver[T weighted.Individual] struct {
	evo.NopObserver[T]
	best        float64
	individual  T
	found       bool
	generations int
}

func (o *championObserver[T]) FitnessCalculated(_ int, individual T, score float64) {
	if score > o.best {
		o.best = score
		o.individual = individual
		o.found = true
	}
}

func (o *championObserver[T]) Selected(generation int, _ []T) {
	o.generations = generation + 1
}

// pairwise shuffles population into pairs and recombines each pair with
// probability rate. Unpaired and unselected members pass through unchanged.
func pairwise[T any](rng *rand.Rand, population []T, rate float64, cross func(a, b T) (T, T)) []T {
	out := make([]T, len(population))
	order := rng.Perm(len(population))
	for i := 0; i < len(order); i += 2 {
		if i+1 == len(order) {
			out[i] = population[order[i]]
			break
		}
		a, b := population[order[i]], population[order[i+1]]
		if rng.Float64() < rate {
			a, b = cross(a, b)
		}
		out[i], out[i+1] = a, b
	}
	return out
}

// newID derives an individual identifier from rng so seeded runs are
// reproducible end to end.
func newID(rng *rand.Rand) string {
	return uuid.Must(uuid.NewRandomFromReader(rng)).String()
}
