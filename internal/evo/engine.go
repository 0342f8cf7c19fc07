package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"evokit/internal/weighted"
)

var ErrInvalidArgument = errors.New("invalid argument")

type EngineConfig[T weighted.Individual] struct {
	// Workers bounds concurrent fitness scoring. Values <= 1 score serially.
	Workers   int
	Observers []Observer[T]
	Logger    *slog.Logger
}

// Engine runs the generational loop: exit check, recombination, mutation,
// fitness scoring and selection, until the exit strategy reports true.
type Engine[T weighted.Individual] struct {
	workers   int
	observers observers[T]
	logger    *slog.Logger
}

func NewEngine[T weighted.Individual](cfg EngineConfig[T]) *Engine[T] {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	obs := make(observers[T], 0, len(cfg.Observers))
	for _, o := range cfg.Observers {
		if o != nil {
			obs = append(obs, o)
		}
	}
	return &Engine[T]{
		workers:   workers,
		observers: obs,
		logger:    logger,
	}
}

// Evolve runs a single-worker engine without observers.
func Evolve[T weighted.Individual](
	ctx context.Context,
	individuals []T,
	exit ExitStrategy[T],
	recombination Recombination[T],
	mutation Mutation[T],
	fitness Fitness[T],
	selection Selection[T],
) ([]T, error) {
	return NewEngine(EngineConfig[T]{}).Evolve(ctx, individuals, exit, recombination, mutation, fitness, selection)
}

// Evolve returns the population for which exit first reports true. Errors
// raised by any callback are returned unmodified and no population is
// returned with them.
func (e *Engine[T]) Evolve(
	ctx context.Context,
	individuals []T,
	exit ExitStrategy[T],
	recombination Recombination[T],
	mutation Mutation[T],
	fitness Fitness[T],
	selection Selection[T],
) ([]T, error) {
	switch {
	case len(individuals) == 0:
		return nil, fmt.Errorf("%w: individuals must be non-empty", ErrInvalidArgument)
	case exit == nil:
		return nil, fmt.Errorf("%w: exit strategy is required", ErrInvalidArgument)
	case recombination == nil:
		return nil, fmt.Errorf("%w: recombination is required", ErrInvalidArgument)
	case mutation == nil:
		return nil, fmt.Errorf("%w: mutation is required", ErrInvalidArgument)
	case fitness == nil:
		return nil, fmt.Errorf("%w: fitness is required", ErrInvalidArgument)
	case selection == nil:
		return nil, fmt.Errorf("%w: selection is required", ErrInvalidArgument)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	population := individuals
	scores := weighted.New[T]()

	for generation := 0; ; generation++ {
		done, err := exit.Evaluate(population, scores, generation)
		if err != nil {
			return nil, err
		}
		if done {
			e.logger.Debug("exit succeeded", "generation", generation, "population", len(population))
			e.observers.exitSucceeded(generation, population)
			return population, nil
		}
		e.observers.exitFailed(generation, population)

		recombined, err := recombination.Recombine(ctx, population)
		if err != nil {
			return nil, err
		}
		e.observers.recombined(generation, recombined)

		mutated, err := mutation.Mutate(ctx, recombined)
		if err != nil {
			return nil, err
		}
		e.observers.mutated(generation, mutated)

		scores, err = e.score(ctx, generation, mutated, fitness)
		if err != nil {
			return nil, err
		}

		population, err = selection.Select(mutated, scores)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("generation selected",
			"generation", generation,
			"offspring", len(mutated),
			"scored", scores.Len(),
			"total_weight", scores.TotalWeight(),
			"population", len(population),
		)
		e.observers.selected(generation, population)
	}
}

// score computes every fitness before building the weighted population so
// that selection always reads a complete generation.
func (e *Engine[T]) score(ctx context.Context, generation int, offspring []T, fitness Fitness[T]) (*weighted.Population[T], error) {
	values := make([]float64, len(offspring))

	if e.workers <= 1 || len(offspring) <= 1 {
		for i, individual := range offspring {
			v, err := fitness.Score(ctx, individual)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i := range offspring {
			g.Go(func() error {
				v, err := fitness.Score(gctx, offspring[i])
				if err != nil {
					return err
				}
				values[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	scores := weighted.NewWithCapacity[T](len(offspring))
	for i, individual := range offspring {
		if err := scores.Put(individual, values[i]); err != nil {
			return nil, fmt.Errorf("score %s: %w", individual.Key(), err)
		}
		e.observers.fitnessCalculated(generation, individual, values[i])
	}
	return scores, nil
}
