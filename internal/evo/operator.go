package evo

import (
	"context"

	"evokit/internal/weighted"
)

// Recombination produces offspring from the current population. The engine
// places no constraint on the number of offspring.
type Recombination[T weighted.Individual] interface {
	Recombine(ctx context.Context, population []T) ([]T, error)
}

// Mutation perturbs a collection of offspring.
type Mutation[T weighted.Individual] interface {
	Mutate(ctx context.Context, offspring []T) ([]T, error)
}

// Fitness maps an individual to a non-negative score.
type Fitness[T weighted.Individual] interface {
	Score(ctx context.Context, individual T) (float64, error)
}

// ExitStrategy reports whether evolution should stop. scores holds the
// weighted scores of the previous generation and is empty at generation 0.
type ExitStrategy[T weighted.Individual] interface {
	Evaluate(population []T, scores *weighted.Population[T], generation int) (bool, error)
}

// Selection builds the next generation from scored offspring.
type Selection[T weighted.Individual] interface {
	Select(population []T, scores *weighted.Population[T]) ([]T, error)
}

type RecombinationFunc[T weighted.Individual] func(ctx context.Context, population []T) ([]T, error)

func (f RecombinationFunc[T]) Recombine(ctx context.Context, population []T) ([]T, error) {
	return f(ctx, population)
}

type MutationFunc[T weighted.Individual] func(ctx context.Context, offspring []T) ([]T, error)

func (f MutationFunc[T]) Mutate(ctx context.Context, offspring []T) ([]T, error) {
	return f(ctx, offspring)
}

type FitnessFunc[T weighted.Individual] func(ctx context.Context, individual T) (float64, error)

func (f FitnessFunc[T]) Score(ctx context.Context, individual T) (float64, error) {
	return f(ctx, individual)
}

type ExitFunc[T weighted.Individual] func(population []T, scores *weighted.Population[T], generation int) (bool, error)

func (f ExitFunc[T]) Evaluate(population []T, scores *weighted.Population[T], generation int) (bool, error) {
	return f(population, scores, generation)
}

type SelectionFunc[T weighted.Individual] func(population []T, scores *weighted.Population[T]) ([]T, error)

func (f SelectionFunc[T]) Select(population []T, scores *weighted.Population[T]) ([]T, error) {
	return f(population, scores)
}

// IdentityRecombination returns the population as its own offspring.
type IdentityRecombination[T weighted.Individual] struct{}

func (IdentityRecombination[T]) Recombine(_ context.Context, population []T) ([]T, error) {
	out := make([]T, len(population))
	copy(out, population)
	return out, nil
}

// IdentityMutation leaves offspring untouched.
type IdentityMutation[T weighted.Individual] struct{}

func (IdentityMutation[T]) Mutate(_ context.Context, offspring []T) ([]T, error) {
	return offspring, nil
}
