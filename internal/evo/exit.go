package evo

import (
	"context"
	"time"

	"evokit/internal/weighted"
)

// GenerationLimit stops once the given number of generations has run.
type GenerationLimit[T weighted.Individual] struct {
	Generations int
}

func (l GenerationLimit[T]) Evaluate(_ []T, _ *weighted.Population[T], generation int) (bool, error) {
	return generation >= l.Generations, nil
}

// FitnessTarget stops once any score of the last generation reaches Target.
type FitnessTarget[T weighted.Individual] struct {
	Target float64
}

func (f FitnessTarget[T]) Evaluate(_ []T, scores *weighted.Population[T], _ int) (bool, error) {
	if scores == nil {
		return false, nil
	}
	for _, w := range scores.All() {
		if w >= f.Target {
			return true, nil
		}
	}
	return false, nil
}

// ContextExit stops once Context is done.
type ContextExit[T weighted.Individual] struct {
	Context context.Context
}

func (c ContextExit[T]) Evaluate(_ []T, _ *weighted.Population[T], _ int) (bool, error) {
	if c.Context == nil {
		return false, nil
	}
	return c.Context.Err() != nil, nil
}

// DeadlineExit stops once the wall clock passes Deadline.
type DeadlineExit[T weighted.Individual] struct {
	Deadline time.Time
	Now      func() time.Time
}

func (d DeadlineExit[T]) Evaluate(_ []T, _ *weighted.Population[T], _ int) (bool, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return !now().Before(d.Deadline), nil
}

// AnyExit stops when any of its strategies does. Strategies are consulted in
// order and the first error is returned.
type AnyExit[T weighted.Individual] []ExitStrategy[T]

func (a AnyExit[T]) Evaluate(population []T, scores *weighted.Population[T], generation int) (bool, error) {
	for _, s := range a {
		if s == nil {
			continue
		}
		done, err := s.Evaluate(population, scores, generation)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}
