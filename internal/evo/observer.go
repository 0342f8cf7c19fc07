package evo

import "evokit/internal/weighted"

// Observer receives phase notifications from the engine. Within a generation
// the order is ExitFailed, Recombined, Mutated, FitnessCalculated (once per
// offspring), Selected; ExitSucceeded ends the run. Observers cannot alter
// engine behavior.
type Observer[T weighted.Individual] interface {
	ExitFailed(generation int, population []T)
	Recombined(generation int, offspring []T)
	Mutated(generation int, offspring []T)
	FitnessCalculated(generation int, individual T, score float64)
	Selected(generation int, population []T)
	ExitSucceeded(generation int, population []T)
}

// NopObserver implements Observer with no-ops; embed it to handle a subset of
// notifications.
type NopObserver[T weighted.Individual] struct{}

func (NopObserver[T]) ExitFailed(int, []T) {}

func (NopObserver[T]) Recombined(int, []T) {}

func (NopObserver[T]) Mutated(int, []T) {}

func (NopObserver[T]) FitnessCalculated(int, T, float64) {}

func (NopObserver[T]) Selected(int, []T) {}

func (NopObserver[T]) ExitSucceeded(int, []T) {}

type observers[T weighted.Individual] []Observer[T]

func (o observers[T]) exitFailed(generation int, population []T) {
	for _, obs := range o {
		obs.ExitFailed(generation, population)
	}
}

func (o observers[T]) recombined(generation int, offspring []T) {
	for _, obs := range o {
		obs.Recombined(generation, offspring)
	}
}

func (o observers[T]) mutated(generation int, offspring []T) {
	for _, obs := range o {
		obs.Mutated(generation, offspring)
	}
}

func (o observers[T]) fitnessCalculated(generation int, individual T, score float64) {
	for _, obs := range o {
		obs.FitnessCalculated(generation, individual, score)
	}
}

func (o observers[T]) selected(generation int, population []T) {
	for _, obs := range o {
		obs.Selected(generation, population)
	}
}

func (o observers[T]) exitSucceeded(generation int, population []T) {
	for _, obs := range o {
		obs.ExitSucceeded(generation, population)
	}
}
