package monitor

import (
	"context"
	"log/slog"

	"evokit/internal/evo"
	"evokit/internal/weighted"
)

// NewLogObserver logs generation boundaries at Info and individual fitness
// evaluations at Debug.
func NewLogObserver[T weighted.Individual](logger *slog.Logger) evo.Observer[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return logObserver[T]{logger: logger}
}

type logObserver[T weighted.Individual] struct {
	logger *slog.Logger
}

func (o logObserver[T]) ExitFailed(generation int, population []T) {
	o.logger.Debug("generation started", "generation", generation, "population", len(population))
}

func (o logObserver[T]) Recombined(generation int, offspring []T) {
	o.logger.Debug("recombined", "generation", generation, "offspring", len(offspring))
}

func (o logObserver[T]) Mutated(generation int, offspring []T) {
	o.logger.Debug("mutated", "generation", generation, "offspring", len(offspring))
}

func (o logObserver[T]) FitnessCalculated(generation int, individual T, score float64) {
	if !o.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	o.logger.Debug("fitness calculated", "generation", generation, "individual", individual.Key(), "score", score)
}

func (o logObserver[T]) Selected(generation int, population []T) {
	o.logger.Info("generation selected", "generation", generation, "population", len(population))
}

func (o logObserver[T]) ExitSucceeded(generation int, population []T) {
	o.logger.Info("evolution finished", "generations", generation, "population", len(population))
}
