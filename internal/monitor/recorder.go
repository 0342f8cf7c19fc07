package monitor

import (
	"math"
	"sync"

	"evokit/internal/evo"
	"evokit/internal/model"
	"evokit/internal/weighted"
)

// Recorder accumulates per-generation diagnostics from engine notifications.
type Recorder struct {
	mu          sync.Mutex
	current     *generationAccumulator
	diagnostics []model.GenerationDiagnostics
	finished    bool
	generations int
}

type generationAccumulator struct {
	diag   model.GenerationDiagnostics
	scores map[string]float64
	order  []string
	sum    float64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Diagnostics returns a copy of the completed generations.
func (r *Recorder) Diagnostics() []model.GenerationDiagnostics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.GenerationDiagnostics, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}

// BestByGeneration returns the best fitness of each completed generation.
func (r *Recorder) BestByGeneration() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, len(r.diagnostics))
	for i, d := range r.diagnostics {
		out[i] = d.BestFitness
	}
	return out
}

// Evaluations is the total number of fitness evaluations observed.
func (r *Recorder) Evaluations() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, d := range r.diagnostics {
		total += d.Evaluations
	}
	return total
}

// Finished reports whether the exit strategy succeeded and at which
// generation.
func (r *Recorder) Finished() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations, r.finished
}

func (r *Recorder) begin(generation, populationSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = &generationAccumulator{
		diag: model.GenerationDiagnostics{
			Generation:     generation,
			PopulationSize: populationSize,
		},
		scores: make(map[string]float64),
	}
}

func (r *Recorder) offspring(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.diag.OffspringCount = count
	}
}

func (r *Recorder) scored(key string, score float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc := r.current
	if acc == nil {
		return
	}
	acc.diag.Evaluations++
	if _, seen := acc.scores[key]; !seen {
		acc.order = append(acc.order, key)
	}
	acc.scores[key] = score
}

func (r *Recorder) selected(count int, distinct int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc := r.current
	if acc == nil {
		return
	}
	r.current = nil

	// Later scores overwrite earlier ones for the same key, as in the
	// weighted population handed to selection.
	best, lowest := math.Inf(-1), math.Inf(1)
	for _, key := range acc.order {
		v := acc.scores[key]
		acc.sum += v
		best = math.Max(best, v)
		lowest = math.Min(lowest, v)
	}
	d := acc.diag
	d.ScoredCount = len(acc.order)
	if d.ScoredCount > 0 {
		d.BestFitness = best
		d.MinFitness = lowest
		d.MeanFitness = acc.sum / float64(d.ScoredCount)
	}
	d.TotalWeight = acc.sum
	d.SelectedCount = count
	d.DistinctCount = distinct
	r.diagnostics = append(r.diagnostics, d)
}

func (r *Recorder) finish(generation int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true
	r.generations = generation
}

// NewRecorderObserver adapts r to the engine's observer contract.
func NewRecorderObserver[T weighted.Individual](r *Recorder) evo.Observer[T] {
	return recorderObserver[T]{r: r}
}

type recorderObserver[T weighted.Individual] struct {
	evo.NopObserver[T]
	r *Recorder
}

func (o recorderObserver[T]) ExitFailed(generation int, population []T) {
	o.r.begin(generation, len(population))
}

func (o recorderObserver[T]) Mutated(_ int, offspring []T) {
	o.r.offspring(len(offspring))
}

func (o recorderObserver[T]) FitnessCalculated(_ int, individual T, score float64) {
	o.r.scored(individual.Key(), score)
}

func (o recorderObserver[T]) Selected(_ int, population []T) {
	distinct := make(map[string]struct{}, len(population))
	for _, individual := range population {
		distinct[individual.Key()] = struct{}{}
	}
	o.r.selected(len(population), len(distinct))
}

func (o recorderObserver[T]) ExitSucceeded(generation int, _ []T) {
	o.r.finish(generation)
}
