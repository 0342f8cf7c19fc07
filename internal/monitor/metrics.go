package monitor

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"evokit/internal/evo"
	"evokit/internal/weighted"
)

const metricsNamespace = "evokit"

// Metrics holds the Prometheus collectors updated by metrics observers.
type Metrics struct {
	GenerationsTotal *prometheus.CounterVec
	EvaluationsTotal *prometheus.CounterVec
	OffspringTotal   *prometheus.CounterVec
	BestFitness      *prometheus.GaugeVec
	PopulationSize   *prometheus.GaugeVec
	RunsFinished     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Completed generations by scape",
		}, []string{"scape"}),
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "fitness_evaluations_total",
			Help:      "Fitness evaluations by scape",
		}, []string{"scape"}),
		OffspringTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "offspring_total",
			Help:      "Offspring produced after mutation by scape",
		}, []string{"scape"}),
		BestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "best_fitness",
			Help:      "Best fitness of the most recent generation by scape",
		}, []string{"scape"}),
		PopulationSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "population_size",
			Help:      "Size of the most recently selected population by scape",
		}, []string{"scape"}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "engine",
			Name:      "runs_finished_total",
			Help:      "Runs whose exit strategy succeeded by scape",
		}, []string{"scape"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.GenerationsTotal,
		m.EvaluationsTotal,
		m.OffspringTotal,
		m.BestFitness,
		m.PopulationSize,
		m.RunsFinished,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMetricsObserver reports engine progress for one scape to m.
func NewMetricsObserver[T weighted.Individual](m *Metrics, scape string) evo.Observer[T] {
	return &metricsObserver[T]{m: m, scape: scape, best: math.Inf(-1)}
}

type metricsObserver[T weighted.Individual] struct {
	evo.NopObserver[T]
	m     *Metrics
	scape string
	best  float64
}

func (o *metricsObserver[T]) ExitFailed(int, []T) {
	o.best = math.Inf(-1)
}

func (o *metricsObserver[T]) Mutated(_ int, offspring []T) {
	o.m.OffspringTotal.WithLabelValues(o.scape).Add(float64(len(offspring)))
}

func (o *metricsObserver[T]) FitnessCalculated(_ int, _ T, score float64) {
	o.m.EvaluationsTotal.WithLabelValues(o.scape).Inc()
	if score > o.best {
		o.best = score
	}
}

func (o *metricsObserver[T]) Selected(_ int, population []T) {
	o.m.GenerationsTotal.WithLabelValues(o.scape).Inc()
	o.m.PopulationSize.WithLabelValues(o.scape).Set(float64(len(population)))
	if !math.IsInf(o.best, -1) {
		o.m.BestFitness.WithLabelValues(o.scape).Set(o.best)
	}
}

func (o *metricsObserver[T]) ExitSucceeded(int, []T) {
	o.m.RunsFinished.WithLabelValues(o.scape).Inc()
}
