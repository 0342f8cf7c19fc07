package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evokit/internal/evo"
)

type point struct {
	id    string
	score float64
}

func (p *point) Key() string { return p.id }

func runEngine(t *testing.T, generations int, observers ...evo.Observer[*point]) []*point {
	t.Helper()
	input := []*point{{id: "a", score: 1}, {id: "b", score: 2}, {id: "c", score: 4}}
	selection, err := evo.NewRandomSelection[*point](rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	engine := evo.NewEngine(evo.EngineConfig[*point]{Observers: observers})
	out, err := engine.Evolve(context.Background(), input,
		evo.GenerationLimit[*point]{Generations: generations},
		evo.IdentityRecombination[*point]{},
		evo.IdentityMutation[*point]{},
		evo.FitnessFunc[*point](func(_ context.Context, p *point) (float64, error) { return p.score, nil }),
		selection,
	)
	require.NoError(t, err)
	return out
}

func TestRecorderCollectsGenerationDiagnostics(t *testing.T) {
	rec := NewRecorder()
	runEngine(t, 1, NewRecorderObserver[*point](rec))

	diags := rec.Diagnostics()
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, 0, d.Generation)
	assert.Equal(t, 3, d.PopulationSize)
	assert.Equal(t, 3, d.OffspringCount)
	assert.Equal(t, 3, d.Evaluations)
	assert.Equal(t, 3, d.ScoredCount)
	assert.Equal(t, 4.0, d.BestFitness)
	assert.Equal(t, 1.0, d.MinFitness)
	assert.InDelta(t, 7.0/3.0, d.MeanFitness, 1e-12)
	assert.Equal(t, 7.0, d.TotalWeight)
	assert.Equal(t, 3, d.SelectedCount)
	assert.GreaterOrEqual(t, d.DistinctCount, 1)

	gen, ok := rec.Finished()
	assert.True(t, ok)
	assert.Equal(t, 1, gen)
	assert.Equal(t, []float64{4}, rec.BestByGeneration())
	assert.Equal(t, 3, rec.Evaluations())
}

func TestRecorderUsesLatestScoreForRepeatedIndividuals(t *testing.T) {
	rec := NewRecorder()
	obs := NewRecorderObserver[*point](rec)
	a := &point{id: "a"}

	obs.ExitFailed(0, []*point{a})
	obs.Mutated(0, []*point{a, a})
	obs.FitnessCalculated(0, a, 9)
	obs.FitnessCalculated(0, a, 2)
	obs.Selected(0, []*point{a})

	d := rec.Diagnostics()[0]
	assert.Equal(t, 2, d.Evaluations)
	assert.Equal(t, 1, d.ScoredCount)
	assert.Equal(t, 2.0, d.BestFitness)
	assert.Equal(t, 2.0, d.TotalWeight)
}

func TestMetricsObserverUpdatesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	runEngine(t, 2, NewMetricsObserver[*point](m, "unit"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("unit")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("unit")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.OffspringTotal.WithLabelValues("unit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PopulationSize.WithLabelValues("unit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsFinished.WithLabelValues("unit")))
	assert.LessOrEqual(t, testutil.ToFloat64(m.BestFitness.WithLabelValues("unit")), 4.0)

	_, err = NewMetrics(reg)
	require.Error(t, err, "registering twice must fail")
}

func TestLogObserverWritesGenerationEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	runEngine(t, 1, NewLogObserver[*point](logger))

	out := buf.String()
	assert.Contains(t, out, "generation selected")
	assert.Contains(t, out, "evolution finished")
	assert.Equal(t, 3, strings.Count(out, "fitness calculated"))
}

func TestLogObserverSkipsDebugAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	runEngine(t, 1, NewLogObserver[*point](logger))

	out := buf.String()
	assert.NotContains(t, out, "fitness calculated")
	assert.Contains(t, out, "generation selected")
}
