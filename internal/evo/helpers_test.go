package evo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"evokit/internal/weighted"
)

type testGenome struct {
	id    string
	value float64
}

func (g *testGenome) Key() string { return g.id }

func (g *testGenome) ShallowCopy() *testGenome {
	c := *g
	return &c
}

func newGenomes(ids ...string) []*testGenome {
	out := make([]*testGenome, len(ids))
	for i, id := range ids {
		out[i] = &testGenome{id: id}
	}
	return out
}

func scoresOf(t *testing.T, genomes []*testGenome, weights ...float64) *weighted.Population[*testGenome] {
	t.Helper()
	require.Len(t, weights, len(genomes))
	scores := weighted.New[*testGenome]()
	for i, g := range genomes {
		require.NoError(t, scores.Put(g, weights[i]))
	}
	return scores
}

func keyCounts(selected []*testGenome) map[string]int {
	counts := make(map[string]int)
	for _, g := range selected {
		counts[g.Key()]++
	}
	return counts
}

// uniformChiSquare is the chi-square statistic of counts against a uniform
// expectation over keys.
func uniformChiSquare(counts map[string]int, keys []string, total int) float64 {
	expected := float64(total) / float64(len(keys))
	chi := 0.0
	for _, k := range keys {
		diff := float64(counts[k]) - expected
		chi += diff * diff / expected
	}
	return chi
}
