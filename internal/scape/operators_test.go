package scape

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bitStrings(rng *rand.Rand, n, length int) []*BitString {
	out := make([]*BitString, n)
	for i := range out {
		bits := make([]bool, length)
		for j := range bits {
			bits[j] = rng.Intn(2) == 1
		}
		out[i] = NewBitString(newID(rng), bits)
	}
	return out
}

func onesPerPosition(population []*BitString) []int {
	counts := make([]int, len(population[0].Bits))
	for _, b := range population {
		for j, bit := range b.Bits {
			if bit {
				counts[j]++
			}
		}
	}
	return counts
}

func TestBitStringShallowCopy(t *testing.T) {
	b := NewBitString("id-1", []bool{true, false, true})
	c := b.ShallowCopy()

	assert.Equal(t, b.Key(), c.Key())
	assert.NotSame(t, b, c)
	assert.Equal(t, "101", c.String())
	assert.Equal(t, 2, c.Ones())
}

func TestOnePointCrossoverConservesBitsPerPosition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	population := bitStrings(rng, 9, 12)

	out, err := OnePointCrossover(rng, 1).Recombine(context.Background(), population)
	require.NoError(t, err)
	require.Len(t, out, len(population))
	assert.Equal(t, onesPerPosition(population), onesPerPosition(out))
}

func TestOnePointCrossoverWithZeroRatePassesThrough(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	population := bitStrings(rng, 6, 8)

	out, err := OnePointCrossover(rng, 0).Recombine(context.Background(), population)
	require.NoError(t, err)
	assert.ElementsMatch(t, population, out)
}

func TestBitFlipMutation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	population := bitStrings(rng, 4, 10)

	same, err := BitFlipMutation(rng, 0).Mutate(context.Background(), population)
	require.NoError(t, err)
	for i := range population {
		assert.Same(t, population[i], same[i])
	}

	flipped, err := BitFlipMutation(rng, 1).Mutate(context.Background(), population)
	require.NoError(t, err)
	for i, b := range flipped {
		assert.NotEqual(t, population[i].Key(), b.Key())
		assert.Equal(t, 10-population[i].Ones(), b.Ones())
	}
}

func TestOneMaxFitness(t *testing.T) {
	score, err := OneMaxFitness().Score(context.Background(), NewBitString("x", []bool{true, true, false, true}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, score)
}

func TestSphereFitness(t *testing.T) {
	fitness := SphereFitness()

	score, err := fitness.Score(context.Background(), NewVector("origin", []float64{0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	score, err = fitness.Score(context.Background(), NewVector("off", []float64{1, 2}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6.0, score, 1e-12)
}

func TestUniformCrossoverConservesCoordinates(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := NewVector("a", []float64{1, 2, 3, 4})
	b := NewVector("b", []float64{-1, -2, -3, -4})

	out, err := UniformCrossover(rng, 1).Recombine(context.Background(), []*Vector{a, b})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range a.X {
		got := []float64{out[0].X[i], out[1].X[i]}
		sort.Float64s(got)
		assert.Equal(t, []float64{b.X[i], a.X[i]}, got)
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, a.X, "parents are not modified")
}

func TestGaussianMutationStaysInBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	population := []*Vector{NewVector("v", []float64{5, -5, 0})}

	out, err := GaussianMutation(rng, 1, 100).Mutate(context.Background(), population)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEqual(t, "v", out[0].Key())
	for _, x := range out[0].X {
		assert.GreaterOrEqual(t, x, -sphereBound)
		assert.LessOrEqual(t, x, sphereBound)
	}
	assert.Equal(t, []float64{5, -5, 0}, population[0].X)
}

func TestNewIDIsSeeded(t *testing.T) {
	a := newID(rand.New(rand.NewSource(1)))
	b := newID(rand.New(rand.NewSource(1)))
	assert.Equal(t, a, b)
	assert.Len(t, a, 36)
}
