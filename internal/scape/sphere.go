package scape

import (
	"context"
	"math/rand"
	"strconv"
	"strings"

	"evokit/internal/evo"
)

const sphereBound = 5.12

// Vector is a real-valued genome. Its coordinates are never modified after
// construction.
type Vector struct {
	id string
	X  []float64
}

func NewVector(id string, x []float64) *Vector {
	return &Vector{id: id, X: x}
}

func (v *Vector) Key() string { return v.id }

func (v *Vector) ShallowCopy() *Vector {
	return &Vector{id: v.id, X: v.X}
}

func (v *Vector) String() string {
	parts := make([]string, len(v.X))
	for i, x := range v.X {
		parts[i] = strconv.FormatFloat(x, 'f', 4, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Sphere maximizes 1/(1+sum(x^2)), peaking at 1 in the origin.
type Sphere struct{}

func (Sphere) Name() string { return "sphere" }

func (Sphere) Description() string {
	return "minimize the sphere function over [-5.12,5.12]^n; fitness is 1/(1+sum x^2)"
}

func (Sphere) Run(ctx context.Context, spec RunSpec) (Outcome, error) {
	if err := validateSpec(spec); err != nil {
		return Outcome{}, err
	}
	rng := rand.New(rand.NewSource(spec.Seed))
	selectionRand := rand.New(rand.NewSource(spec.Seed + 1))

	initial := make([]*Vector, spec.Population)
	for i := range initial {
		x := make([]float64, spec.GenomeLength)
		for j := range x {
			x[j] = (rng.Float64()*2 - 1) * sphereBound
		}
		initial[i] = NewVector(newID(rng), x)
	}

	return runProblem(ctx, spec, selectionRand, problem[*Vector]{
		name:          Sphere{}.Name(),
		initial:       initial,
		recombination: UniformCrossover(rng, spec.CrossoverRate),
		mutation:      GaussianMutation(rng, spec.MutationRate, spec.MutationSigma),
		fitness:       SphereFitness(),
		render:        (*Vector).String,
	})
}

func SphereFitness() evo.Fitness[*Vector] {
	return evo.FitnessFunc[*Vector](func(_ context.Context, v *Vector) (float64, error) {
		sum := 0.0
		for _, x := range v.X {
			sum += x * x
		}
		return 1 / (1 + sum), nil
	})
}

// UniformCrossover picks each coordinate of a child from either parent with
// equal probability.
func UniformCrossover(rng *rand.Rand, rate float64) evo.Recombination[*Vector] {
	return evo.RecombinationFunc[*Vector](func(_ context.Context, population []*Vector) ([]*Vector, error) {
		return pairwise(rng, population, rate, func(a, b *Vector) (*Vector, *Vector) {
			n := min(len(a.X), len(b.X))
			left := append([]float64(nil), a.X...)
			right := append([]float64(nil), b.X...)
			for i := 0; i < n; i++ {
				if rng.Intn(2) == 0 {
					left[i], right[i] = b.X[i], a.X[i]
				}
			}
			return NewVector(newID(rng), left), NewVector(newID(rng), right)
		}), nil
	})
}

// GaussianMutation adds N(0, sigma) noise to each coordinate with
// probability rate, clamped to the search bounds.
func GaussianMutation(rng *rand.Rand, rate, sigma float64) evo.Mutation[*Vector] {
	return evo.MutationFunc[*Vector](func(_ context.Context, offspring []*Vector) ([]*Vector, error) {
		out := make([]*Vector, len(offspring))
		for i, v := range offspring {
			var x []float64
			for j := range v.X {
				if rng.Float64() >= rate {
					continue
				}
				if x == nil {
					x = append([]float64(nil), v.X...)
				}
				x[j] = max(-sphereBound, min(sphereBound, x[j]+rng.NormFloat64()*sigma))
			}
			if x == nil {
				out[i] = v
				continue
			}
			out[i] = NewVector(newID(rng), x)
		}
		return out, nil
	})
}
