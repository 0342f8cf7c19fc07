package scape

import (
	"context"
	"math/rand"
	"strings"

	"evokit/internal/evo"
)

// BitString is a fixed-length bit genome. Its bits are never modified after
// construction; operators build new values instead.
type BitString struct {
	id   string
	Bits []bool
}

func NewBitString(id string, bits []bool) *BitString {
	return &BitString{id: id, Bits: bits}
}

func (b *BitString) Key() string { return b.id }

func (b *BitString) ShallowCopy() *BitString {
	return &BitString{id: b.id, Bits: b.Bits}
}

// Ones counts the set bits.
func (b *BitString) Ones() int {
	n := 0
	for _, bit := range b.Bits {
		if bit {
			n++
		}
	}
	return n
}

func (b *BitString) String() string {
	var sb strings.Builder
	sb.Grow(len(b.Bits))
	for _, bit := range b.Bits {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// OneMax maximizes the number of set bits.
type OneMax struct{}

func (OneMax) Name() string { return "onemax" }

func (OneMax) Description() string {
	return "maximize the set bits of a bit string; fitness is the count of ones"
}

func (OneMax) Run(ctx context.Context, spec RunSpec) (Outcome, error) {
	if err := validateSpec(spec); err != nil {
		return Outcome{}, err
	}
	rng := rand.New(rand.NewSource(spec.Seed))
	selectionRand := rand.New(rand.NewSource(spec.Seed + 1))

	initial := make([]*BitString, spec.Population)
	for i := range initial {
		bits := make([]bool, spec.GenomeLength)
		for j := range bits {
			bits[j] = rng.Intn(2) == 1
		}
		initial[i] = NewBitString(newID(rng), bits)
	}

	return runProblem(ctx, spec, selectionRand, problem[*BitString]{
		name:          OneMax{}.Name(),
		initial:       initial,
		recombination: OnePointCrossover(rng, spec.CrossoverRate),
		mutation:      BitFlipMutation(rng, spec.MutationRate),
		fitness:       OneMaxFitness(),
		render:        (*BitString).String,
	})
}

func OneMaxFitness() evo.Fitness[*BitString] {
	return evo.FitnessFunc[*BitString](func(_ context.Context, b *BitString) (float64, error) {
		return float64(b.Ones()), nil
	})
}

// OnePointCrossover swaps the tails of shuffled pairs after a random cut.
func OnePointCrossover(rng *rand.Rand, rate float64) evo.Recombination[*BitString] {
	return evo.RecombinationFunc[*BitString](func(_ context.Context, population []*BitString) ([]*BitString, error) {
		return pairwise(rng, population, rate, func(a, b *BitString) (*BitString, *BitString) {
			n := min(len(a.Bits), len(b.Bits))
			if n < 2 {
				return a, b
			}
			cut := 1 + rng.Intn(n-1)
			left := append(append(make([]bool, 0, len(a.Bits)), a.Bits[:cut]...), b.Bits[cut:]...)
			right := append(append(make([]bool, 0, len(b.Bits)), b.Bits[:cut]...), a.Bits[cut:]...)
			return NewBitString(newID(rng), left), NewBitString(newID(rng), right)
		}), nil
	})
}

// BitFlipMutation flips each bit independently with probability rate.
// Individuals with no flipped bit are passed through as-is.
func BitFlipMutation(rng *rand.Rand, rate float64) evo.Mutation[*BitString] {
	return evo.MutationFunc[*BitString](func(_ context.Context, offspring []*BitString) ([]*BitString, error) {
		out := make([]*BitString, len(offspring))
		for i, b := range offspring {
			var bits []bool
			for j, bit := range b.Bits {
				if rng.Float64() >= rate {
					continue
				}
				if bits == nil {
					bits = append([]bool(nil), b.Bits...)
				}
				bits[j] = !bit
			}
			if bits == nil {
				out[i] = b
				continue
			}
			out[i] = NewBitString(newID(rng), bits)
		}
		return out, nil
	})
}
