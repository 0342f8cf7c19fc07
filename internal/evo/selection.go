package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"evokit/internal/weighted"
)

var errRandomSourceRequired = fmt.Errorf("%w: random source is required", ErrInvalidArgument)

// RandomSelection draws uniformly from the population with replacement,
// ignoring weights. It still refuses a generation whose total weight is zero.
type RandomSelection[T weighted.Individual] struct {
	Rand *rand.Rand
}

func NewRandomSelection[T weighted.Individual](rng *rand.Rand) (*RandomSelection[T], error) {
	if rng == nil {
		return nil, errRandomSourceRequired
	}
	return &RandomSelection[T]{Rand: rng}, nil
}

func (s *RandomSelection[T]) Select(population []T, scores *weighted.Population[T]) ([]T, error) {
	if s.Rand == nil {
		return nil, errRandomSourceRequired
	}
	if err := requireViable(scores); err != nil {
		return nil, err
	}
	if len(population) == 0 {
		return []T{}, nil
	}
	out := make([]T, len(population))
	for i := range out {
		out[i] = population[s.Rand.Intn(len(population))]
	}
	return out, nil
}

// FitnessProportionalSelection is roulette-wheel selection over the recorded
// scores.
type FitnessProportionalSelection[T weighted.Individual] struct {
	Rand *rand.Rand
}

func NewFitnessProportionalSelection[T weighted.Individual](rng *rand.Rand) (*FitnessProportionalSelection[T], error) {
	if rng == nil {
		return nil, errRandomSourceRequired
	}
	return &FitnessProportionalSelection[T]{Rand: rng}, nil
}

func (s *FitnessProportionalSelection[T]) Select(population []T, scores *weighted.Population[T]) ([]T, error) {
	if s.Rand == nil {
		return nil, errRandomSourceRequired
	}
	if err := requireViable(scores); err != nil {
		return nil, err
	}
	return drawN(s.Rand, scores, len(population), nil)
}

// RankBasedSelection restricts candidates to those ranked within the top Rank
// and samples uniformly among them: every pool member gets the same weight
// Rank/poolSize.
type RankBasedSelection[T weighted.Individual] struct {
	Rand *rand.Rand
	Rank int
}

func NewRankBasedSelection[T weighted.Individual](rng *rand.Rand, rank int) (*RankBasedSelection[T], error) {
	if rng == nil {
		return nil, errRandomSourceRequired
	}
	if rank <= 0 {
		return nil, fmt.Errorf("%w: rank must be > 0, got %d", ErrInvalidArgument, rank)
	}
	return &RankBasedSelection[T]{Rand: rng, Rank: rank}, nil
}

func (s *RankBasedSelection[T]) Select(population []T, scores *weighted.Population[T]) ([]T, error) {
	if s.Rand == nil {
		return nil, errRandomSourceRequired
	}
	if s.Rank <= 0 {
		return nil, fmt.Errorf("%w: rank must be > 0, got %d", ErrInvalidArgument, s.Rank)
	}
	if err := requireViable(scores); err != nil {
		return nil, err
	}

	var members []T
	for individual := range scores.All() {
		if rank, ok := scores.Rank(individual); ok && rank <= s.Rank {
			members = append(members, individual)
		}
	}
	pool, err := flattenedPool(members, float64(s.Rank)/float64(len(members)))
	if err != nil {
		return nil, err
	}
	return drawN(s.Rand, pool, len(population), nil)
}

// SortOrder is the direction in which ElitistSelection orders scores before
// taking its pool.
type SortOrder int

const (
	// Ascending takes the Count lowest-scored individuals.
	Ascending SortOrder = iota
	// Descending takes the Count highest-scored individuals.
	Descending
)

func (o SortOrder) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return fmt.Sprintf("SortOrder(%d)", int(o))
	}
}

// ElitistSelection sorts the scored individuals, keeps the first Count as a
// pool of equal weight 1/Count and fills the next generation with shallow
// copies drawn from it. Copies keep one mutable individual from occupying
// several slots.
//
// The zero Order is Ascending, so the pool holds the lowest scores.
type ElitistSelection[T weighted.Copyable[T]] struct {
	Rand  *rand.Rand
	Count int
	Order SortOrder
}

func NewElitistSelection[T weighted.Copyable[T]](rng *rand.Rand, count int) (*ElitistSelection[T], error) {
	if rng == nil {
		return nil, errRandomSourceRequired
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: elite count must be > 0, got %d", ErrInvalidArgument, count)
	}
	return &ElitistSelection[T]{Rand: rng, Count: count}, nil
}

func (s *ElitistSelection[T]) Select(population []T, scores *weighted.Population[T]) ([]T, error) {
	if s.Rand == nil {
		return nil, errRandomSourceRequired
	}
	if s.Count <= 0 {
		return nil, fmt.Errorf("%w: elite count must be > 0, got %d", ErrInvalidArgument, s.Count)
	}
	if err := requireViable(scores); err != nil {
		return nil, err
	}

	if s.Order != Ascending && s.Order != Descending {
		return nil, fmt.Errorf("%w: unknown sort order %s", ErrInvalidArgument, s.Order)
	}

	members := s.Pool(scores)
	pool, err := flattenedPool(members, 1/float64(s.Count))
	if err != nil {
		return nil, err
	}
	return drawN(s.Rand, pool, len(population), func(v T) T { return v.ShallowCopy() })
}

// Pool returns the individuals ElitistSelection samples from for scores.
func (s *ElitistSelection[T]) Pool(scores *weighted.Population[T]) []T {
	sorted := scores.Entries()
	less := func(i, j int) bool { return sorted[i].Weight < sorted[j].Weight }
	if s.Order == Descending {
		less = func(i, j int) bool { return sorted[i].Weight > sorted[j].Weight }
	}
	sort.SliceStable(sorted, less)
	k := max(min(s.Count, len(sorted)), 0)
	out := make([]T, k)
	for i := range out {
		out[i] = sorted[i].Individual
	}
	return out
}

func requireViable[T weighted.Individual](scores *weighted.Population[T]) error {
	if scores == nil || !(scores.TotalWeight() > 0) {
		return weighted.ErrNoViableSelection
	}
	return nil
}

func flattenedPool[T weighted.Individual](members []T, weight float64) (*weighted.Population[T], error) {
	if len(members) == 0 {
		return nil, weighted.ErrNoViableSelection
	}
	pool := weighted.NewWithCapacity[T](len(members))
	for _, m := range members {
		if err := pool.Put(m, weight); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func drawN[T weighted.Individual](rng *rand.Rand, pool *weighted.Population[T], n int, transform func(T) T) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		picked, err := pool.Sample(rng)
		if err != nil {
			if errors.Is(err, weighted.ErrNoViableSelection) {
				return nil, err
			}
			return nil, fmt.Errorf("sample %d of %d: %w", i+1, n, err)
		}
		if transform != nil {
			picked = transform(picked)
		}
		out[i] = picked
	}
	return out, nil
}
