package weighted

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/rand"
	"sort"
)

var (
	ErrNoViableSelection = errors.New("no viable selection: total weight is zero")
	ErrNegativeWeight    = errors.New("weight must be >= 0")
	ErrInvalidWeight     = errors.New("weight must be a finite number")
)

// Individual is a candidate solution. Key defines identity: two individuals
// with the same key occupy the same slot of a Population.
type Individual interface {
	Key() string
}

// Copyable is an Individual that can produce a distinct value sharing its key.
type Copyable[T any] interface {
	Individual
	ShallowCopy() T
}

// Entry is one individual and its recorded weight.
type Entry[T Individual] struct {
	Individual T
	Weight     float64
}

// Population associates a non-negative weight with each individual and
// supports weighted random draws and rank queries. Insertion order is the
// stable iteration order used for sampling and tie-breaking.
type Population[T Individual] struct {
	entries []Entry[T]
	index   map[string]int
	total   float64

	cumulative []float64
	ranks      map[string]int
}

// New returns an empty Population.
func New[T Individual]() *Population[T] {
	return NewWithCapacity[T](0)
}

// NewWithCapacity returns an empty Population sized for n individuals.
func NewWithCapacity[T Individual](n int) *Population[T] {
	if n < 0 {
		n = 0
	}
	return &Population[T]{
		entries: make([]Entry[T], 0, n),
		index:   make(map[string]int, n),
	}
}

// Put inserts individual or overwrites its weight. An overwritten entry keeps
// its original insertion position.
func (p *Population[T]) Put(individual T, weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	if weight < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeWeight, weight)
	}

	key := individual.Key()
	if idx, ok := p.index[key]; ok {
		p.entries[idx] = Entry[T]{Individual: individual, Weight: weight}
		// Subtracting the old weight would leave rounding residue behind.
		p.total = p.sum()
	} else {
		p.index[key] = len(p.entries)
		p.entries = append(p.entries, Entry[T]{Individual: individual, Weight: weight})
		p.total += weight
	}
	p.cumulative = nil
	p.ranks = nil
	return nil
}

// Weight returns the recorded weight of individual.
func (p *Population[T]) Weight(individual T) (float64, bool) {
	idx, ok := p.index[individual.Key()]
	if !ok {
		return 0, false
	}
	return p.entries[idx].Weight, true
}

// TotalWeight is the sum of the current weights, accumulated in insertion
// order.
func (p *Population[T]) TotalWeight() float64 {
	return p.total
}

func (p *Population[T]) Len() int {
	return len(p.entries)
}

// Keys returns the individuals in insertion order.
func (p *Population[T]) Keys() []T {
	out := make([]T, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Individual
	}
	return out
}

// Entries returns a copy of the entries in insertion order.
func (p *Population[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(p.entries))
	copy(out, p.entries)
	return out
}

// All iterates entries in insertion order.
func (p *Population[T]) All() iter.Seq2[T, float64] {
	return func(yield func(T, float64) bool) {
		for _, e := range p.entries {
			if !yield(e.Individual, e.Weight) {
				return
			}
		}
	}
}

// Sample draws one individual with probability weight/TotalWeight, with
// replacement.
func (p *Population[T]) Sample(rng *rand.Rand) (T, error) {
	var zero T
	if rng == nil {
		return zero, errors.New("random source is required")
	}
	if len(p.entries) == 0 {
		return zero, ErrNoViableSelection
	}
	if p.cumulative == nil {
		p.buildCumulative()
	}

	last := p.cumulative[len(p.cumulative)-1]
	if !(last > 0) {
		return zero, ErrNoViableSelection
	}
	u := rng.Float64() * last
	idx := sort.Search(len(p.cumulative), func(i int) bool {
		return p.cumulative[i] > u
	})
	if idx == len(p.cumulative) {
		// u rounded up to last: the draw belongs to the final weighted entry.
		idx = p.lastWeighted()
	}
	return p.entries[idx].Individual, nil
}

// Rank returns the 1-based position of individual when entries are ordered by
// weight descending. Ties keep insertion order.
func (p *Population[T]) Rank(individual T) (int, bool) {
	if p.ranks == nil {
		p.buildRanks()
	}
	rank, ok := p.ranks[individual.Key()]
	return rank, ok
}

// Ranked returns the entries ordered by rank.
func (p *Population[T]) Ranked() []Entry[T] {
	out := p.Entries()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight > out[j].Weight
	})
	return out
}

func (p *Population[T]) buildCumulative() {
	p.cumulative = make([]float64, len(p.entries))
	sum := 0.0
	for i, e := range p.entries {
		sum += e.Weight
		p.cumulative[i] = sum
	}
}

func (p *Population[T]) buildRanks() {
	ranked := p.Ranked()
	p.ranks = make(map[string]int, len(ranked))
	for i, e := range ranked {
		p.ranks[e.Individual.Key()] = i + 1
	}
}

func (p *Population[T]) sum() float64 {
	total := 0.0
	for _, e := range p.entries {
		total += e.Weight
	}
	return total
}

// lastWeighted is only called once the cumulative total is positive, so some
// entry carries weight.
func (p *Population[T]) lastWeighted() int {
	i := len(p.cumulative) - 1
	for i > 0 && p.cumulative[i-1] == p.cumulative[i] {
		i--
	}
	return i
}
