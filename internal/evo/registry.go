package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"evokit/internal/weighted"
)

const (
	SelectionRandom              = "random"
	SelectionFitnessProportional = "fitness_proportional"
	SelectionRankBased           = "rank_based"
	SelectionElitist             = "elitist"
	// SelectionElitistDescending pools the highest scores instead of the
	// lowest.
	SelectionElitistDescending = "elitist_descending"
)

var ErrUnknownSelection = errors.New("unknown selection")

var selectionParams = map[string]bool{
	SelectionRandom:              false,
	SelectionFitnessProportional: false,
	SelectionRankBased:           true,
	SelectionElitist:             true,
	SelectionElitistDescending:   true,
}

// SelectionNames lists the names accepted by NewSelectionByName.
func SelectionNames() []string {
	names := make([]string, 0, len(selectionParams))
	for name := range selectionParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectionTakesParam reports whether the named selection reads param: the
// rank cutoff for rank_based and the pool size for elitist.
func SelectionTakesParam(name string) bool {
	return selectionParams[name]
}

// NewSelectionByName builds one of the built-in selection strategies.
func NewSelectionByName[T weighted.Copyable[T]](name string, rng *rand.Rand, param int) (Selection[T], error) {
	var (
		sel Selection[T]
		err error
	)
	switch name {
	case SelectionRandom:
		sel, err = NewRandomSelection[T](rng)
	case SelectionFitnessProportional:
		sel, err = NewFitnessProportionalSelection[T](rng)
	case SelectionRankBased:
		sel, err = NewRankBasedSelection[T](rng, param)
	case SelectionElitist:
		sel, err = NewElitistSelection[T](rng, param)
	case SelectionElitistDescending:
		var elitist *ElitistSelection[T]
		elitist, err = NewElitistSelection[T](rng, param)
		if err == nil {
			elitist.Order = Descending
			sel = elitist
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelection, name)
	}
	if err != nil {
		return nil, err
	}
	return sel, nil
}
