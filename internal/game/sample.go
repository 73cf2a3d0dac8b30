package game

import "math/rand/v2"

// weighted pairs a candidate with its number of tickets in a draw.
type weighted[T any] struct {
	item   T
	weight int
}

// drawWeighted picks one candidate with probability proportional to its
// weight, after adding stop tickets that win nothing. It returns false when a
// stop ticket is drawn or when there is nothing to draw from.
func drawWeighted[T any](rng *rand.Rand, pool []weighted[T], stop int) (T, bool) {
	var zero T
	total := 0
	for _, w := range pool {
		if w.weight > 0 {
			total += w.weight
		}
	}
	if total == 0 {
		return zero, false
	}
	n := rng.IntN(total + max(0, stop))
	for _, w := range pool {
		if w.weight <= 0 {
			continue
		}
		if n < w.weight {
			return w.item, true
		}
		n -= w.weight
	}
	return zero, false
}
