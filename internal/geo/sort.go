package geo

import (
	"cmp"
	"slices"
)

// SortByDistance orders items by the accessor, keeping encounter order for
// equal distances.
func SortByDistance[T any](items []T, dist func(T) float64) {
	slices.SortStableFunc(items, func(a, b T) int {
		return cmp.Compare(dist(a), dist(b))
	})
}

// Nearest returns the n closest items. The input slice is not modified.
func Nearest[T any](items []T, n int, dist func(T) float64) []T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	sorted := slices.Clone(items)
	SortByDistance(sorted, dist)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
