// Package seq holds the small order-preserving sequence helpers the layout
// engine and snapshot restore are built on.
package seq

import (
	"cmp"
	"slices"
)

// Partition splits items by pred into (false, true) groups, keeping the
// relative order of each group.
func Partition[T any](items []T, pred func(T) bool) (rejected, accepted []T) {
	for _, it := range items {
		if pred(it) {
			accepted = append(accepted, it)
		} else {
			rejected = append(rejected, it)
		}
	}
	return rejected, accepted
}

// Chunk splits items into consecutive rows of size n. The last row may be
// shorter; callers treat missing cells as absent.
func Chunk[T any](items []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	var rows [][]T
	for start := 0; start < len(items); start += n {
		end := min(start+n, len(items))
		rows = append(rows, items[start:end:end])
	}
	return rows
}

// Group is one bucket produced by OrderedGroupBy.
type Group[K cmp.Ordered, T any] struct {
	Key   K
	Items []T
}

// OrderedGroupBy buckets items by key. Groups come back in ascending key
// order and each group's items in ascending tiebreak order; equal tiebreaks
// keep their input order.
func OrderedGroupBy[K cmp.Ordered, R cmp.Ordered, T any](items []T, key func(T) K, tiebreak func(T) R) []Group[K, T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		if c := cmp.Compare(key(a), key(b)); c != 0 {
			return c
		}
		return cmp.Compare(tiebreak(a), tiebreak(b))
	})

	var groups []Group[K, T]
	for _, it := range sorted {
		k := key(it)
		if n := len(groups); n > 0 && groups[n-1].Key == k {
			groups[n-1].Items = append(groups[n-1].Items, it)
			continue
		}
		groups = append(groups, Group[K, T]{Key: k, Items: []T{it}})
	}
	return groups
}
