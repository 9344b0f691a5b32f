// Package hostname hashes hostnames and their labels for cosmetic filter
// matching, and normalizes internationalized names to ASCII.
package hostname

import (
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Hash is the hash of a hostname, entity or public suffix
type Hash = uint64

// FastHash hashes s with xxhash
func FastHash(s string) Hash {
	return xxhash.Sum64String(s)
}

// BinLookup reports whether target is present in sorted
func BinLookup(sorted []Hash, target Hash) bool {
	_, found := slices.BinarySearch(sorted, target)
	return found
}

// SortedHashes hashes each of names and returns them sorted ascending
func SortedHashes(names ...string) []Hash {
	hashes := make([]Hash, 0, len(names))
	for _, n := range names {
		hashes = append(hashes, FastHash(n))
	}
	slices.Sort(hashes)
	return hashes
}
