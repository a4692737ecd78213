package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
// Used for shape-signature bucketing and dictionary interning keys.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Sum computes the xxHash64 of the given bytes.
func Sum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
