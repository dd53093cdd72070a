package scene

// All scene randomness is derived from (seed, frame, salt) through a
// splitmix-style mixer. No wall clock, no global RNG: a fixed input
// tuple always produces the same frame, which is what makes
// seek-then-render reproducible.

// mix hashes an arbitrary list of 64-bit values into one.
func mix(values ...int64) uint64 {
	h := uint64(0x9e3779b97f4a7c15)
	for _, v := range values {
		h ^= uint64(v)
		h += 0x9e3779b97f4a7c15
		h = (h ^ (h >> 30)) * 0xbf58476d1ce4e5b9
		h = (h ^ (h >> 27)) * 0x94d049bb133111eb
		h ^= h >> 31
	}
	return h
}

// pick returns a value in [0, n) derived from the inputs.
func pick(n int, values ...int64) int {
	if n <= 0 {
		return 0
	}
	return int(mix(values...) % uint64(n))
}

// chance reports a deterministic 1-in-n outcome for the inputs.
func chance(n int, values ...int64) bool {
	return pick(n, values...) == 0
}
