package back

import "math/rand"

// randomInt returns a random integer in [min, max].
func randomInt(min, max int) int {
	if max <= min {
		return min
	}

	return min + rand.Intn(max-min+1) // nolint:gosec
}

func randomIndex(ln int) int {
	return randomInt(0, ln-1)
}
