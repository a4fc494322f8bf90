package process

import "golang.org/x/exp/constraints"

func Align[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}

// AlignDown rounds a down to a multiple of b, b being a power of two.
func AlignDown[I constraints.Integer](a, b I) I {
	return a &^ (b - 1)
}
