package utils

import (
	"math"
	"math/rand"
)

// RandomArray fills a slice with uniform values in [-1/sqrt(v), 1/sqrt(v)].
func RandomArray(size int, v float64) []float64 {
	return RandomArrayRNG(nil, size, v)
}

// RandomArrayRNG is RandomArray drawing from rng; nil uses the global source.
func RandomArrayRNG(rng *rand.Rand, size int, v float64) []float64 {
	min := -1.0 / math.Sqrt(v+1e-12)
	max := 1.0 / math.Sqrt(v+1e-12)
	next := rand.Float64
	if rng != nil {
		next = rng.Float64
	}
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = min + (max-min)*next()
	}
	return out
}
