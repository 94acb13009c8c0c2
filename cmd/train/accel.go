//go:build accel

package main

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Builds with -tags accel link against the system BLAS so the --cuda flag
// can switch gonum onto it.
func useAcceleratedBLAS() bool {
	blas64.Use(netlib.Implementation{})
	return true
}
