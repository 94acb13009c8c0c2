//go:build !accel

package main

func useAcceleratedBLAS() bool {
	return false
}
