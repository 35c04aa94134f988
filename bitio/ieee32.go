package bitio

import "math"

// FloatToU32 returns the 32-bit IEEE-754 bit pattern of x, rounding to
// nearest for inputs of wider precision (spec.md 4.2, C2).
func FloatToU32(x float64) uint32 {
	return math.Float32bits(float32(x))
}

// U32ToFloat is the inverse of FloatToU32. Denormals and NaN pass through
// unchanged in bits.
func U32ToFloat(b uint32) float64 {
	return float64(math.Float32frombits(b))
}
