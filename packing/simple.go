// Package packing implements the four numeric packers named in spec.md
// section 4 (C4-C7): simple packing, complex packing with optional
// spatial differencing, raster packing via rastercodec, and
// spherical-harmonic packing. Each packer operates on a plain []float64
// and returns (or consumes) the handful of scalar template parameters
// the caller is responsible for writing into the right DRT fields via
// the template package; packing itself never touches wire layout.
package packing

import (
	"math"

	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/bitio"
	"github.com/wxgrid/grib2/griberr"
)

// SimpleParams are the DRT 5.0 scalar fields a simple-packed field
// carries: reference value R, binary scale E, decimal scale D and
// sample width B (spec.md 4.4).
type SimpleParams struct {
	Reference    float64
	BinaryScale  int
	DecimalScale int
	NBits        int
}

// SimpleEncoded is the result of PackSimple: the back-filled template
// parameters plus the packed payload, MSB-first and zero-padded to an
// octet boundary.
type SimpleEncoded struct {
	SimpleParams
	Data []byte
}

func isConstant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// PackSimple implements spec.md 4.4. decimalScale and binaryScale are
// caller-chosen (commonly 0); nbits is the requested sample width. A
// width of 0, or a field whose values are all equal, takes the
// degenerate path: lcpack=0, the single value stored as the reference,
// and an empty payload.
func PackSimple(values []float64, decimalScale, binaryScale, nbits int) (SimpleEncoded, error) {
	if nbits == 0 || isConstant(values) {
		ref := 0.0
		if len(values) > 0 {
			ref = values[0]
		}
		return SimpleEncoded{
			SimpleParams: SimpleParams{Reference: ref, BinaryScale: binaryScale, DecimalScale: decimalScale, NBits: 0},
		}, nil
	}

	decFactor := math.Pow(10, float64(decimalScale))
	rmin, rmax := values[0]*decFactor, values[0]*decFactor
	for _, v := range values[1:] {
		s := v * decFactor
		if s < rmin {
			rmin = s
		}
		if s > rmax {
			rmax = s
		}
	}

	b := nbits
	binScale := binaryScale
	if nbits < 0 {
		return SimpleEncoded{}, errors.Wrap(griberr.ErrPackingFailed, "packing: negative nbits requested")
	}

	scaleFactor := math.Pow(2, float64(-binScale))
	data := make([]byte, bitio.SizeOctets(b*len(values)))
	maxQ := uint64(1)<<uint(b) - 1
	bitOffset := 0
	for _, v := range values {
		s := v*decFactor - rmin
		q := int64(math.Round(s * scaleFactor))
		if q < 0 {
			q = 0
		}
		if uint64(q) > maxQ {
			q = int64(maxQ)
		}
		bitio.PutBits(data, bitOffset, b, uint64(q))
		bitOffset += b
	}

	return SimpleEncoded{
		SimpleParams: SimpleParams{Reference: rmin, BinaryScale: binScale, DecimalScale: decimalScale, NBits: b},
		Data:         data,
	}, nil
}

// UnpackSimple is the inverse of PackSimple: it expands n packed
// samples from data back into floating point values.
func UnpackSimple(params SimpleParams, n int, data []byte) []float64 {
	out := make([]float64, n)
	if params.NBits == 0 {
		for i := range out {
			out[i] = params.Reference
		}
		return out
	}
	decFactor := math.Pow(10, float64(-params.DecimalScale))
	scaleFactor := math.Pow(2, float64(params.BinaryScale))
	bitOffset := 0
	for i := 0; i < n; i++ {
		q := bitio.GetBits(data, bitOffset, params.NBits)
		out[i] = (params.Reference + float64(q)*scaleFactor) * decFactor
		bitOffset += params.NBits
	}
	return out
}
