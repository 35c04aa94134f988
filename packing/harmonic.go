package packing

import (
	"github.com/pkg/errors"

	"github.com/wxgrid/grib2/bitio"
	"github.com/wxgrid/grib2/griberr"
)

// Truncation is the triangular truncation (J, K, M) read from a prior
// Section 3 for DRT 5.51 (spec.md 4.7).
type Truncation struct {
	J, K, M int
}

func (t Truncation) allZero() bool { return t.J == 0 && t.K == 0 && t.M == 0 }

// HarmonicEncoded is the packed form of a spherical-harmonic field: the
// (0,0) real coefficient stored as its own IEEE-32 bit pattern, plus the
// remainder packed by simple (DRT 5.50) or complex (DRT 5.51) packing.
type HarmonicEncoded struct {
	ZeroZero   uint32 // IEEE-32 bit pattern of the (0,0) coefficient
	Complex    bool
	Simple     SimpleEncoded
	ComplexEnc ComplexEncoded
}

// PackHarmonicSimple implements spec.md 4.7 for DRT 5.50: coefficients[0]
// is the (0,0) term, the remainder is packed by simple packing.
func PackHarmonicSimple(coefficients []float64, decimalScale, binaryScale, nbits int) (HarmonicEncoded, error) {
	if len(coefficients) == 0 {
		return HarmonicEncoded{}, errors.New("packing: harmonic field has no coefficients")
	}
	simple, err := PackSimple(coefficients[1:], decimalScale, binaryScale, nbits)
	if err != nil {
		return HarmonicEncoded{}, err
	}
	return HarmonicEncoded{
		ZeroZero: bitio.FloatToU32(coefficients[0]),
		Simple:   simple,
	}, nil
}

// PackHarmonicComplex implements spec.md 4.7 for DRT 5.51: the
// caller-supplied truncation parameters are rejected with
// ErrUnsupportedTruncation when all three are zero, then the remainder
// is packed by complex packing. The truncation is not read from, or
// compared with, any grid definition.
func PackHarmonicComplex(coefficients []float64, decimalScale, binaryScale, order int, truncation Truncation) (HarmonicEncoded, error) {
	if truncation.allZero() {
		return HarmonicEncoded{}, griberr.ErrUnsupportedTruncation
	}
	if len(coefficients) == 0 {
		return HarmonicEncoded{}, errors.New("packing: harmonic field has no coefficients")
	}
	complexEnc, err := PackComplex(coefficients[1:], decimalScale, binaryScale, order)
	if err != nil {
		return HarmonicEncoded{}, err
	}
	return HarmonicEncoded{
		ZeroZero:   bitio.FloatToU32(coefficients[0]),
		Complex:    true,
		ComplexEnc: complexEnc,
	}, nil
}

// UnpackHarmonic is the inverse of PackHarmonicSimple/PackHarmonicComplex.
// n is the total coefficient count, including the (0,0) term.
func UnpackHarmonic(enc HarmonicEncoded, n int) []float64 {
	out := make([]float64, n)
	out[0] = bitio.U32ToFloat(enc.ZeroZero)
	var rest []float64
	if enc.Complex {
		rest = UnpackComplex(enc.ComplexEnc, n-1)
	} else {
		rest = UnpackSimple(enc.Simple.SimpleParams, n-1, enc.Simple.Data)
	}
	copy(out[1:], rest)
	return out
}
