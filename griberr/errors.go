// Package griberr defines the error taxonomy from spec.md section 7 as
// sentinel errors. Call sites wrap them with github.com/pkg/errors so
// callers can both errors.Is against a kind and read a human-readable
// chain, matching the wrapping style used throughout the teacher package
// (see gogrib2.go's errors.Wrapf calls).
package griberr

import "github.com/pkg/errors"

// Kind errors. Compare with errors.Is, e.g.:
//
//	if errors.Is(err, griberr.ErrOutOfRange) { ... }
var (
	ErrNotInitialized              = errors.New("grib2: operation called before create")
	ErrAlreadyComplete              = errors.New("grib2: operation on a finalized buffer")
	ErrBadPredecessorSection        = errors.New("grib2: state-machine violation")
	ErrInternalLengthMismatch       = errors.New("grib2: internal length mismatch")
	ErrUnsupportedTemplate          = errors.New("grib2: unsupported template number")
	ErrMissingGridDefinition        = errors.New("grib2: missing grid definition")
	ErrMissingPriorBitmap           = errors.New("grib2: indicator 254 without antecedent section 6")
	ErrSphericalHarmonicGDTRequired = errors.New("grib2: DRT 5.51 requires a matching section 3")
	ErrUnsupportedTruncation        = errors.New("grib2: spherical harmonic truncation parameters are all zero")
	ErrPackingFailed                = errors.New("grib2: packer or codec failed")
	ErrOutOfRange                   = errors.New("grib2: file handle outside [1, 9999]")
	ErrIndexIO                      = errors.New("grib2: failure reading index")
	ErrDataIO                       = errors.New("grib2: failure reading data")
	ErrNotFound                     = errors.New("grib2: search yielded no match")
)

// Wrap annotates err with a message while preserving errors.Is matching
// against the sentinel kinds above, via github.com/pkg/errors.Wrapf.
func Wrap(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
