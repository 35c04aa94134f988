// Package rastercodec implements the RasterCodec capability named in
// spec.md's re-architecture notes (section 9): the PNG/JPEG2000/Deflate
// raster encoders invoked by packing's raster packer (C6) are modeled as
// a closed set of tagged alternatives behind one interface, rather than
// as direct calls into the external libpng/OpenJPEG C libraries spec.md
// treats as out-of-scope black-box collaborators.
//
// The interface shape and the registry-of-implementations pattern are
// grounded on arloliu/mebo's compress.Codec / compress.CreateCodec
// (compress/codec.go), generalized from byte-stream compression to
// raster-image encoding.
package rastercodec

import (
	"fmt"
	"sync"
)

// ColorType selects the PNG color model used for a given pixel depth,
// grounded directly on original_source/src/enc_png.c's enc_png: depths
// 8 and 16 use grayscale, 24 uses RGB, 32 uses RGBA.
type ColorType int

const (
	ColorGray ColorType = iota
	ColorRGB
	ColorRGBA
)

// Image is the raw pixel grid a RasterCodec encodes or produces on
// decode. Pix is row-major, Depth bits per sample, ColorType samples per
// pixel (1 for gray, 3 for RGB, 4 for RGBA).
type Image struct {
	Width, Height int
	Depth         int
	ColorType     ColorType
	Pix           []byte
}

// RasterCodec encodes a scaled integer grid to a compressed byte stream
// and back. Implementations are called synchronously with a pre-sized
// in-memory sink; no callback is invoked during packing (spec.md 5).
type RasterCodec interface {
	Encode(img Image) ([]byte, error)
	Decode(data []byte) (Image, error)
}

// Kind names one of the closed set of tagged RasterCodec alternatives
// referenced by DRT 5.40 (JPEG2000), 5.41 (PNG), and this module's
// Deflate convenience alternative (spec.md 9).
type Kind int

const (
	Png Kind = iota
	Jpeg2000
	Deflate
)

func (k Kind) String() string {
	switch k {
	case Png:
		return "png"
	case Jpeg2000:
		return "jpeg2000"
	case Deflate:
		return "deflate"
	default:
		return "unknown"
	}
}

var (
	mu       sync.RWMutex
	registry = map[Kind]RasterCodec{
		Png:      NewPngCodec(),
		Jpeg2000: NewJpeg2000Codec(),
		Deflate:  NewDeflateCodec(),
	}
)

// Get returns the registered RasterCodec for kind.
func Get(kind Kind) (RasterCodec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("rastercodec: no codec registered for %s", kind)
	}
	return c, nil
}

// RegisterJPEG2000 lets a caller inject a real OpenJPEG-backed
// implementation. Without one, Jpeg2000Codec.Encode/Decode return an
// error identifying the missing external collaborator (spec.md 1: the
// OpenJPEG wrapper is out of scope for this module).
func RegisterJPEG2000(codec RasterCodec) {
	mu.Lock()
	defer mu.Unlock()
	registry[Jpeg2000] = codec
}
