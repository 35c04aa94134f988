package rastercodec

import "github.com/pkg/errors"

// Jpeg2000Codec is a placeholder for DRT 5.40's JPEG2000 raster
// alternative. spec.md scopes the OpenJPEG encoder/decoder itself as an
// external, out-of-scope collaborator; this type exists so DRT 5.40
// round-trips through the same RasterCodec interface as PNG and Deflate
// once a caller supplies a real backend via RegisterJPEG2000.
type Jpeg2000Codec struct{}

// NewJpeg2000Codec returns the default, backend-less Jpeg2000Codec.
func NewJpeg2000Codec() *Jpeg2000Codec { return &Jpeg2000Codec{} }

func (Jpeg2000Codec) Encode(Image) ([]byte, error) {
	return nil, errors.New("rastercodec: no JPEG2000 backend registered; call RegisterJPEG2000")
}

func (Jpeg2000Codec) Decode([]byte) (Image, error) {
	return Image{}, errors.New("rastercodec: no JPEG2000 backend registered; call RegisterJPEG2000")
}
