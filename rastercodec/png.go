package rastercodec

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/pkg/errors"
)

// PngCodec rasterizes a scaled integer grid as a PNG image. The
// depth/color-type selection follows original_source/src/enc_png.c's
// enc_png: 8 or 16-bit samples encode as grayscale, 24-bit as RGB, and
// 32-bit as RGBA, with the high byte of each sample first.
//
// No third-party PNG encoder appears anywhere in the example pack, so
// this uses the standard library's image/png; see DESIGN.md.
type PngCodec struct{}

// NewPngCodec returns a ready-to-use PngCodec.
func NewPngCodec() *PngCodec { return &PngCodec{} }

func (PngCodec) Encode(img Image) ([]byte, error) {
	goImg, err := toGoImage(img)
	if err != nil {
		return nil, errors.Wrap(err, "rastercodec: png encode")
	}
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, goImg); err != nil {
		return nil, errors.Wrap(err, "rastercodec: png encode")
	}
	return buf.Bytes(), nil
}

func (PngCodec) Decode(data []byte) (Image, error) {
	goImg, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, errors.Wrap(err, "rastercodec: png decode")
	}
	return fromGoImage(goImg)
}

func toGoImage(img Image) (image.Image, error) {
	b := image.Rect(0, 0, img.Width, img.Height)
	switch img.ColorType {
	case ColorGray:
		if img.Depth == 16 {
			dst := image.NewGray16(b)
			copy(dst.Pix, img.Pix)
			return dst, nil
		}
		dst := image.NewGray(b)
		copy(dst.Pix, img.Pix)
		return dst, nil
	case ColorRGB, ColorRGBA:
		dst := image.NewNRGBA(b)
		if img.ColorType == ColorRGB {
			return expandRGBtoNRGBA(dst, img), nil
		}
		copy(dst.Pix, img.Pix)
		return dst, nil
	default:
		return nil, errors.Errorf("rastercodec: unsupported color type %d", img.ColorType)
	}
}

func expandRGBtoNRGBA(dst *image.NRGBA, img Image) *image.NRGBA {
	n := img.Width * img.Height
	for i := 0; i < n; i++ {
		dst.Pix[i*4+0] = img.Pix[i*3+0]
		dst.Pix[i*4+1] = img.Pix[i*3+1]
		dst.Pix[i*4+2] = img.Pix[i*3+2]
		dst.Pix[i*4+3] = 0xff
	}
	return dst
}

func fromGoImage(src image.Image) (Image, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	switch g := src.(type) {
	case *image.Gray:
		return Image{Width: w, Height: h, Depth: 8, ColorType: ColorGray, Pix: append([]byte(nil), g.Pix...)}, nil
	case *image.Gray16:
		return Image{Width: w, Height: h, Depth: 16, ColorType: ColorGray, Pix: append([]byte(nil), g.Pix...)}, nil
	case *image.RGBA:
		// image/png writes a fully opaque NRGBA image as 8-bit truecolor,
		// which decodes as *image.RGBA: that is the 24-bit RGB case.
		pix := make([]byte, w*h*3)
		for i := 0; i < w*h; i++ {
			pix[i*3+0] = g.Pix[i*4+0]
			pix[i*3+1] = g.Pix[i*4+1]
			pix[i*3+2] = g.Pix[i*4+2]
		}
		return Image{Width: w, Height: h, Depth: 24, ColorType: ColorRGB, Pix: pix}, nil
	case *image.NRGBA:
		hasAlpha := false
		for i := 3; i < len(g.Pix); i += 4 {
			if g.Pix[i] != 0xff {
				hasAlpha = true
				break
			}
		}
		if hasAlpha {
			return Image{Width: w, Height: h, Depth: 32, ColorType: ColorRGBA, Pix: append([]byte(nil), g.Pix...)}, nil
		}
		pix := make([]byte, w*h*3)
		for i := 0; i < w*h; i++ {
			pix[i*3+0] = g.Pix[i*4+0]
			pix[i*3+1] = g.Pix[i*4+1]
			pix[i*3+2] = g.Pix[i*4+2]
		}
		return Image{Width: w, Height: h, Depth: 24, ColorType: ColorRGB, Pix: pix}, nil
	default:
		// Fall back to a generic conversion via the color.Gray16Model for
		// any decoded image.Image this package doesn't special-case.
		dst := image.NewGray16(b)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.Set(x, y, color.Gray16Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)))
			}
		}
		return Image{Width: w, Height: h, Depth: 16, ColorType: ColorGray, Pix: dst.Pix}, nil
	}
}
