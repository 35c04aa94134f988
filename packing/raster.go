package packing

import (
	"math"

	"github.com/wxgrid/grib2/gribmsg"
	"github.com/wxgrid/grib2/internal/log"
	"github.com/wxgrid/grib2/rastercodec"
)

// RasterParams mirrors SimpleParams: a raster-packed field is still
// scaled to integers the way simple packing is (spec.md 4.6 "render the
// scaled integer grid"), then rasterized instead of bit-packed.
type RasterParams struct {
	SimpleParams
	Width, Height int
	Depth         int
	ColorType     rastercodec.ColorType
}

// RasterEncoded is the packed form of a raster field.
type RasterEncoded struct {
	RasterParams
	Data []byte
}

// depthFor picks the smallest pixel depth covering [0, maxValue] from
// the closed set spec.md 4.6 allows for the given codec kind.
func depthFor(kind rastercodec.Kind, maxValue uint64) int {
	choices := []int{8, 16, 24, 32}
	if kind == rastercodec.Jpeg2000 {
		choices = []int{8, 16, 24}
	}
	for _, d := range choices {
		if maxValue < uint64(1)<<uint(d) {
			return d
		}
	}
	return choices[len(choices)-1]
}

// PackRaster implements spec.md 4.6. ni/nj is the grid's logical shape
// and scan describes the Section 3 scanning-mode flags used to decide
// whether width and height are swapped; pass scan's zero value for a
// bitmap-contracted field, where width=n, height=1 (spec.md 4.6: "if the
// field has been bitmap-contracted, width = ngrdpts, height = 1").
func PackRaster(values []float64, decimalScale, binaryScale int, ni, nj int, scan gribmsg.ScanMode, kind rastercodec.Kind) (RasterEncoded, error) {
	simple, err := PackSimple(values, decimalScale, binaryScale, autoWidth(values, decimalScale, binaryScale))
	if err != nil {
		return RasterEncoded{}, err
	}

	width, height := scan.GridShape(ni, nj)
	if width < 1 || height < 1 {
		log.Warningf("packing: degenerate raster shape %dx%d from grid %dx%d, rewriting to 1x1", width, height, ni, nj)
		width, height = 1, 1
	}

	maxQ := uint64(0)
	if simple.NBits > 0 {
		maxQ = uint64(1)<<uint(simple.NBits) - 1
	}
	depth := depthFor(kind, maxQ)
	colorType := rastercodec.ColorGray
	if depth == 24 {
		colorType = rastercodec.ColorRGB
	} else if depth == 32 {
		colorType = rastercodec.ColorRGBA
	}

	pix := samplesToPixels(simple, values, width*height, depth, colorType)

	codec, err := rastercodec.Get(kind)
	if err != nil {
		return RasterEncoded{}, err
	}
	data, err := codec.Encode(rastercodec.Image{Width: width, Height: height, Depth: depth, ColorType: colorType, Pix: pix})
	if err != nil {
		return RasterEncoded{}, err
	}

	return RasterEncoded{
		RasterParams: RasterParams{
			SimpleParams: simple.SimpleParams,
			Width:        width,
			Height:       height,
			Depth:        depth,
			ColorType:    colorType,
		},
		Data: data,
	}, nil
}

// autoWidth mirrors PackSimple's own auto-select path so PackRaster can
// learn the sample width ahead of choosing a pixel depth.
func autoWidth(values []float64, decimalScale, binaryScale int) int {
	if isConstant(values) {
		return 0
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
	span := (rmax - rmin) * math.Pow(2, float64(-binaryScale))
	if span < 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(span + 1)))
}

func samplesToPixels(simple SimpleEncoded, values []float64, n int, depth int, colorType rastercodec.ColorType) []byte {
	channels := 1
	switch colorType {
	case rastercodec.ColorRGB:
		channels = 3
	case rastercodec.ColorRGBA:
		channels = 4
	}
	bytesPerSample := 1
	if depth == 16 {
		bytesPerSample = 2
	}
	// totalBytes is the full width, in octets, of one quantized sample:
	// a 24/32-bit sample is split big-endian across its 3/4 channels
	// rather than having its low byte replicated into each one.
	totalBytes := channels * bytesPerSample

	var quantized []uint64
	if simple.NBits == 0 {
		quantized = make([]uint64, len(values))
	} else {
		quantized = requantize(simple, values)
	}

	pix := make([]byte, n*totalBytes)
	for i := 0; i < n && i < len(quantized); i++ {
		q := quantized[i]
		base := i * totalBytes
		for b := 0; b < totalBytes; b++ {
			shift := uint((totalBytes - 1 - b) * 8)
			pix[base+b] = byte(q >> shift)
		}
	}
	return pix
}

// requantize recomputes the same integer codes PackSimple would have
// written, without re-deriving reference/scale (already fixed in simple).
func requantize(simple SimpleEncoded, values []float64) []uint64 {
	decFactor := math.Pow(10, float64(simple.DecimalScale))
	scaleFactor := math.Pow(2, float64(-simple.BinaryScale))
	maxQ := uint64(1)<<uint(simple.NBits) - 1
	out := make([]uint64, len(values))
	for i, v := range values {
		s := v*decFactor - simple.Reference
		q := int64(math.Round(s * scaleFactor))
		if q < 0 {
			q = 0
		}
		if uint64(q) > maxQ {
			q = int64(maxQ)
		}
		out[i] = uint64(q)
	}
	return out
}

// UnpackRaster is the inverse of PackRaster.
func UnpackRaster(enc RasterEncoded, n int, kind rastercodec.Kind) ([]float64, error) {
	if enc.NBits == 0 {
		out := make([]float64, n)
		for i := range out {
			out[i] = enc.Reference
		}
		return out, nil
	}
	codec, err := rastercodec.Get(kind)
	if err != nil {
		return nil, err
	}
	img, err := codec.Decode(enc.Data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	decFactor := math.Pow(10, float64(-enc.DecimalScale))
	scaleFactor := math.Pow(2, float64(enc.BinaryScale))
	channels := 1
	bytesPerSample := 1
	if img.Depth == 16 {
		bytesPerSample = 2
	}
	switch img.ColorType {
	case rastercodec.ColorRGB:
		channels = 3
	case rastercodec.ColorRGBA:
		channels = 4
	}
	totalBytes := channels * bytesPerSample
	for i := 0; i < n; i++ {
		base := i * totalBytes
		if base+totalBytes > len(img.Pix) {
			break
		}
		var q uint64
		for b := 0; b < totalBytes; b++ {
			q = q<<8 | uint64(img.Pix[base+b])
		}
		out[i] = (enc.Reference + float64(q)*scaleFactor) * decFactor
	}
	return out, nil
}
