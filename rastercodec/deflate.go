package rastercodec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// DeflateCodec stores the raster as a raw deflate stream with a small
// fixed header carrying the shape, matching the way the complex/spatial
// differencing packer (DRT 5.3) precedes its payload with group
// metadata: the shape travels with the bytes instead of a side channel.
type DeflateCodec struct{}

// NewDeflateCodec returns a ready-to-use DeflateCodec.
func NewDeflateCodec() *DeflateCodec { return &DeflateCodec{} }

const deflateHeaderLen = 4*3 + 1 // width, height, depth (uint32) + colorType (byte)

func (DeflateCodec) Encode(img Image) ([]byte, error) {
	var buf bytes.Buffer
	header := make([]byte, deflateHeaderLen)
	binary.BigEndian.PutUint32(header[0:4], uint32(img.Width))
	binary.BigEndian.PutUint32(header[4:8], uint32(img.Height))
	binary.BigEndian.PutUint32(header[8:12], uint32(img.Depth))
	header[12] = byte(img.ColorType)
	buf.Write(header)

	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "rastercodec: deflate encode")
	}
	if _, err := w.Write(img.Pix); err != nil {
		return nil, errors.Wrap(err, "rastercodec: deflate encode")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "rastercodec: deflate encode")
	}
	return buf.Bytes(), nil
}

func (DeflateCodec) Decode(data []byte) (Image, error) {
	if len(data) < deflateHeaderLen {
		return Image{}, errors.New("rastercodec: deflate payload shorter than header")
	}
	header, body := data[:deflateHeaderLen], data[deflateHeaderLen:]
	img := Image{
		Width:     int(binary.BigEndian.Uint32(header[0:4])),
		Height:    int(binary.BigEndian.Uint32(header[4:8])),
		Depth:     int(binary.BigEndian.Uint32(header[8:12])),
		ColorType: ColorType(header[12]),
	}
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	pix, err := io.ReadAll(r)
	if err != nil {
		return Image{}, errors.Wrap(err, "rastercodec: deflate decode")
	}
	img.Pix = pix
	return img, nil
}
