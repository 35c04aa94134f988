package rastercodec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func grayImage(w, h int) Image {
	pix := make([]byte, w*h)
	for i := range pix {
		pix[i] = byte(i)
	}
	return Image{Width: w, Height: h, Depth: 8, ColorType: ColorGray, Pix: pix}
}

func TestPngRoundTrip(t *testing.T) {
	codec, err := Get(Png)
	require.NoError(t, err)

	img := grayImage(16, 12)
	data, err := codec.Encode(img)
	require.NoError(t, err)

	got, err := codec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, img.Width, got.Width)
	require.Equal(t, img.Height, got.Height)
	require.Equal(t, img.Pix, got.Pix)
}

func TestDeflateRoundTrip(t *testing.T) {
	codec, err := Get(Deflate)
	require.NoError(t, err)

	img := grayImage(20, 5)
	data, err := codec.Encode(img)
	require.NoError(t, err)

	got, err := codec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, img, got)
}

func TestJpeg2000WithoutBackendErrors(t *testing.T) {
	codec, err := Get(Jpeg2000)
	require.NoError(t, err)
	_, err = codec.Encode(grayImage(4, 4))
	require.Error(t, err)
}

type fakeJpeg2000 struct{}

func (fakeJpeg2000) Encode(img Image) ([]byte, error) { return img.Pix, nil }
func (fakeJpeg2000) Decode(data []byte) (Image, error) {
	return Image{Pix: data}, nil
}

func TestRegisterJPEG2000Overrides(t *testing.T) {
	RegisterJPEG2000(fakeJpeg2000{})
	defer RegisterJPEG2000(NewJpeg2000Codec())

	codec, err := Get(Jpeg2000)
	require.NoError(t, err)
	data, err := codec.Encode(Image{Pix: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
}
