package detector

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

// testImage is 2x1: pure red, then pure blue.
func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 255})
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode_PNGKeepsChannelOrder(t *testing.T) {
	rgb, format, err := Decode(encodePNG(t, testImage()))
	require.NoError(t, err)

	assert.Equal(t, "png", format)
	assert.Equal(t, 2, rgb.Width)
	assert.Equal(t, 1, rgb.Height)
	assert.Equal(t, []uint8{255, 0, 0, 0, 0, 255}, rgb.Pix)

	r, g, b := rgb.RGBAt(1, 0)
	assert.Equal(t, [3]uint8{0, 0, 255}, [3]uint8{r, g, b})
}

func TestDecode_OtherFormats(t *testing.T) {
	var gifBuf, bmpBuf, jpgBuf bytes.Buffer

	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{B: 255, A: 255},
	})
	pal.SetColorIndex(0, 0, 0)
	pal.SetColorIndex(1, 0, 1)
	require.NoError(t, gif.Encode(&gifBuf, pal, nil))
	require.NoError(t, bmp.Encode(&bmpBuf, testImage()))

	solid := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(solid.Pix); i += 4 {
		solid.Pix[i], solid.Pix[i+1], solid.Pix[i+2], solid.Pix[i+3] = 0, 200, 0, 255
	}
	require.NoError(t, jpeg.Encode(&jpgBuf, solid, &jpeg.Options{Quality: 95}))

	tests := []struct {
		name   string
		data   []byte
		format string
		exact  bool
	}{
		{"gif", gifBuf.Bytes(), "gif", true},
		{"bmp", bmpBuf.Bytes(), "bmp", true},
		{"jpeg", jpgBuf.Bytes(), "jpeg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rgb, format, err := Decode(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Len(t, rgb.Pix, rgb.Width*rgb.Height*3)

			r, g, b := rgb.RGBAt(0, 0)
			if tt.exact {
				assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
				return
			}
			// lossy: green dominates
			assert.Greater(t, int(g), 180)
			assert.Less(t, int(r), 30)
			assert.Less(t, int(b), 30)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not an image"),
		"truncated": encodePNG(t, testImage())[:20],
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(data)
			assert.ErrorIs(t, err, common.ErrDecode)
		})
	}
}

func TestToRGB_DropsAlphaAndHandlesGray(t *testing.T) {
	semi := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	semi.Set(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	assert.Equal(t, []uint8{10, 20, 30}, ToRGB(semi).Pix)

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.SetGray(0, 0, color.Gray{Y: 77})
	assert.Equal(t, []uint8{77, 77, 77}, ToRGB(gray).Pix)
}

func TestToRGB_SubImageBounds(t *testing.T) {
	big := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	big.Set(2, 3, color.NRGBA{G: 99, A: 255})

	sub := big.SubImage(image.Rect(2, 3, 3, 4))
	rgb := ToRGB(sub)
	assert.Equal(t, 1, rgb.Width)
	assert.Equal(t, []uint8{0, 99, 0}, rgb.Pix)
}

func TestRGBImage_EncodePNGRoundTrip(t *testing.T) {
	src := &RGBImage{Width: 2, Height: 1, Pix: []uint8{1, 2, 3, 4, 5, 6}}

	var buf bytes.Buffer
	require.NoError(t, src.EncodePNG(&buf))

	back, _, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, src, back)
}
