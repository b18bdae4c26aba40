package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/dmitrijs2005/agrodetect/internal/common"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxPixels bounds decoded image size; larger inputs are rejected before
// any pixel data is allocated.
const maxPixels = 64 << 20

// RGBImage is a packed 8-bit raster in R, G, B order, three bytes per pixel,
// rows top to bottom. Alpha is discarded.
type RGBImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// RGBAt returns the channels of pixel (x, y).
func (m *RGBImage) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*m.Width + x) * 3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// EncodePNG writes m as an opaque PNG.
func (m *RGBImage) EncodePNG(w io.Writer) error {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for p, q := 0, 0; p < len(m.Pix); p, q = p+3, q+4 {
		out.Pix[q] = m.Pix[p]
		out.Pix[q+1] = m.Pix[p+1]
		out.Pix[q+2] = m.Pix[p+2]
		out.Pix[q+3] = 0xff
	}
	return png.Encode(w, out)
}

// Decode parses JPEG, PNG, GIF, WebP or BMP data and converts it to RGB.
// Empty or unrecognised input yields common.ErrDecode.
func Decode(data []byte) (*RGBImage, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", common.ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%w: unsupported dimensions %dx%d", common.ErrDecode, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrDecode, err)
	}

	return ToRGB(img), format, nil
}

// ToRGB converts any colour model to a packed RGB raster.
func ToRGB(img image.Image) *RGBImage {
	b := img.Bounds()
	out := &RGBImage{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy()*3)}

	i := 0
	switch src := img.(type) {
	case *image.YCbCr:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				yi, ci := src.YOffset(x, y), src.COffset(x, y)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
				i += 3
			}
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				copy(out.Pix[i:i+3], row[x*4:x*4+3])
				i += 3
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
				i += 3
			}
		}
	}

	return out
}
