// Package bitmap decodes the minimal 24-bit uncompressed BMP layout into a
// flat, top-to-bottom grid of RGB pixels.
package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	widthOffset  = 18
	heightOffset = 22

	// PixelDataOffset is where pixel data starts: a 14 byte file header
	// followed by a 40 byte info header, with no color table.
	PixelDataOffset = 54

	bytesPerPixel = 3
)

var (
	ErrTruncatedFile  = errors.New("bitmap: truncated file")
	ErrStrideOverflow = errors.New("bitmap: row stride overflow")
)

type Pixel struct {
	R, G, B uint8
}

// IsWhite reports whether all three channels are saturated.
func (p Pixel) IsWhite() bool {
	return p.R == 0xff && p.G == 0xff && p.B == 0xff
}

type Header struct {
	Width  uint32
	Height uint32
	// Stride is the on-disk length of one scanline, padding included.
	Stride uint32
	// DataSize is Height*Stride, the number of pixel bytes after the header.
	DataSize uint64
}

// Grid is a decoded image. Row 0 is the top of the image.
type Grid struct {
	Width  uint32
	Height uint32
	Stride uint32
	// Pix holds the pixels row-major: the pixel at (x, y) is Pix[y*Width+x].
	Pix []Pixel
}

var _ image.Image = (*Grid)(nil)

// RowStride returns the padded length of a scanline of width pixels.
//
// Widths divisible by 4 take width*3 directly, which is already a multiple
// of 4. Other widths are rounded up to the next multiple of 4 in 64-bit
// arithmetic before being narrowed back to 32 bits.
func RowStride(width uint32) (uint32, error) {
	w := int64(width)
	var stride int64
	if width%4 == 0 {
		stride = w * bytesPerPixel
	} else {
		stride = w*bytesPerPixel - (w*bytesPerPixel)%4 + 4
	}
	if stride > math.MaxUint32 {
		return 0, fmt.Errorf("%w: width %d needs %d bytes per row", ErrStrideOverflow, width, stride)
	}
	return uint32(stride), nil
}

// DecodeHeader reads the dimensions from buf and checks that buf is long
// enough to hold every scanline.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < PixelDataOffset {
		return Header{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedFile, len(buf), PixelDataOffset)
	}

	h := Header{
		Width:  binary.LittleEndian.Uint32(buf[widthOffset:]),
		Height: binary.LittleEndian.Uint32(buf[heightOffset:]),
	}

	var err error
	if h.Stride, err = RowStride(h.Width); err != nil {
		return Header{}, err
	}

	// Both factors fit in 32 bits, so the product fits in 64.
	h.DataSize = uint64(h.Height) * uint64(h.Stride)
	available := uint64(len(buf) - PixelDataOffset)
	if h.DataSize > available {
		return Header{}, fmt.Errorf("%w: %dx%d image needs %d pixel bytes, got %d",
			ErrTruncatedFile, h.Width, h.Height, h.DataSize, available)
	}

	return h, nil
}

// Decode parses a 24-bit BMP held in buf. The file is assumed to carry the
// standard 54 byte header with pixel data immediately after it.
func Decode(buf []byte) (*Grid, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}

	g := &Grid{
		Width:  h.Width,
		Height: h.Height,
		Stride: h.Stride,
		Pix:    make([]Pixel, int(h.Width)*int(h.Height)),
	}
	if g.Empty() {
		return g, nil
	}

	width := int(h.Width)
	stride := int(h.Stride)
	for y := range int(h.Height) {
		start := PixelDataOffset + y*stride
		scanline := buf[start : start+width*bytesPerPixel]

		// Scanlines are stored bottom-up.
		row := g.Pix[(int(h.Height)-1-y)*width:][:width]
		for x := range row {
			bgr := scanline[x*bytesPerPixel:]
			row[x] = Pixel{R: bgr[2], G: bgr[1], B: bgr[0]}
		}
	}

	return g, nil
}

// Pixel returns the pixel at column x of row y.
func (g *Grid) Pixel(x, y uint32) Pixel {
	return g.Pix[int(y)*int(g.Width)+int(x)]
}

// Row returns the pixels of row y, left to right. The slice aliases Pix.
func (g *Grid) Row(y uint32) []Pixel {
	start := int(y) * int(g.Width)
	return g.Pix[start : start+int(g.Width)]
}

func (g *Grid) Empty() bool {
	return g.Width == 0 || g.Height == 0
}

func (g *Grid) ColorModel() color.Model {
	return color.RGBAModel
}

func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, int(g.Width), int(g.Height))
}

func (g *Grid) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(g.Bounds()) {
		return color.RGBA{}
	}
	p := g.Pixel(uint32(x), uint32(y))
	return color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
}
