// Package preview renders a bitmap the way the exported level will look,
// so it can be checked before converting.
package preview

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"bmp2goose/bitmap"
	"bmp2goose/fileop"

	"github.com/alecthomas/kong"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// maxPreviewSide caps either side of the rendered image, in pixels.
const maxPreviewSide = 1 << 15

type CLICmd struct {
	File         string `arg:"" type:"existingfile" help:"24-bit uncompressed BMP file to render"`
	Out          string `help:"Destination file. Defaults to the input name with the format extension." type:"path"`
	Zoom         int    `help:"Side of each pixel in the preview" default:"8"`
	ExcludeWhite bool   `help:"Render pure white (#FFFFFF) pixels as transparent" default:"false"`
	Format       string `help:"Output format" enum:"png,bmp,tiff" default:"png"`
	Force        bool   `help:"Overwrite an existing preview" default:"false"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	if c.Zoom < 1 {
		return fmt.Errorf("invalid zoom: %d", c.Zoom)
	}
	if c.Out == "" {
		oldExt := filepath.Ext(c.File)
		c.Out = fmt.Sprintf("%s.%s", c.File[:len(c.File)-len(oldExt)], c.Format)
	}
	return nil
}

func (c *CLICmd) Run() error {
	logger := slog.Default().With("file", c.File)

	buf, err := fileop.ReadSource(c.File)
	if err != nil {
		return err
	}
	grid, err := bitmap.Decode(buf)
	if err != nil {
		return fmt.Errorf("could not decode bitmap %q: %w", c.File, err)
	}
	if grid.Empty() {
		return fmt.Errorf("nothing to preview: %q is %dx%d", c.File, grid.Width, grid.Height)
	}

	img, err := Render(grid, c.Zoom, c.ExcludeWhite)
	if err != nil {
		return err
	}
	logger.Info("rendered preview", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	err = fileop.Save(c.Out, c.Force, func(w io.Writer) error {
		return encode(w, img, c.Format)
	})
	if err != nil {
		return err
	}

	logger.Info("saved preview", "dest", c.Out, "format", c.Format)
	return nil
}

// Render upscales g by zoom with nearest-neighbour sampling. With
// excludeWhite set, pure white pixels become fully transparent.
func Render(g *bitmap.Grid, zoom int, excludeWhite bool) (*image.NRGBA, error) {
	if zoom < 1 {
		return nil, fmt.Errorf("invalid zoom: %d", zoom)
	}
	if int(g.Width) > maxPreviewSide/zoom || int(g.Height) > maxPreviewSide/zoom {
		return nil, fmt.Errorf("preview of %dx%d at zoom %d is too large", g.Width, g.Height, zoom)
	}
	w, h := int(g.Width)*zoom, int(g.Height)*zoom

	var src image.Image = g
	if excludeWhite {
		src = maskWhite(g)
	}

	dest := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dest, dest.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dest, nil
}

func maskWhite(g *bitmap.Grid) *image.NRGBA {
	m := image.NewNRGBA(g.Bounds())
	draw.Draw(m, m.Bounds(), g, image.Point{}, draw.Src)
	for i, px := range g.Pix {
		if px.IsWhite() {
			m.Pix[i*4+3] = 0
		}
	}
	return m
}

func encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{
			CompressionLevel: png.BestCompression,
			BufferPool:       pngPool,
		}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("could not encode PNG preview: %w", err)
		}
	case "bmp":
		if err := bmp.Encode(w, img); err != nil {
			return fmt.Errorf("could not encode BMP preview: %w", err)
		}
	case "tiff":
		if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("could not encode TIFF preview: %w", err)
		}
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
	return nil
}

// pngEncoderBufferPool lets png.Encoder reuse its compression buffers
// between previews.
type pngEncoderBufferPool struct {
	pool sync.Pool
}

func (p *pngEncoderBufferPool) Get() *png.EncoderBuffer {
	return p.pool.Get().(*png.EncoderBuffer)
}

func (p *pngEncoderBufferPool) Put(buf *png.EncoderBuffer) {
	p.pool.Put(buf)
}

var pngPool = &pngEncoderBufferPool{
	pool: sync.Pool{
		New: func() any {
			return &png.EncoderBuffer{}
		},
	},
}
