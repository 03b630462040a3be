// Package inspect reports the layout of bitmap files without converting
// them.
package inspect

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"log/slog"

	"bmp2goose/bitmap"
	"bmp2goose/fileop"

	"golang.org/x/image/bmp"
)

type CLICmd struct {
	Files []string `arg:"" type:"existingfile" help:"BMP files to inspect"`
}

const (
	pixOffsetOffset   = 10
	bppOffset         = 28
	compressionOffset = 30
)

// Report describes one file. Standard is false when the file is not an
// uncompressed 24-bit BMP with pixel data at byte 54, or when the full BMP
// decoder rejects it or disagrees on its dimensions. convert reads such
// files as garbage.
type Report struct {
	bitmap.Header
	Standard bool
	Reason   error
}

func Inspect(buf []byte) (Report, error) {
	h, err := bitmap.DecodeHeader(buf)
	if err != nil {
		return Report{}, err
	}

	r := Report{Header: h, Standard: true}
	pixOffset := binary.LittleEndian.Uint32(buf[pixOffsetOffset:])
	bpp := binary.LittleEndian.Uint16(buf[bppOffset:])
	compression := binary.LittleEndian.Uint32(buf[compressionOffset:])

	conf, err := bmp.DecodeConfig(bytes.NewReader(buf))
	_, paletted := conf.ColorModel.(color.Palette)
	switch {
	case bpp != 24:
		r.Standard, r.Reason = false, fmt.Errorf("%d bits per pixel, want 24", bpp)
	case compression != 0:
		r.Standard, r.Reason = false, fmt.Errorf("compression type %d, want uncompressed", compression)
	case pixOffset != bitmap.PixelDataOffset:
		r.Standard, r.Reason = false, fmt.Errorf("pixel data at byte %d, want %d", pixOffset, bitmap.PixelDataOffset)
	case err != nil:
		r.Standard, r.Reason = false, err
	case paletted:
		r.Standard, r.Reason = false, fmt.Errorf("paletted color model")
	case uint32(conf.Width) != h.Width || uint32(conf.Height) != h.Height:
		r.Standard = false
		r.Reason = fmt.Errorf("header reads %dx%d, BMP decoder reads %dx%d", h.Width, h.Height, conf.Width, conf.Height)
	}
	return r, nil
}

func (c *CLICmd) Run() error {
	var okCount, errCount int
	for _, name := range c.Files {
		logger := slog.Default().With("file", name)

		buf, err := fileop.ReadSource(name)
		if err != nil {
			errCount++
			logger.Error("could not read bitmap", "error", err)
			continue
		}

		r, err := Inspect(buf)
		if err != nil {
			errCount++
			logger.Error("could not decode bitmap", "error", err)
			continue
		}

		okCount++
		logger.Info("bitmap", "width", r.Width, "height", r.Height, "stride", r.Stride,
			"pixel_bytes", r.DataSize, "platforms", uint64(r.Width)*uint64(r.Height))
		if !r.Standard {
			logger.Warn("bitmap layout is not a plain 24-bit BMP", "reason", r.Reason)
		}
	}

	slog.Info("stats", "ok", okCount, "errors", errCount, "total", okCount+errCount)

	if errCount > 0 {
		return fmt.Errorf("error inspecting %d files", errCount)
	}
	return nil
}
