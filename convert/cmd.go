package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"bmp2goose/bitmap"
	"bmp2goose/fileop"
	"bmp2goose/goose"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"
)

const docExt = ".txt"

type CLICmd struct {
	Files        []string `arg:"" type:"existingfile" help:"24-bit uncompressed BMP files to convert"`
	Out          string   `help:"Destination folder for documents. Defaults to the folder of each input." type:"path"`
	Output       string   `short:"o" help:"Destination file. Only valid with a single input." type:"path"`
	Scale        float32  `help:"Side of each platform, in level units" default:"1"`
	XOffset      float32  `name:"x-offset" help:"Added to the x position of every platform" default:"0"`
	YOffset      float32  `name:"y-offset" help:"Added to the y position of every platform" default:"0"`
	ExcludeWhite bool     `help:"Skip pure white (#FFFFFF) pixels" default:"false"`
	Force        bool     `help:"Overwrite existing documents" default:"false"`
	Jobs         int      `help:"Number of files converted concurrently" default:"1"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	switch {
	case !(c.Scale > 0) || math.IsInf(float64(c.Scale), 0):
		return fmt.Errorf("invalid scale: %v", c.Scale)
	case math.IsNaN(float64(c.XOffset)) || math.IsInf(float64(c.XOffset), 0):
		return fmt.Errorf("invalid x offset: %v", c.XOffset)
	case math.IsNaN(float64(c.YOffset)) || math.IsInf(float64(c.YOffset), 0):
		return fmt.Errorf("invalid y offset: %v", c.YOffset)
	case c.Jobs < 1:
		return fmt.Errorf("invalid job count: %d", c.Jobs)
	case (c.Output != "") && (len(c.Files) != 1):
		return fmt.Errorf("--output needs exactly one input file, got %d", len(c.Files))
	case (c.Output != "") && (c.Out != ""):
		return fmt.Errorf("--output and --out are mutually exclusive")
	}

	seen := make(map[string]string, len(c.Files))
	for _, src := range c.Files {
		dest := filepath.Clean(c.destination(src))
		if other, ok := seen[dest]; ok {
			return fmt.Errorf("%q and %q would both be written to %q", other, src, dest)
		}
		seen[dest] = src
	}

	return nil
}

func (c *CLICmd) Params() goose.Params {
	return goose.Params{
		Scale:        c.Scale,
		XOffset:      c.XOffset,
		YOffset:      c.YOffset,
		ExcludeWhite: c.ExcludeWhite,
	}
}

// Run converts every input. The first failure stops further files from
// being started; files already written are kept.
func (c *CLICmd) Run(opts goose.Options) error {
	if c.Out != "" {
		if err := os.MkdirAll(c.Out, 0o755); err != nil {
			return fmt.Errorf("unable to create destination folder %q: %w", c.Out, err)
		}
	}

	var convertedCount, platformCount atomic.Uint64
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(c.Jobs)
	for _, src := range c.Files {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			dest := c.destination(src)
			logger := slog.Default().With("file", src, "dest", dest)

			n, err := c.convertFile(logger, src, dest, opts)
			if err != nil {
				logger.Error("could not convert bitmap", "error", err)
				return err
			}
			convertedCount.Add(1)
			platformCount.Add(uint64(n))
			return nil
		})
	}
	err := g.Wait()

	slog.Info("stats", "converted", convertedCount.Load(), "platforms", platformCount.Load(),
		"total", len(c.Files))

	return err
}

func (c *CLICmd) destination(src string) string {
	if c.Output != "" {
		return c.Output
	}

	name := filepath.Base(src)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + docExt
	dir := c.Out
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, name)
}

// convertFile exports src into dest and returns the number of platforms
// written. Nothing is written when src cannot be decoded.
func (c *CLICmd) convertFile(logger *slog.Logger, src, dest string, opts goose.Options) (int, error) {
	if err := fileop.CheckDest(dest, c.Force); err != nil {
		return 0, err
	}

	buf, err := fileop.ReadSource(src)
	if err != nil {
		return 0, err
	}

	logger.Info("parsing bitmap")
	grid, err := bitmap.Decode(buf)
	if err != nil {
		return 0, fmt.Errorf("could not decode bitmap %q: %w", src, err)
	}
	logger.Info("parsed bitmap", "width", grid.Width, "height", grid.Height)

	opts.Reporter = newRowReporter(logger, grid.Height)
	doc := goose.Export(grid, c.Params(), opts)
	n := goose.CountTokens(doc)

	err = fileop.Save(dest, c.Force, func(w io.Writer) error {
		_, err := io.WriteString(w, doc)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Info("saved document", "platforms", n, "bytes", len(doc))
	return n, nil
}
