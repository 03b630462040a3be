package convert

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"bmp2goose/bitmap"
	"bmp2goose/fileop"
	"bmp2goose/goose"
)

func writeBitmap(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 10, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	base := CLICmd{Files: []string{"a.bmp"}, Scale: 1, Jobs: 1}

	tests := map[string]func(c *CLICmd){
		"zero scale":       func(c *CLICmd) { c.Scale = 0 },
		"negative scale":   func(c *CLICmd) { c.Scale = -2 },
		"nan scale":        func(c *CLICmd) { c.Scale = float32(nan()) },
		"nan offset":       func(c *CLICmd) { c.XOffset = float32(nan()) },
		"no jobs":          func(c *CLICmd) { c.Jobs = 0 },
		"output and out":   func(c *CLICmd) { c.Output, c.Out = "x.txt", "dir" },
		"output and files": func(c *CLICmd) { c.Output, c.Files = "x.txt", []string{"a.bmp", "b.bmp"} },
		"same destination": func(c *CLICmd) {
			c.Out, c.Files = "docs", []string{filepath.Join("one", "level.bmp"), filepath.Join("two", "level.bmp")}
		},
		"same input twice": func(c *CLICmd) { c.Files = []string{"a.bmp", "./a.bmp"} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			if err := c.Validate(nil); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	c := base
	c.Files = []string{filepath.Join("one", "level.bmp"), filepath.Join("two", "level.bmp")}
	c.XOffset, c.YOffset = -10, 3.5
	if err := c.Validate(nil); err != nil {
		t.Errorf("valid parameters rejected: %v", err)
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	src := writeBitmap(t, dir, "level.bmp", 4, 3)

	c := CLICmd{Files: []string{src}, Scale: 2, XOffset: 1, ExcludeWhite: true, Jobs: 1}
	if err := c.Run(goose.Options{Workers: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "level.txt"))
	if err != nil {
		t.Fatal(err)
	}

	buf, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	grid, err := bitmap.Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	want := goose.Export(grid, c.Params(), goose.Options{Workers: 1})
	if string(got) != want {
		t.Errorf("document differs from a direct export:\ngot  %q\nwant %q", got, want)
	}
	if n := goose.CountTokens(want); n != 6 {
		t.Errorf("got %d platforms, want 6", n)
	}
}

func TestRunOutDirAndOutput(t *testing.T) {
	dir := t.TempDir()
	a := writeBitmap(t, dir, "a.bmp", 2, 2)
	b := writeBitmap(t, dir, "b.bmp", 3, 1)
	out := filepath.Join(dir, "docs")

	c := CLICmd{Files: []string{a, b}, Out: out, Scale: 1, Jobs: 2}
	if err := c.Run(goose.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"a.txt", "b.txt"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	single := filepath.Join(dir, "custom.goose")
	c = CLICmd{Files: []string{a}, Output: single, Scale: 1, Jobs: 1}
	if err := c.Run(goose.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(single); err != nil {
		t.Errorf("missing %s: %v", single, err)
	}
}

func TestRunRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := writeBitmap(t, dir, "level.bmp", 2, 2)
	dest := filepath.Join(dir, "level.txt")
	if err := os.WriteFile(dest, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := CLICmd{Files: []string{src}, Scale: 1, Jobs: 1}
	if err := c.Run(goose.Options{}); !errors.Is(err, fileop.ErrExists) {
		t.Fatalf("got %v, want ErrExists", err)
	}
	if got, _ := os.ReadFile(dest); string(got) != "keep" {
		t.Errorf("destination modified: %q", got)
	}

	c.Force = true
	if err := c.Run(goose.Options{}); err != nil {
		t.Fatalf("Run with --force: %v", err)
	}
	if got, _ := os.ReadFile(dest); string(got) == "keep" {
		t.Error("destination not replaced with --force")
	}
}

func TestRunSharedDestinationKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"one", "two"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	a := writeBitmap(t, filepath.Join(dir, "one"), "level.bmp", 2, 2)
	b := writeBitmap(t, filepath.Join(dir, "two"), "level.bmp", 3, 3)
	out := filepath.Join(dir, "out")

	c := CLICmd{Files: []string{a, b}, Out: out, Scale: 1, Jobs: 2}
	if err := c.Validate(nil); err == nil {
		t.Fatal("colliding destinations passed validation")
	}

	for range 20 {
		if err := os.RemoveAll(out); err != nil {
			t.Fatal(err)
		}
		if err := c.Run(goose.Options{}); !errors.Is(err, fileop.ErrExists) {
			t.Fatalf("got %v, want ErrExists", err)
		}
		entries, err := os.ReadDir(out)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d files in %s, want 1", len(entries), out)
		}
	}
}

func TestRunTruncatedWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := writeBitmap(t, dir, "broken.bmp", 5, 5)
	buf, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, buf[:len(buf)-7], 0o644); err != nil {
		t.Fatal(err)
	}

	c := CLICmd{Files: []string{src}, Scale: 1, Jobs: 1}
	if err := c.Run(goose.Options{}); !errors.Is(err, bitmap.ErrTruncatedFile) {
		t.Fatalf("got %v, want ErrTruncatedFile", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.txt")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("document written for a truncated bitmap: %v", err)
	}
}

func TestRunMissingFile(t *testing.T) {
	c := CLICmd{Files: []string{filepath.Join(t.TempDir(), "missing.bmp")}, Scale: 1, Jobs: 1}
	err := c.Run(goose.Options{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("got %v, want fs.ErrNotExist", err)
	}
	if errors.Is(err, bitmap.ErrTruncatedFile) {
		t.Error("missing file reported as a decode error")
	}
}
