// Package fileop holds the file handling shared by the subcommands.
package fileop

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

var ErrExists = errors.New("destination file already exists")

// ReadSource reads a whole regular file. Errors wrap the underlying os
// error, so fs.ErrNotExist and friends survive.
func ReadSource(src string) ([]byte, error) {
	srcFileInfo, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("cannot stat source file %q: %w", src, err)
	}
	if !srcFileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("cannot read non-regular file %q: %s", srcFileInfo.Name(), srcFileInfo.Mode().String())
	}

	buf, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("could not read source file %q: %w", src, err)
	}
	return buf, nil
}

// CheckDest fails with ErrExists when dest exists and overwrite is false.
func CheckDest(dest string, overwrite bool) error {
	destFileInfo, err := os.Stat(dest)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot stat destination file %q: %w", dest, err)
		}
		return nil
	}
	if destFileInfo.IsDir() {
		return fmt.Errorf("destination is a directory: %q", dest)
	}
	if !overwrite {
		return fmt.Errorf("%w: %q", ErrExists, dest)
	}
	return nil
}

// Save writes dest through a temporary file in the same directory, which is
// only moved into place once write succeeded and the data was flushed.
// Without overwrite the file is linked into place, so a dest created by
// someone else in the meantime is never replaced.
func Save(dest string, overwrite bool, write func(io.Writer) error) (err error) {
	if err = CheckDest(dest, overwrite); err != nil {
		return err
	}

	destDir, destName := filepath.Split(dest)
	if destDir == "" {
		destDir = "."
	}
	outFile, err := os.CreateTemp(destDir, "."+destName+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary destination for %q: %w", dest, err)
	}
	canMove := false
	defer func() {
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", outFile.Name(), defErr)
		}

		if canMove && err == nil {
			err = place(outFile.Name(), dest, overwrite)
		}
		if rmErr := os.Remove(outFile.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.Error("could not remove temporary file", "name", outFile.Name(), "error", rmErr)
		}
	}()

	w := bufio.NewWriter(outFile)
	if err = write(w); err != nil {
		return fmt.Errorf("could not write %q: %w", dest, err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("could not write %q: %w", dest, err)
	}
	if err = outFile.Sync(); err != nil {
		return fmt.Errorf("could not flush temporary destination for %q: %w", dest, err)
	}
	if err = outFile.Chmod(0o644); err != nil {
		return fmt.Errorf("could not set permissions on %q: %w", dest, err)
	}

	canMove = true
	return nil
}

func place(tmp, dest string, overwrite bool) error {
	if overwrite {
		if err := os.Rename(tmp, dest); err != nil {
			return fmt.Errorf("could not rename destination file %q: %w", dest, err)
		}
		return nil
	}

	if err := os.Link(tmp, dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %q", ErrExists, dest)
		}
		return fmt.Errorf("could not link destination file %q: %w", dest, err)
	}
	return nil
}
