// Package pdfrender keeps a directory of PNG renderings in step with a directory
// of PDF sources.
package pdfrender

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// defaultDirMode is the default permissions for created directories.
	defaultDirMode = 0o750

	sourceExt = ".pdf"
	outputExt = ".png"
)

// SourceItem is a PDF in the input directory.
type SourceItem struct {
	ModTime  time.Time
	BaseName string
	Path     string
}

// OutputState says whether a rendering exists for a source item.
type OutputState int

const (
	// OutputMissing means no PNG with the source's base name exists yet.
	OutputMissing OutputState = iota
	// OutputPresent means a PNG exists and its ModTime is meaningful.
	OutputPresent
)

// OutputItem is the PNG rendering that belongs to a SourceItem.
type OutputItem struct {
	ModTime  time.Time
	BaseName string
	Path     string
	State    OutputState
}

// DiscoverPDFs finds all PDF files in a given directory.
// The .pdf suffix is matched exactly and subdirectories are not entered.
func DiscoverPDFs(dirPath string) ([]SourceItem, error) {
	dirEntries, readErr := os.ReadDir(dirPath)
	if readErr != nil {
		return nil, fmt.Errorf(
			"could not read directory %s: %w",
			dirPath,
			readErr,
		)
	}

	var items []SourceItem

	for _, entry := range dirEntries {
		// Only regular <base>.pdf entries; a.PDF beside a.pdf would share a.png.
		if entry.IsDir() || filepath.Ext(entry.Name()) != sourceExt {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			// The file vanished between the listing and the stat.
			if errors.Is(infoErr, fs.ErrNotExist) {
				continue
			}

			return nil, fmt.Errorf("could not stat %s: %w", entry.Name(), infoErr)
		}

		items = append(items, SourceItem{
			BaseName: BaseName(entry.Name()),
			Path:     filepath.Join(dirPath, entry.Name()),
			ModTime:  info.ModTime(),
		})
	}

	return items, nil
}

// BaseName strips the directory and the extension from a file path.
func BaseName(path string) string {
	name := filepath.Base(path)

	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputPath is where the rendering of base lives inside outputDir.
func OutputPath(outputDir, base string) string {
	return filepath.Join(outputDir, base+outputExt)
}

// StatOutput looks up the rendering for base. A missing file is not an error.
func StatOutput(outputDir, base string) (OutputItem, error) {
	item := OutputItem{
		BaseName: base,
		Path:     OutputPath(outputDir, base),
		State:    OutputMissing,
		ModTime:  time.Time{},
	}

	info, statErr := os.Stat(item.Path)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return item, nil
		}

		return item, fmt.Errorf("could not stat %s: %w", item.Path, statErr)
	}

	if info.IsDir() {
		return item, fmt.Errorf("%s: %w", item.Path, ErrOutputIsDirectory)
	}

	item.State = OutputPresent
	item.ModTime = info.ModTime()

	return item, nil
}

// requireDirectory fails with ErrInputDirMissing unless path is an existing directory.
func requireDirectory(path string) error {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrInputDirMissing)
		}

		return fmt.Errorf("could not stat input directory %s: %w", path, statErr)
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", path, ErrInputDirMissing)
	}

	return nil
}

// setupOutputDirectory creates the output directory if it does not exist yet.
func setupOutputDirectory(outputDir string) error {
	mkdirErr := os.MkdirAll(outputDir, defaultDirMode)
	if mkdirErr != nil {
		return fmt.Errorf(
			"failed to create output directory %s: %w",
			outputDir,
			mkdirErr,
		)
	}

	return nil
}
