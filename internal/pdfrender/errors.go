package pdfrender

import "errors"

var (
	// ErrInputPathRequired is returned when input path is not provided.
	ErrInputPathRequired = errors.New("input path is required")
	// ErrOutputPathRequired is returned when output path is not provided.
	ErrOutputPathRequired = errors.New("output path is required")
	// ErrInputDirMissing is returned when the input directory does not exist.
	ErrInputDirMissing = errors.New("input directory does not exist")
	// ErrOutputIsDirectory is returned when a directory sits where a PNG should be.
	ErrOutputIsDirectory = errors.New("output path is a directory")
	// ErrOutputNotProduced is returned when the rasterizer exits cleanly but
	// leaves no file behind.
	ErrOutputNotProduced = errors.New("rasterizer did not produce an output file")
	// ErrUnknownTool is returned for an unsupported rasterizer name.
	ErrUnknownTool = errors.New("unknown rasterizer tool")
	// ErrPositiveDPIRequired is returned for a negative resolution.
	ErrPositiveDPIRequired = errors.New("dpi must be positive")
)
